package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
)

// ActionCreated is the fan-out event emitted once per persisted action.
// Delivery is at-least-once; consumers must be idempotent on ActionID.
type ActionCreated struct {
	ActionID   string            `json:"action_id"`
	UserID     string            `json:"user_id"`
	CommandID  string            `json:"command_id"`
	Type       domain.ActionType `json:"type"`
	Confidence float64           `json:"confidence"`
	Title      string            `json:"title"`
}

// Subscriber consumes action.created events.
type Subscriber interface {
	Name() string
	HandleActionCreated(ctx context.Context, evt ActionCreated) error
}

// Bus fans action.created out to registered subscribers. A subscriber failure
// makes the publish report an error so the reconciler re-emits later, but it
// never stops delivery to the remaining subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

func New() *Bus {
	return &Bus{subs: make(map[string]Subscriber)}
}

func (b *Bus) Register(sub Subscriber) error {
	if sub == nil {
		return errors.Validation("subscriber cannot be nil")
	}
	name := sub.Name()
	if name == "" {
		return errors.Validation("subscriber name cannot be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[name]; exists {
		return errors.Conflict("subscriber already registered: " + name)
	}

	b.subs[name] = sub
	slog.Info("Bus subscriber registered", "name", name)
	return nil
}

func (b *Bus) Unregister(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[name]; !exists {
		return errors.NotFound("subscriber not found: " + name)
	}
	delete(b.subs, name)
	return nil
}

func (b *Bus) PublishActionCreated(ctx context.Context, evt ActionCreated) error {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	var failed int
	for _, sub := range subs {
		if err := sub.HandleActionCreated(ctx, evt); err != nil {
			slog.Error("Subscriber failed to handle action.created",
				"subscriber", sub.Name(), "action", evt.ActionID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d subscribers failed for action %s", failed, len(subs), evt.ActionID)
	}

	slog.Debug("action.created published", "action", evt.ActionID, "subscribers", len(subs))
	return nil
}
