package store

import (
	"sort"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
)

// CreateAction inserts a new action.
func (s *Store) CreateAction(a *domain.Action) error {
	if a == nil || a.ID == "" {
		return errors.Validation("action is nil or missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.actions[a.ID]; exists {
		return errors.Conflict("action already exists: " + a.ID)
	}

	cp := *a
	cp.UpdatedAt = time.Now()
	s.actions[a.ID] = &cp

	if err := s.saveActions(); err != nil {
		delete(s.actions, a.ID)
		return errors.Persistence(err, "save actions")
	}
	a.UpdatedAt = cp.UpdatedAt
	return nil
}

// GetAction returns a copy of the action.
func (s *Store) GetAction(id string) (*domain.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return nil, errors.NotFound("action not found: " + id)
	}
	out := *a
	return &out, nil
}

// FindActionByCommand returns the action owning the given command ID, if any.
// Used by the reconciler to repair a missing Command.ActionID back-link.
func (s *Store) FindActionByCommand(commandID string) (*domain.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.actions {
		if a.CommandID == commandID {
			out := *a
			return &out, nil
		}
	}
	return nil, errors.NotFound("no action for command: " + commandID)
}

// ListActionsByUser returns copies of a user's actions, newest first.
// An empty status matches all statuses.
func (s *Store) ListActionsByUser(userID string, status domain.ActionStatus) []*domain.Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Action, 0)
	for _, a := range s.actions {
		if a.UserID != userID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListUnpublishedActions returns actions persisted without a recorded
// action.created publication. The reconciler re-emits for these.
func (s *Store) ListUnpublishedActions() []*domain.Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Action, 0)
	for _, a := range s.actions {
		if a.PublishedAt == nil {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

// UpdateActionStatus is a compare-and-swap on the status field. Last-write-
// wins is disallowed for status and type: a blind overwrite could silently
// execute a stale-typed action or discard a reclassification.
func (s *Store) UpdateActionStatus(id string, expected, next domain.ActionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return errors.NotFound("action not found: " + id)
	}
	if a.Status != expected {
		return errors.Wrap(errors.ErrConcurrentModification,
			"action "+id+" status is "+string(a.Status)+", expected "+string(expected))
	}

	prev := a.Status
	prevUpdated := a.UpdatedAt
	a.Status = next
	a.UpdatedAt = time.Now()

	if err := s.saveActions(); err != nil {
		a.Status = prev
		a.UpdatedAt = prevUpdated
		return errors.Persistence(err, "save actions")
	}
	return nil
}

// UpdateActionType is a compare-and-swap on the type field.
func (s *Store) UpdateActionType(id string, expected, next domain.ActionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return errors.NotFound("action not found: " + id)
	}
	if a.Type != expected {
		return errors.Wrap(errors.ErrConcurrentModification,
			"action "+id+" type is "+string(a.Type)+", expected "+string(expected))
	}

	prev := a.Type
	prevUpdated := a.UpdatedAt
	a.Type = next
	a.UpdatedAt = time.Now()

	if err := s.saveActions(); err != nil {
		a.Type = prev
		a.UpdatedAt = prevUpdated
		return errors.Persistence(err, "save actions")
	}
	return nil
}

// MarkActionPublished records a successful action.created emission.
func (s *Store) MarkActionPublished(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return errors.NotFound("action not found: " + id)
	}

	now := time.Now()
	a.PublishedAt = &now

	if err := s.saveActions(); err != nil {
		a.PublishedAt = nil
		return errors.Persistence(err, "save actions")
	}
	return nil
}
