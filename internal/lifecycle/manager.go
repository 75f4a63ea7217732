package lifecycle

import (
	"context"
	"log/slog"

	"github.com/harunnryd/denrei/internal/bus"
	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/store"

	"github.com/oklog/ulid/v2"
)

// Publisher emits fan-out events for downstream fulfillment.
type Publisher interface {
	PublishActionCreated(ctx context.Context, evt bus.ActionCreated) error
}

// CorrectionRecorder indexes accepted reclassifications. Optional.
type CorrectionRecorder interface {
	Record(ctx context.Context, tr *domain.ActionTransition) error
}

// Manager owns the action lifecycle: creation with confidence gating, the
// approval transition, user reclassification, and reconciliation.
type Manager struct {
	store         *store.Store
	publisher     Publisher
	corrections   CorrectionRecorder
	autoThreshold float64
}

func NewManager(st *store.Store, publisher Publisher, corrections CorrectionRecorder, autoThreshold float64) *Manager {
	if autoThreshold <= 0 || autoThreshold > 1 {
		autoThreshold = 0.75
	}
	return &Manager{
		store:         st,
		publisher:     publisher,
		corrections:   corrections,
		autoThreshold: autoThreshold,
	}
}

// CreateFromClassification derives an action from a successful classification
// and emits action.created. Confidence gating decides the initial status: a
// low-confidence guess must never reach a status that triggers unattended
// fulfillment. Emit failure is logged and never rolls the action back; the
// reconciler re-emits from persisted state.
func (m *Manager) CreateFromClassification(ctx context.Context, cmd *domain.Command, cls *domain.Classification) (string, error) {
	if cmd == nil || cls == nil {
		return "", errors.Validation("command and classification are required")
	}

	action := &domain.Action{
		ID:         ulid.Make().String(),
		UserID:     cmd.UserID,
		CommandID:  cmd.ID,
		Type:       cls.Type,
		Title:      cls.Title,
		Confidence: domain.ClampConfidence(cls.Confidence),
		Status:     domain.InitialStatus(cls.Confidence, m.autoThreshold),
		CreatedAt:  cmd.ReceivedAt,
	}

	if err := m.store.CreateAction(action); err != nil {
		return "", err
	}

	slog.Info("Action created",
		"action", action.ID, "command", cmd.ID, "type", action.Type,
		"confidence", action.Confidence, "status", action.Status)

	m.emit(ctx, action)
	return action.ID, nil
}

func (m *Manager) emit(ctx context.Context, action *domain.Action) {
	evt := bus.ActionCreated{
		ActionID:   action.ID,
		UserID:     action.UserID,
		CommandID:  action.CommandID,
		Type:       action.Type,
		Confidence: action.Confidence,
		Title:      action.Title,
	}

	if err := m.publisher.PublishActionCreated(ctx, evt); err != nil {
		slog.Error("Failed to publish action.created, reconciler will re-emit",
			"action", action.ID, "error", err)
		return
	}

	if err := m.store.MarkActionPublished(action.ID); err != nil {
		slog.Error("Failed to record publication", "action", action.ID, "error", err)
	}
}

// Approve moves an action into processing. Only the owner may approve, and
// only from pending or awaiting_approval.
func (m *Manager) Approve(ctx context.Context, actionID, userID string) error {
	action, err := m.store.GetAction(actionID)
	if err != nil {
		return err
	}
	if action.UserID != userID {
		return errors.NotFound("action not found: " + actionID)
	}
	if !action.TypeMutable() {
		return errors.InvalidStatus("action is " + string(action.Status))
	}

	if err := m.store.UpdateActionStatus(actionID, action.Status, domain.ActionProcessing); err != nil {
		return err
	}

	slog.Info("Action approved", "action", actionID, "user", userID)
	return nil
}

// GetAction returns an action if owned by userID.
func (m *Manager) GetAction(ctx context.Context, actionID, userID string) (*domain.Action, error) {
	action, err := m.store.GetAction(actionID)
	if err != nil {
		return nil, err
	}
	if action.UserID != userID {
		return nil, errors.NotFound("action not found: " + actionID)
	}
	return action, nil
}

// ListActions returns a user's actions, optionally filtered by status.
func (m *Manager) ListActions(ctx context.Context, userID string, status domain.ActionStatus) []*domain.Action {
	return m.store.ListActionsByUser(userID, status)
}
