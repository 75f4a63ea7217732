package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"

	"github.com/oklog/ulid/v2"
)

// ChangeType applies a user's reclassification of an action. The transition
// is appended to the audit log before the type mutates, so a crash between
// the two leaves a record of intent rather than a silent change. Replaying
// the same correction is a no-op.
func (m *Manager) ChangeType(ctx context.Context, actionID, userID string, newType domain.ActionType) (*domain.ActionTransition, error) {
	if _, err := domain.ParseActionType(string(newType)); err != nil {
		return nil, err
	}

	action, err := m.store.GetAction(actionID)
	if err != nil {
		return nil, err
	}
	if action.UserID != userID {
		return nil, errors.NotFound("action not found: " + actionID)
	}
	if !action.TypeMutable() {
		return nil, errors.InvalidStatus("cannot reclassify action in status " + string(action.Status))
	}
	if action.Type == newType {
		return nil, nil
	}

	// The audit record carries the verbatim command text, so the correction
	// corpus reflects what the user actually said. Without it there is no
	// honest record to append, so the mutation does not proceed.
	cmd, err := m.store.GetCommand(action.CommandID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load command for audit record")
	}

	tr := &domain.ActionTransition{
		ID:                 ulid.Make().String(),
		UserID:             userID,
		ActionID:           action.ID,
		CommandID:          action.CommandID,
		CommandText:        cmd.Text,
		OriginalType:       action.Type,
		NewType:            newType,
		OriginalConfidence: action.Confidence,
		CreatedAt:          time.Now().UTC(),
	}

	if err := m.store.AppendTransition(tr); err != nil {
		return nil, err
	}

	if err := m.store.UpdateActionType(actionID, action.Type, newType); err != nil {
		return nil, err
	}

	if m.corrections != nil {
		if err := m.corrections.Record(ctx, tr); err != nil {
			slog.Debug("Failed to index correction", "transition", tr.ID, "error", err)
		}
	}

	slog.Info("Action reclassified",
		"action", actionID, "from", tr.OriginalType, "to", tr.NewType, "user", userID)
	return tr, nil
}

// Transitions returns the audit trail for one action, oldest first.
func (m *Manager) Transitions(ctx context.Context, actionID, userID string) ([]domain.ActionTransition, error) {
	if _, err := m.GetAction(ctx, actionID, userID); err != nil {
		return nil, err
	}
	return m.store.ListTransitions(actionID)
}
