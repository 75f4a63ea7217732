package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
)

// Reconcile repairs the gaps a crash can leave between a classified command
// and its downstream state: an action that was never created, a command whose
// ActionID back-link never landed, and an action whose action.created
// emission was never recorded. All repairs are idempotent.
func (m *Manager) Reconcile(ctx context.Context) {
	m.relinkCommands(ctx)
	m.reemitUnpublished(ctx)
}

func (m *Manager) relinkCommands(ctx context.Context) {
	stale := m.store.ListCommandsByStatus(domain.CommandClassified, time.Now())
	for _, cmd := range stale {
		if cmd.ActionID != "" {
			continue
		}

		action, err := m.store.FindActionByCommand(cmd.ID)
		if err != nil {
			if !errors.IsCategory(err, errors.ErrNotFound) {
				slog.Error("Reconcile lookup failed", "command", cmd.ID, "error", err)
				continue
			}
			m.resumeActionCreation(ctx, cmd)
			continue
		}

		cmd.ActionID = action.ID
		if err := m.store.UpdateCommand(cmd); err != nil {
			slog.Error("Failed to repair command back-link", "command", cmd.ID, "error", err)
			continue
		}
		slog.Info("Repaired command back-link", "command", cmd.ID, "action", action.ID)
	}
}

// resumeActionCreation handles the crash window between the classified status
// write and the action create. The classification is durable on the command,
// so creation resumes from it instead of stranding the command.
func (m *Manager) resumeActionCreation(ctx context.Context, cmd *domain.Command) {
	if cmd.Classification == nil {
		slog.Error("Classified command has no stored classification", "command", cmd.ID)
		return
	}

	actionID, err := m.CreateFromClassification(ctx, cmd, cmd.Classification)
	if err != nil {
		slog.Error("Failed to resume action creation", "command", cmd.ID, "error", err)
		return
	}

	cmd.ActionID = actionID
	if err := m.store.UpdateCommand(cmd); err != nil {
		slog.Error("Failed to record action back-link", "command", cmd.ID, "error", err)
		return
	}
	slog.Info("Resumed action creation", "command", cmd.ID, "action", actionID)
}

func (m *Manager) reemitUnpublished(ctx context.Context) {
	for _, action := range m.store.ListUnpublishedActions() {
		slog.Info("Re-emitting action.created", "action", action.ID)
		m.emit(ctx, action)
	}
}
