package admission

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/store"
)

// Classifier runs text through the model layer.
type Classifier interface {
	Classify(ctx context.Context, userID, text string) (*domain.Classification, error)
}

// Lifecycle creates actions from classifications.
type Lifecycle interface {
	CreateFromClassification(ctx context.Context, cmd *domain.Command, cls *domain.Classification) (string, error)
}

// Event is one inbound message from a transport adapter.
type Event struct {
	Source     domain.SourceType
	ExternalID string
	UserID     string
	Text       string
	Timestamp  time.Time
}

// Result is what admission reports back to the transport.
type Result struct {
	CommandID string `json:"command_id"`
	IsNew     bool   `json:"is_new"`
}

// Service admits inbound events exactly once per natural key and drives them
// through classification into the action lifecycle.
type Service struct {
	store      *store.Store
	classifier Classifier
	lifecycle  Lifecycle
}

func New(st *store.Store, classifier Classifier, lifecycle Lifecycle) *Service {
	return &Service{store: st, classifier: classifier, lifecycle: lifecycle}
}

// Admit ingests one event. Redelivery of an already-admitted event returns the
// existing command ID with IsNew false and performs no writes. For a new
// event the command is persisted first, then classified; a classification
// failure never loses the command. The result is non-nil whenever the command
// was persisted, even when classification errored.
func (s *Service) Admit(ctx context.Context, evt Event) (*Result, error) {
	if err := validate(evt); err != nil {
		return nil, err
	}

	id := domain.CommandID(evt.Source, evt.ExternalID)

	cmd := &domain.Command{
		ID:         id,
		UserID:     evt.UserID,
		Source:     evt.Source,
		ExternalID: evt.ExternalID,
		Text:       evt.Text,
		Timestamp:  evt.Timestamp,
		ReceivedAt: time.Now().UTC(),
		Status:     domain.CommandReceived,
	}

	if err := s.store.CreateCommand(cmd); err != nil {
		if errors.IsCategory(err, errors.ErrConflict) {
			slog.Debug("Duplicate delivery absorbed", "command", id, "source", evt.Source)
			return &Result{CommandID: id, IsNew: false}, nil
		}
		return nil, err
	}

	result := &Result{CommandID: id, IsNew: true}

	if err := s.ClassifyAndLink(ctx, cmd); err != nil {
		// Only classification itself failing is terminal here. A classified
		// command with a failed downstream write is left for the reconciler.
		if cmd.Status == domain.CommandReceived {
			cmd.Status = domain.CommandFailed
			if uerr := s.store.UpdateCommand(cmd); uerr != nil {
				slog.Error("Failed to mark command failed", "command", id, "error", uerr)
			}
		}
		return result, err
	}

	return result, nil
}

// ClassifyAndLink classifies a persisted command and, on success, creates its
// action and records the back-link. A credential outage parks the command as
// pending_classification for the retry sweep and is absorbed here. Any other
// failure is returned with the command status untouched so admission and the
// retry sweep can apply their own terminal policies.
func (s *Service) ClassifyAndLink(ctx context.Context, cmd *domain.Command) error {
	cls, err := s.classifier.Classify(ctx, cmd.UserID, cmd.Text)
	if err != nil {
		if errors.IsCategory(err, errors.ErrClassifierUnavailable) {
			cmd.Status = domain.CommandPendingClassification
			if uerr := s.store.UpdateCommand(cmd); uerr != nil {
				return uerr
			}
			slog.Warn("Classifier unavailable, command parked for retry",
				"command", cmd.ID, "error", err)
			return nil
		}
		return err
	}

	cmd.Classification = cls
	cmd.Status = domain.CommandClassified
	if err := s.store.UpdateCommand(cmd); err != nil {
		return err
	}

	actionID, err := s.lifecycle.CreateFromClassification(ctx, cmd, cls)
	if err != nil {
		// The command stays classified with its classification stored; the
		// reconciler resumes action creation from it.
		return errors.Wrap(err, "failed to create action for command "+cmd.ID)
	}

	cmd.ActionID = actionID
	if err := s.store.UpdateCommand(cmd); err != nil {
		slog.Error("Failed to record action back-link, reconciler will repair",
			"command", cmd.ID, "action", actionID, "error", err)
	}
	return nil
}

func validate(evt Event) error {
	switch evt.Source {
	case domain.SourceWhatsAppText, domain.SourceWhatsAppVoice, domain.SourcePWAShared, domain.SourceTelegramText:
	default:
		return errors.Validation("unknown source type: " + string(evt.Source))
	}
	if strings.TrimSpace(evt.ExternalID) == "" {
		return errors.Validation("external id is required")
	}
	if strings.TrimSpace(evt.UserID) == "" {
		return errors.Validation("user id is required")
	}
	if strings.TrimSpace(evt.Text) == "" {
		return errors.Validation("text is required")
	}
	return nil
}
