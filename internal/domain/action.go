package domain

import (
	"fmt"
	"strings"
	"time"
)

type ActionType string

const (
	TypeTodo         ActionType = "todo"
	TypeResearch     ActionType = "research"
	TypeNote         ActionType = "note"
	TypeLink         ActionType = "link"
	TypeCalendar     ActionType = "calendar"
	TypeReminder     ActionType = "reminder"
	TypeUnclassified ActionType = "unclassified"
)

var actionTypes = map[ActionType]struct{}{
	TypeTodo:         {},
	TypeResearch:     {},
	TypeNote:         {},
	TypeLink:         {},
	TypeCalendar:     {},
	TypeReminder:     {},
	TypeUnclassified: {},
}

// ParseActionType validates a raw type string against the fixed enum.
func ParseActionType(raw string) (ActionType, error) {
	t := ActionType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := actionTypes[t]; !ok {
		return "", fmt.Errorf("unknown action type %q", raw)
	}
	return t, nil
}

type ActionStatus string

const (
	ActionPending          ActionStatus = "pending"
	ActionAwaitingApproval ActionStatus = "awaiting_approval"
	ActionProcessing       ActionStatus = "processing"
	ActionCompleted        ActionStatus = "completed"
	ActionRejected         ActionStatus = "rejected"
	ActionFailed           ActionStatus = "failed"
	ActionArchived         ActionStatus = "archived"
)

// Action is the classified, actionable intent derived from a Command. Exactly
// one Action is ever created per Command.
type Action struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	CommandID   string            `json:"command_id"`
	Type        ActionType        `json:"type"`
	Title       string            `json:"title"`
	Confidence  float64           `json:"confidence"`
	Payload     map[string]string `json:"payload,omitempty"`
	Status      ActionStatus      `json:"status"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TypeMutable reports whether the action's type may still be changed. Once an
// action starts processing, its type is load-bearing for fulfillment and is
// frozen.
func (a *Action) TypeMutable() bool {
	return a.Status == ActionPending || a.Status == ActionAwaitingApproval
}

// InitialStatus applies confidence gating: classifications below the
// threshold always require explicit approval before any fulfillment side
// effect can occur.
func InitialStatus(confidence, autoThreshold float64) ActionStatus {
	if confidence >= autoThreshold {
		return ActionPending
	}
	return ActionAwaitingApproval
}

// ClampConfidence forces a confidence value into [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
