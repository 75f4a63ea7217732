package domain

import (
	"crypto/sha256"
	"fmt"
	"time"
)

type SourceType string

const (
	SourceWhatsAppText  SourceType = "whatsapp_text"
	SourceWhatsAppVoice SourceType = "whatsapp_voice"
	SourcePWAShared     SourceType = "pwa_shared"
	SourceTelegramText  SourceType = "telegram_text"
)

type CommandStatus string

const (
	CommandReceived              CommandStatus = "received"
	CommandClassified            CommandStatus = "classified"
	CommandPendingClassification CommandStatus = "pending_classification"
	CommandFailed                CommandStatus = "failed"
)

// Classification is the typed result of running a command through the model.
type Classification struct {
	Type       ActionType `json:"type"`
	Confidence float64    `json:"confidence"`
	Title      string     `json:"title"`
	Reasoning  string     `json:"reasoning,omitempty"`
}

// Command is one durable record per unique inbound event. Commands are never
// deleted; they are the audit root for everything derived from them.
type Command struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Source         SourceType      `json:"source"`
	ExternalID     string          `json:"external_id"`
	Text           string          `json:"text"`
	Timestamp      time.Time       `json:"timestamp"`
	ReceivedAt     time.Time       `json:"received_at"`
	Status         CommandStatus   `json:"status"`
	Classification *Classification `json:"classification,omitempty"`
	ActionID       string          `json:"action_id,omitempty"`
	AttemptCount   int             `json:"attempt_count"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NaturalKey is the idempotency key for an inbound event.
func NaturalKey(source SourceType, externalID string) string {
	return fmt.Sprintf("%s:%s", source, externalID)
}

// CommandID derives the durable command identity from the natural key.
// Hashing keeps upstream message IDs out of file names and URLs.
func CommandID(source SourceType, externalID string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(NaturalKey(source, externalID))))
}
