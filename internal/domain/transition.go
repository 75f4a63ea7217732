package domain

import "time"

// ActionTransition is an immutable audit record of a user-driven type change.
// It is written before the Action mutation becomes visible and is never
// updated or deleted; the log feeds future classifier improvement.
type ActionTransition struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	ActionID           string     `json:"action_id"`
	CommandID          string     `json:"command_id"`
	CommandText        string     `json:"command_text"`
	OriginalType       ActionType `json:"original_type"`
	NewType            ActionType `json:"new_type"`
	OriginalConfidence float64    `json:"original_confidence"`
	CreatedAt          time.Time  `json:"created_at"`
}
