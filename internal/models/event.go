// internal/models/event.go
package models

import "github.com/google/uuid"

const (
	EventSessionStarted   = "session_started"
	EventAnswerSubmitted  = "answer_submitted"
	EventSessionCompleted = "session_completed"
)

// SessionEvent is a single entry on the session event queue, consumed by the historian.
type SessionEvent struct {
	ID        uuid.UUID              `json:"id"`
	SessionID uuid.UUID              `json:"session_id"`
	GameID    uuid.UUID              `json:"game_id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"` // epoch millis
}
