// internal/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one timed play-through of a Game.
//
// Game and Answers are populated by the store when a session is loaded for play.
type Session struct {
	ID             uuid.UUID  `json:"id"`
	GameID         uuid.UUID  `json:"gameId"`
	Player         string     `json:"player"`
	Duration       int        `json:"duration"` // seconds
	ScoreCorrect   int        `json:"scoreCorrect"`
	ScoreIncorrect int        `json:"scoreIncorrect"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`

	Game    *Game    `json:"-"`
	Answers []Answer `json:"-"`
}

// IsCompleted reports whether CompletedAt is set and not in the future relative to now.
func (s *Session) IsCompleted(now time.Time) bool {
	return s.CompletedAt != nil && !s.CompletedAt.After(now)
}

// Elapsed returns whole seconds since StartedAt, floored.
func (s *Session) Elapsed(now time.Time) int {
	return int(now.Sub(s.StartedAt) / time.Second)
}

// HasAnswered reports whether number already has a recorded answer.
func (s *Session) HasAnswered(number int) bool {
	for _, a := range s.Answers {
		if a.Number == number {
			return true
		}
	}
	return false
}

// StartSessionRequest is the payload of POST /api/sessions/start.
type StartSessionRequest struct {
	GameID   uuid.UUID `json:"gameId"`
	Player   string    `json:"player"`
	Duration int       `json:"duration"`
}

// SessionResponse summarises a session together with its game's rules.
type SessionResponse struct {
	SessionID   uuid.UUID  `json:"sessionId"`
	GameID      uuid.UUID  `json:"gameId"`
	Game        string     `json:"game"`
	Player      string     `json:"player"`
	Duration    int        `json:"duration"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	Rules       []Rule     `json:"rules"`
	Token       string     `json:"token,omitempty"`
}

// SessionState is the live view of a session. Number is nil once the session is completed.
type SessionState struct {
	Number         *int `json:"number"`
	IsExhausted    bool `json:"isExhausted"`
	IsCompleted    bool `json:"isCompleted"`
	ScoreCorrect   int  `json:"scoreCorrect"`
	ScoreIncorrect int  `json:"scoreIncorrect"`
	TotalNumbers   int  `json:"totalNumbers"`
	TotalAnswers   int  `json:"totalAnswers"`
	TimeRemaining  int  `json:"timeRemaining"`
}

// SessionResult is the final scorecard of a session.
type SessionResult struct {
	Game           string     `json:"game"`
	Player         string     `json:"player"`
	Duration       int        `json:"duration"`
	ScoreCorrect   int        `json:"scoreCorrect"`
	ScoreIncorrect int        `json:"scoreIncorrect"`
	TotalNumbers   int        `json:"totalNumbers"`
	TotalAnswers   int        `json:"totalAnswers"`
	Accuracy       float64    `json:"accuracy"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt"`
}
