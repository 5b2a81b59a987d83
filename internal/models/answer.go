// internal/models/answer.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Answer is an immutable record of one response within a session.
// At most one exists per (SessionID, Number).
type Answer struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"sessionId"`
	Number        int       `json:"number"`
	PlayerAnswer  string    `json:"playerAnswer"`
	CorrectAnswer string    `json:"correctAnswer"`
	IsCorrect     bool      `json:"isCorrect"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// SubmitAnswerRequest is the payload of POST /api/sessions/{id}/answer.
type SubmitAnswerRequest struct {
	SessionID uuid.UUID `json:"sessionId"`
	Number    int       `json:"number"`
	Answer    string    `json:"answer"`
}

// AnswerResult reports the outcome of a submission.
type AnswerResult struct {
	IsCorrect       bool   `json:"isCorrect"`
	CorrectAnswer   string `json:"correctAnswer"`
	PlayerAnswer    string `json:"playerAnswer"`
	ScoreCorrect    int    `json:"scoreCorrect"`
	ScoreIncorrect  int    `json:"scoreIncorrect"`
	IsGameCompleted bool   `json:"isGameCompleted"`
}

// Score is the pair of running counters on a session.
type Score struct {
	Correct   int
	Incorrect int
}
