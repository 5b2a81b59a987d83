// internal/database/store.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
)

// Store is the persistence surface the game services run against.
// Implementations return *apperr.Error values for not-found and uniqueness failures.
type Store interface {
	ListGames(ctx context.Context) ([]models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	// GameNameTaken reports whether another game (not exclude) already uses name, case-insensitively.
	GameNameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	InsertGame(ctx context.Context, g *models.Game) error
	// ReplaceGame overwrites the game's fields and replaces its rules.
	ReplaceGame(ctx context.Context, g *models.Game) error
	// DeleteGame removes the game together with its rules, sessions and answers.
	DeleteGame(ctx context.Context, id uuid.UUID) error
	CountGames(ctx context.Context) (int, error)

	InsertSession(ctx context.Context, s *models.Session) error
	// GetSession loads the session with its game, rules and answers.
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// WithSession loads the session exclusively and runs fn in one transaction.
	// Writes made through tx are committed only if fn returns nil.
	WithSession(ctx context.Context, id uuid.UUID, fn func(tx SessionTx, s *models.Session) error) error
}

// SessionTx is the set of writes allowed on a locked session.
type SessionTx interface {
	InsertAnswer(ctx context.Context, a *models.Answer) error
	// AddScore increments the correct or incorrect counter and returns the new totals.
	AddScore(ctx context.Context, sessionID uuid.UUID, correct bool) (models.Score, error)
	Complete(ctx context.Context, sessionID uuid.UUID, at time.Time) error
}
