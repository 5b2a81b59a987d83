package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGame(name string) *models.Game {
	return &models.Game{
		ID:        uuid.New(),
		Name:      name,
		Author:    "tester",
		MinValue:  1,
		MaxValue:  15,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Rules: []models.Rule{
			{Divisor: 5, Word: "Buzz"},
			{Divisor: 3, Word: "Fizz"},
		},
	}
}

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	g := newGame("FizzBuzz " + suffix)
	require.NoError(t, store.InsertGame(ctx, g))
	defer store.DeleteGame(ctx, g.ID)

	got, err := store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Name, got.Name)
	assert.Equal(t, []models.Rule{{Divisor: 3, Word: "Fizz"}, {Divisor: 5, Word: "Buzz"}}, got.Rules)

	taken, err := store.GameNameTaken(ctx, "fizzbuzz "+suffix, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = store.GameNameTaken(ctx, g.Name, g.ID)
	require.NoError(t, err)
	assert.False(t, taken, "a game does not collide with itself")

	dup := newGame("FIZZBUZZ " + suffix)
	err = store.InsertGame(ctx, dup)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = store.GetGame(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	g.Rules = []models.Rule{{Divisor: 7, Word: "Bazz"}}
	g.MaxValue = 20
	require.NoError(t, store.ReplaceGame(ctx, g))
	got, err = store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.MaxValue)
	assert.Equal(t, []models.Rule{{Divisor: 7, Word: "Bazz"}}, got.Rules)

	sess := &models.Session{
		ID:        uuid.New(),
		GameID:    g.ID,
		Player:    "alice",
		Duration:  60,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.InsertSession(ctx, sess))

	err = store.InsertSession(ctx, &models.Session{ID: uuid.New(), GameID: uuid.New(), Player: "bob", Duration: 5})
	assert.Error(t, err, "session for a missing game")

	// committed transaction
	err = store.WithSession(ctx, sess.ID, func(tx SessionTx, s *models.Session) error {
		assert.Equal(t, g.ID, s.Game.ID)
		require.NoError(t, tx.InsertAnswer(ctx, &models.Answer{
			ID: uuid.New(), SessionID: s.ID, Number: 7, PlayerAnswer: "Bazz",
			CorrectAnswer: "Bazz", IsCorrect: true, AnsweredAt: time.Now().UTC(),
		}))
		score, err := tx.AddScore(ctx, s.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.Score{Correct: 1}, score)
		return nil
	})
	require.NoError(t, err)

	// rolled back transaction
	rollback := errors.New("rollback")
	err = store.WithSession(ctx, sess.ID, func(tx SessionTx, s *models.Session) error {
		require.NoError(t, tx.InsertAnswer(ctx, &models.Answer{
			ID: uuid.New(), SessionID: s.ID, Number: 8, PlayerAnswer: "8",
			CorrectAnswer: "8", IsCorrect: true, AnsweredAt: time.Now().UTC(),
		}))
		_, err := tx.AddScore(ctx, s.ID, false)
		require.NoError(t, err)
		require.NoError(t, tx.Complete(ctx, s.ID, time.Now().UTC()))
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	loaded, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ScoreCorrect)
	assert.Equal(t, 0, loaded.ScoreIncorrect)
	assert.Nil(t, loaded.CompletedAt)
	require.Len(t, loaded.Answers, 1)
	assert.Equal(t, 7, loaded.Answers[0].Number)
	assert.Equal(t, g.Name, loaded.Game.Name)

	// duplicate answer
	err = store.WithSession(ctx, sess.ID, func(tx SessionTx, s *models.Session) error {
		return tx.InsertAnswer(ctx, &models.Answer{
			ID: uuid.New(), SessionID: s.ID, Number: 7, PlayerAnswer: "7",
			CorrectAnswer: "Bazz", AnsweredAt: time.Now().UTC(),
		})
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	completedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.WithSession(ctx, sess.ID, func(tx SessionTx, s *models.Session) error {
		return tx.Complete(ctx, s.ID, completedAt)
	}))
	loaded, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.CompletedAt)
	assert.True(t, completedAt.Equal(*loaded.CompletedAt))

	// deleting the game takes its sessions with it
	require.NoError(t, store.DeleteGame(ctx, g.ID))
	_, err = store.GetSession(ctx, sess.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	err = store.DeleteGame(ctx, g.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	err = store.WithSession(ctx, sess.ID, func(SessionTx, *models.Session) error { return nil })
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	g := newGame("FizzBuzz")
	require.NoError(t, store.InsertGame(ctx, g))

	got, err := store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	got.Rules[0].Word = "Mutated"
	got.Name = "Mutated"

	again, err := store.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "FizzBuzz", again.Name)
	assert.Equal(t, "Fizz", again.Rules[0].Word)
}

// TestPgStore runs against a real database; set TEST_DATABASE_URL to enable it.
func TestPgStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := ConnectDB(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migration is idempotent")

	exerciseStore(t, NewPgStore(pool))
}
