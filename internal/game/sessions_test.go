package game

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGame(t, "FizzBuzz", 1, 15, fizzBuzzRules...)

	sess := f.startSession(t, g, 60)
	assert.Equal(t, g.ID, sess.GameID)
	assert.Equal(t, "FizzBuzz", sess.Game)
	assert.Equal(t, fizzBuzzRules, sess.Rules)
	assert.False(t, sess.IsCompleted)
	assert.Equal(t, []string{models.EventSessionStarted}, f.events.types())

	_, err := f.svc.StartSession(ctx, models.StartSessionRequest{GameID: uuid.New(), Player: "bob", Duration: 60})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.StartSession(ctx, models.StartSessionRequest{GameID: g.ID, Player: "bob", Duration: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.StartSession(ctx, models.StartSessionRequest{GameID: g.ID, Player: "", Duration: 30})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestObserveOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGame(t, "FizzBuzz", 1, 15, fizzBuzzRules...)
	sess := f.startSession(t, g, 60)

	f.clock.Advance(1500 * time.Millisecond)
	state, err := f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	require.NotNil(t, state.Number)
	assert.Equal(t, 1, *state.Number)
	assert.False(t, state.IsCompleted)
	assert.False(t, state.IsExhausted)
	assert.Equal(t, 15, state.TotalNumbers)
	assert.Equal(t, 0, state.TotalAnswers)
	assert.Equal(t, 59, state.TimeRemaining, "elapsed seconds are floored")

	_, err = f.svc.SubmitAnswer(ctx, sess.SessionID, 1, "1")
	require.NoError(t, err)
	state, err = f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, *state.Number, "answered numbers are never served again")
	assert.Equal(t, 1, state.TotalAnswers)
}

func TestObserveDrawsFromRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.picker = NewPicker(7)
	g := f.createGame(t, "FizzBuzz", 1, 5, models.Rule{Divisor: 3, Word: "Fizz"})
	sess := f.startSession(t, g, 60)

	for _, n := range []int{1, 2, 4} {
		_, err := f.svc.SubmitAnswer(ctx, sess.SessionID, n, "x")
		require.NoError(t, err)
	}
	for i := 0; i < 50; i++ {
		state, err := f.svc.ObserveAndFinalize(ctx, sess.SessionID)
		require.NoError(t, err)
		require.NotNil(t, state.Number)
		assert.Contains(t, []int{3, 5}, *state.Number)
	}
}

func TestObserveFinalizesExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGame(t, "FizzBuzz", 1, 15, fizzBuzzRules...)
	sess := f.startSession(t, g, 30)

	f.clock.Advance(45 * time.Second)
	state, err := f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Nil(t, state.Number)
	assert.True(t, state.IsCompleted)
	assert.False(t, state.IsExhausted)
	assert.Equal(t, 0, state.TimeRemaining, "never negative")

	got, err := f.svc.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, f.clock.Now(), *got.CompletedAt)

	// a second observation does not move completedAt
	f.clock.Advance(10 * time.Second)
	_, err = f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	again, err := f.svc.GetSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, *got.CompletedAt, *again.CompletedAt)

	assert.Equal(t, []string{models.EventSessionStarted, models.EventSessionCompleted}, f.events.types())
}

func TestObserveExhaustedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGame(t, "Tiny", 2, 4, models.Rule{Divisor: 2, Word: "Even"})
	sess := f.startSession(t, g, 60)

	for n := 2; n <= 4; n++ {
		_, err := f.svc.SubmitAnswer(ctx, sess.SessionID, n, Compute(n, g.Rules))
		require.NoError(t, err)
	}

	state, err := f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Nil(t, state.Number)
	assert.True(t, state.IsExhausted)
	assert.True(t, state.IsCompleted)
	assert.Equal(t, 3, state.TotalNumbers)
	assert.Equal(t, 3, state.TotalAnswers)
	assert.Equal(t, 3, state.ScoreCorrect)
}

func TestObserveUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ObserveAndFinalize(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGame(t, "FizzBuzz", 1, 15, fizzBuzzRules...)
	sess := f.startSession(t, g, 60)

	for n, answer := range map[int]string{3: "Fizz", 5: "Buzz", 7: "Fizz"} {
		_, err := f.svc.SubmitAnswer(ctx, sess.SessionID, n, answer)
		require.NoError(t, err)
	}

	f.clock.Advance(20 * time.Second)
	res, err := f.svc.EndSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "FizzBuzz", res.Game)
	assert.Equal(t, 2, res.ScoreCorrect)
	assert.Equal(t, 1, res.ScoreIncorrect)
	assert.Equal(t, 3, res.TotalAnswers)
	assert.Equal(t, 15, res.TotalNumbers)
	assert.Equal(t, 0.67, res.Accuracy)
	require.NotNil(t, res.CompletedAt)
	endedAt := *res.CompletedAt

	f.clock.Advance(5 * time.Second)
	res, err = f.svc.EndSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, endedAt, *res.CompletedAt, "ending twice keeps the first completion time")
}

func TestEndSessionWithoutAnswers(t *testing.T) {
	f := newFixture(t)
	g := f.createGame(t, "FizzBuzz", 1, 15, fizzBuzzRules...)
	sess := f.startSession(t, g, 60)

	res, err := f.svc.EndSession(context.Background(), sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Accuracy)
}

// lastPicker always serves the largest unanswered number.
type lastPicker struct{}

func (lastPicker) Intn(n int) int { return n - 1 }

func TestObserveFullIntRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGame(t, "Huge", 1, math.MaxInt32, fizzBuzzRules...)
	sess := f.startSession(t, g, 60)

	state, err := f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	require.NotNil(t, state.Number)
	assert.Equal(t, 1, *state.Number)
	assert.Equal(t, math.MaxInt32, state.TotalNumbers)

	_, err = f.svc.SubmitAnswer(ctx, sess.SessionID, 1, "1")
	require.NoError(t, err)
	state, err = f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, *state.Number)

	f.svc.picker = lastPicker{}
	_, err = f.svc.SubmitAnswer(ctx, sess.SessionID, math.MaxInt32, "2147483647")
	require.NoError(t, err)
	state, err = f.svc.ObserveAndFinalize(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32-1, *state.Number)
	assert.False(t, state.IsExhausted)
}

func TestNthUnanswered(t *testing.T) {
	used := []int{3, 4, 7}
	// unanswered from 2 upward: 2 5 6 8 9
	for k, want := range []int{2, 5, 6, 8, 9} {
		assert.Equal(t, want, nthUnanswered(2, used, k), "k=%d", k)
	}
	assert.Equal(t, 10, nthUnanswered(10, nil, 0))
}

func TestAnsweredInRangeIgnoresStaleNumbers(t *testing.T) {
	answers := []models.Answer{{Number: 9}, {Number: 2}, {Number: 40}, {Number: 5}}
	assert.Equal(t, []int{2, 5, 9}, answeredInRange(answers, 1, 10))
}

func TestEndSessionRoundsHalfToEven(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGame(t, "FizzBuzz", 1, 15, fizzBuzzRules...)
	sess := f.startSession(t, g, 60)

	// one correct answer out of eight: 0.125
	_, err := f.svc.SubmitAnswer(ctx, sess.SessionID, 3, "Fizz")
	require.NoError(t, err)
	for _, n := range []int{1, 2, 4, 5, 6, 7, 8} {
		_, err := f.svc.SubmitAnswer(ctx, sess.SessionID, n, "wrong")
		require.NoError(t, err)
	}

	res, err := f.svc.EndSession(ctx, sess.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ScoreCorrect)
	assert.Equal(t, 7, res.ScoreIncorrect)
	assert.Equal(t, 0.12, res.Accuracy)
}
