package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/fizzbuzz/internal/database"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// lowestPicker always serves the smallest unanswered number.
type lowestPicker struct{}

func (lowestPicker) Intn(int) int { return 0 }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev models.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *database.MemoryStore
	clock  *fakeClock
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		store:  database.NewMemoryStore(),
		clock:  &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		events: &recordingPublisher{},
	}
	f.svc = NewService(f.store,
		WithClock(f.clock.Now),
		WithPicker(lowestPicker{}),
		WithEvents(f.events),
		WithLogger(logger),
	)
	return f
}

func (f *fixture) createGame(t *testing.T, name string, min, max int, rules ...models.Rule) *models.Game {
	t.Helper()
	g, err := f.svc.CreateGame(context.Background(), models.GameRequest{
		Name:     name,
		Author:   "tester",
		MinValue: min,
		MaxValue: max,
		Rules:    rules,
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) startSession(t *testing.T, g *models.Game, duration int) *models.SessionResponse {
	t.Helper()
	s, err := f.svc.StartSession(context.Background(), models.StartSessionRequest{
		GameID:   g.ID,
		Player:   "alice",
		Duration: duration,
	})
	require.NoError(t, err)
	return s
}
