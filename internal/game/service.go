// internal/game/service.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jason-s-yu/fizzbuzz/internal/database"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/sirupsen/logrus"
)

// Picker chooses an index in [0, n). Implementations must be safe for concurrent use.
type Picker interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewPicker returns a goroutine-safe Picker seeded with seed.
func NewPicker(seed int64) Picker {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// EventPublisher receives session events once the store has committed them.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.SessionEvent) error
}

// Service runs the game and session operations against a Store.
// It holds no session state between calls.
type Service struct {
	store  database.Store
	now    func() time.Time
	picker Picker
	events EventPublisher
	log    *logrus.Logger
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPicker(p Picker) Option {
	return func(s *Service) { s.picker = p }
}

func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store database.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		picker: NewPicker(time.Now().UnixNano()),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish never fails the caller; the event feed is best effort.
func (s *Service) publish(ctx context.Context, ev models.SessionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"session_id": ev.SessionID,
			"type":       ev.Type,
		}).Warn("failed to publish session event")
	}
}
