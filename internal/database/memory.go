// internal/database/memory.go
package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
)

// MemoryStore keeps everything in process memory. It is used for local runs
// with STORE=memory and by tests. One mutex guards all state, so WithSession
// serializes every session transaction.
type MemoryStore struct {
	mu       sync.Mutex
	games    map[uuid.UUID]*models.Game
	sessions map[uuid.UUID]*models.Session
	answers  map[uuid.UUID][]models.Answer // keyed by session id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:    make(map[uuid.UUID]*models.Game),
		sessions: make(map[uuid.UUID]*models.Session),
		answers:  make(map[uuid.UUID][]models.Answer),
	}
}

func copyGame(g *models.Game) *models.Game {
	c := *g
	c.Rules = models.SortedRules(g.Rules)
	return &c
}

func (m *MemoryStore) ListGames(ctx context.Context) ([]models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	games := make([]models.Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, *copyGame(g))
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})
	return games, nil
}

func (m *MemoryStore) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[id]
	if !ok {
		return nil, apperr.NotFound("Game with ID %s not found.", id)
	}
	return copyGame(g), nil
}

func (m *MemoryStore) GameNameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nameTakenLocked(name, exclude), nil
}

func (m *MemoryStore) nameTakenLocked(name string, exclude uuid.UUID) bool {
	for id, g := range m.games {
		if id != exclude && strings.EqualFold(g.Name, name) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) InsertGame(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTakenLocked(g.Name, g.ID) {
		return apperr.Conflict("Game with name '%s' already exists.", g.Name)
	}
	m.games[g.ID] = copyGame(g)
	return nil
}

func (m *MemoryStore) ReplaceGame(ctx context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.games[g.ID]
	if !ok {
		return apperr.NotFound("Game with ID %s not found.", g.ID)
	}
	if m.nameTakenLocked(g.Name, g.ID) {
		return apperr.Conflict("Game with name '%s' already exists.", g.Name)
	}
	c := copyGame(g)
	c.CreatedAt = existing.CreatedAt
	m.games[g.ID] = c
	return nil
}

// DeleteGame removes the sessions and answers of the game explicitly.
func (m *MemoryStore) DeleteGame(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[id]; !ok {
		return apperr.NotFound("Game with ID %s not found.", id)
	}
	for sid, s := range m.sessions {
		if s.GameID == id {
			delete(m.answers, sid)
			delete(m.sessions, sid)
		}
	}
	delete(m.games, id)
	return nil
}

func (m *MemoryStore) CountGames(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games), nil
}

func (m *MemoryStore) InsertSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[s.GameID]; !ok {
		return apperr.NotFound("Game with ID %s not found.", s.GameID)
	}
	c := *s
	c.Game = nil
	c.Answers = nil
	m.sessions[s.ID] = &c
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadSessionLocked(id)
}

func (m *MemoryStore) loadSessionLocked(id uuid.UUID) (*models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound("Session with ID %s not found.", id)
	}
	c := *s
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		c.CompletedAt = &at
	}
	c.Game = copyGame(m.games[s.GameID])
	c.Answers = append([]models.Answer(nil), m.answers[id]...)
	return &c, nil
}

func (m *MemoryStore) WithSession(ctx context.Context, id uuid.UUID, fn func(tx SessionTx, s *models.Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.loadSessionLocked(id)
	if err != nil {
		return err
	}
	tx := &memTx{store: m}
	if err := fn(tx, s); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memTx buffers writes until commit; the store mutex is held throughout.
type memTx struct {
	store   *MemoryStore
	answers []models.Answer
	scores  map[uuid.UUID]models.Score
	done    map[uuid.UUID]time.Time
}

func (t *memTx) InsertAnswer(ctx context.Context, a *models.Answer) error {
	exists := func(list []models.Answer) bool {
		for _, prev := range list {
			if prev.SessionID == a.SessionID && prev.Number == a.Number {
				return true
			}
		}
		return false
	}
	if exists(t.store.answers[a.SessionID]) || exists(t.answers) {
		return apperr.Conflict("Number %d has already been answered.", a.Number)
	}
	t.answers = append(t.answers, *a)
	return nil
}

func (t *memTx) AddScore(ctx context.Context, sessionID uuid.UUID, correct bool) (models.Score, error) {
	if t.scores == nil {
		t.scores = make(map[uuid.UUID]models.Score)
	}
	sc, ok := t.scores[sessionID]
	if !ok {
		s := t.store.sessions[sessionID]
		sc = models.Score{Correct: s.ScoreCorrect, Incorrect: s.ScoreIncorrect}
	}
	if correct {
		sc.Correct++
	} else {
		sc.Incorrect++
	}
	t.scores[sessionID] = sc
	return sc, nil
}

func (t *memTx) Complete(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	if t.done == nil {
		t.done = make(map[uuid.UUID]time.Time)
	}
	t.done[sessionID] = at
	return nil
}

func (t *memTx) commit() {
	for _, a := range t.answers {
		t.store.answers[a.SessionID] = append(t.store.answers[a.SessionID], a)
	}
	for id, sc := range t.scores {
		s := t.store.sessions[id]
		s.ScoreCorrect = sc.Correct
		s.ScoreIncorrect = sc.Incorrect
	}
	for id, at := range t.done {
		at := at
		t.store.sessions[id].CompletedAt = &at
	}
}
