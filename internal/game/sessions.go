// internal/game/sessions.go
package game

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/database"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/sirupsen/logrus"
)

func (s *Service) newEvent(sess *models.Session, typ string, payload map[string]interface{}) models.SessionEvent {
	return models.SessionEvent{
		ID:        uuid.New(),
		SessionID: sess.ID,
		GameID:    sess.GameID,
		Type:      typ,
		Payload:   payload,
		Timestamp: s.now().UnixMilli(),
	}
}

func (s *Service) StartSession(ctx context.Context, req models.StartSessionRequest) (*models.SessionResponse, error) {
	g, err := s.store.GetGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	if req.Duration <= 0 {
		return nil, apperr.Validation("Duration must be greater than 0 seconds.")
	}
	if strings.TrimSpace(req.Player) == "" {
		return nil, apperr.Validation("Player is required.")
	}
	if len(req.Player) > maxNameLength {
		return nil, apperr.Validation("Player must be at most %d characters.", maxNameLength)
	}

	sess := &models.Session{
		ID:        uuid.New(),
		GameID:    g.ID,
		Player:    req.Player,
		Duration:  req.Duration,
		StartedAt: s.now(),
		Game:      g,
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"game_id":    g.ID,
		"player":     sess.Player,
	}).Info("session started")
	s.publish(ctx, s.newEvent(sess, models.EventSessionStarted, map[string]interface{}{
		"player":   sess.Player,
		"duration": sess.Duration,
	}))

	resp := s.toResponse(sess)
	return &resp, nil
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionResponse, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(sess)
	return &resp, nil
}

func (s *Service) toResponse(sess *models.Session) models.SessionResponse {
	return models.SessionResponse{
		SessionID:   sess.ID,
		GameID:      sess.GameID,
		Game:        sess.Game.Name,
		Player:      sess.Player,
		Duration:    sess.Duration,
		StartedAt:   sess.StartedAt,
		CompletedAt: sess.CompletedAt,
		IsCompleted: sess.IsCompleted(s.now()),
		Rules:       models.SortedRules(sess.Game.Rules),
	}
}

// ObserveAndFinalize derives the live state of a session. It is a command, not a
// query: if the session has run out of time or numbers and is not yet marked
// completed, completedAt is persisted as part of the call. While the session is
// open the returned number is drawn at random from the unanswered ones on every
// call, so two observations may serve different numbers.
func (s *Service) ObserveAndFinalize(ctx context.Context, id uuid.UUID) (*models.SessionState, error) {
	var state models.SessionState
	var finalized *models.Session

	err := s.store.WithSession(ctx, id, func(tx database.SessionTx, sess *models.Session) error {
		now := s.now()

		timeRemaining := sess.Duration - sess.Elapsed(now)
		if timeRemaining < 0 {
			timeRemaining = 0
		}

		g := sess.Game
		used := answeredInRange(sess.Answers, g.MinValue, g.MaxValue)
		remaining := g.TotalNumbers() - len(used)

		isExhausted := remaining <= 0
		isTimeUp := timeRemaining <= 0
		isCompleted := sess.IsCompleted(now) || isTimeUp || isExhausted

		if isCompleted && sess.CompletedAt == nil {
			if err := tx.Complete(ctx, sess.ID, now); err != nil {
				return err
			}
			sess.CompletedAt = &now
			finalized = sess
		}

		state = models.SessionState{
			IsExhausted:    isExhausted,
			IsCompleted:    isCompleted,
			ScoreCorrect:   sess.ScoreCorrect,
			ScoreIncorrect: sess.ScoreIncorrect,
			TotalNumbers:   g.TotalNumbers(),
			TotalAnswers:   len(sess.Answers),
			TimeRemaining:  timeRemaining,
		}
		if !isCompleted {
			n := nthUnanswered(g.MinValue, used, s.picker.Intn(remaining))
			state.Number = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if finalized != nil {
		s.sessionCompleted(ctx, finalized, "observed")
	}
	return &state, nil
}

// EndSession marks the session completed if it is not already and returns the scorecard.
func (s *Service) EndSession(ctx context.Context, id uuid.UUID) (*models.SessionResult, error) {
	var result models.SessionResult
	var finalized *models.Session

	err := s.store.WithSession(ctx, id, func(tx database.SessionTx, sess *models.Session) error {
		now := s.now()
		if !sess.IsCompleted(now) {
			if err := tx.Complete(ctx, sess.ID, now); err != nil {
				return err
			}
			sess.CompletedAt = &now
			finalized = sess
		}

		total := sess.ScoreCorrect + sess.ScoreIncorrect
		accuracy := 0.0
		if total > 0 {
			accuracy = math.RoundToEven(float64(sess.ScoreCorrect)/float64(total)*100) / 100
		}
		result = models.SessionResult{
			Game:           sess.Game.Name,
			Player:         sess.Player,
			Duration:       sess.Duration,
			ScoreCorrect:   sess.ScoreCorrect,
			ScoreIncorrect: sess.ScoreIncorrect,
			TotalNumbers:   sess.Game.TotalNumbers(),
			TotalAnswers:   total,
			Accuracy:       accuracy,
			StartedAt:      sess.StartedAt,
			CompletedAt:    sess.CompletedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if finalized != nil {
		s.sessionCompleted(ctx, finalized, "ended")
	}
	return &result, nil
}

func (s *Service) sessionCompleted(ctx context.Context, sess *models.Session, reason string) {
	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"reason":     reason,
	}).Info("session completed")
	s.publish(ctx, s.newEvent(sess, models.EventSessionCompleted, map[string]interface{}{
		"reason":          reason,
		"score_correct":   sess.ScoreCorrect,
		"score_incorrect": sess.ScoreIncorrect,
	}))
}

// answeredInRange returns the distinct answered numbers within [min, max], ascending.
func answeredInRange(answers []models.Answer, min, max int) []int {
	seen := make(map[int]bool, len(answers))
	out := make([]int, 0, len(answers))
	for _, a := range answers {
		if a.Number < min || a.Number > max || seen[a.Number] {
			continue
		}
		seen[a.Number] = true
		out = append(out, a.Number)
	}
	sort.Ints(out)
	return out
}

// nthUnanswered maps k to the k-th (zero-based) number from min upward that is
// not in used. used must be sorted ascending and hold only numbers >= min.
// The range itself is never materialized.
func nthUnanswered(min int, used []int, k int) int {
	n := min + k
	for _, u := range used {
		if u > n {
			break
		}
		n++
	}
	return n
}
