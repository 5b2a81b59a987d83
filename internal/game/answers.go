// internal/game/answers.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/database"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/sirupsen/logrus"
)

const maxAnswerLength = 200

// SubmitAnswer records the player's answer for number within the session.
//
// Preconditions are checked in order: the session exists, it is not completed,
// its time has not run out, and number has not been answered yet. An expired
// session is marked completed before the expiration error is returned.
// Submitting the last unanswered number completes the session.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, number int, answerText string) (*models.AnswerResult, error) {
	var result models.AnswerResult
	var recorded, expired, completed *models.Session

	err := s.store.WithSession(ctx, sessionID, func(tx database.SessionTx, sess *models.Session) error {
		now := s.now()

		if sess.IsCompleted(now) {
			return apperr.InvalidOperation("This session is already completed.")
		}
		if sess.Elapsed(now) >= sess.Duration {
			if err := tx.Complete(ctx, sess.ID, now); err != nil {
				return err
			}
			sess.CompletedAt = &now
			expired = sess
			return nil
		}
		if sess.HasAnswered(number) {
			return apperr.Conflict("Number %d has already been answered.", number)
		}

		g := sess.Game
		if number < g.MinValue || number > g.MaxValue {
			return apperr.Validation("Number %d is outside the game range [%d, %d].", number, g.MinValue, g.MaxValue)
		}
		if len(answerText) > maxAnswerLength {
			return apperr.Validation("Answer must be at most %d characters.", maxAnswerLength)
		}

		correctAnswer := Compute(number, g.Rules)
		isCorrect := Validate(number, answerText, g.Rules)

		a := &models.Answer{
			ID:            uuid.New(),
			SessionID:     sess.ID,
			Number:        number,
			PlayerAnswer:  answerText,
			CorrectAnswer: correctAnswer,
			IsCorrect:     isCorrect,
			AnsweredAt:    now,
		}
		if err := tx.InsertAnswer(ctx, a); err != nil {
			return err
		}
		score, err := tx.AddScore(ctx, sess.ID, isCorrect)
		if err != nil {
			return err
		}
		sess.ScoreCorrect, sess.ScoreIncorrect = score.Correct, score.Incorrect

		if len(sess.Answers)+1 >= g.TotalNumbers() {
			if err := tx.Complete(ctx, sess.ID, now); err != nil {
				return err
			}
			sess.CompletedAt = &now
			completed = sess
		}

		recorded = sess
		result = models.AnswerResult{
			IsCorrect:       isCorrect,
			CorrectAnswer:   correctAnswer,
			PlayerAnswer:    answerText,
			ScoreCorrect:    score.Correct,
			ScoreIncorrect:  score.Incorrect,
			IsGameCompleted: sess.CompletedAt != nil,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired != nil {
		s.sessionCompleted(ctx, expired, "expired")
		return nil, apperr.InvalidOperation("Session has expired.")
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"number":     number,
		"correct":    result.IsCorrect,
	}).Debug("answer recorded")
	s.publish(ctx, s.newEvent(recorded, models.EventAnswerSubmitted, map[string]interface{}{
		"number":         number,
		"player_answer":  answerText,
		"correct_answer": result.CorrectAnswer,
		"is_correct":     result.IsCorrect,
	}))
	if completed != nil {
		s.sessionCompleted(ctx, completed, "exhausted")
	}
	return &result, nil
}
