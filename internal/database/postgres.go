// internal/database/postgres.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
)

const pgUniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore is the Postgres-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *PgStore) ListGames(ctx context.Context) ([]models.Game, error) {
	q := `
		SELECT id, name, author, min_value, max_value, created_at
		FROM games
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Author, &g.MinValue, &g.MaxValue, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.Rules = []models.Rule{}
		index[g.ID] = len(games)
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	ruleRows, err := s.pool.Query(ctx, `SELECT game_id, divisor, word FROM game_rules ORDER BY divisor`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var gameID uuid.UUID
		var r models.Rule
		if err := ruleRows.Scan(&gameID, &r.Divisor, &r.Word); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if i, ok := index[gameID]; ok {
			games[i].Rules = append(games[i].Rules, r)
		}
	}
	return games, ruleRows.Err()
}

func (s *PgStore) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return loadGame(ctx, s.pool, id)
}

func loadGame(ctx context.Context, db querier, id uuid.UUID) (*models.Game, error) {
	var g models.Game
	q := `
		SELECT id, name, author, min_value, max_value, created_at
		FROM games
		WHERE id = $1
	`
	err := db.QueryRow(ctx, q, id).Scan(&g.ID, &g.Name, &g.Author, &g.MinValue, &g.MaxValue, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Game with ID %s not found.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %v: %w", id, err)
	}

	rows, err := db.Query(ctx, `SELECT divisor, word FROM game_rules WHERE game_id = $1 ORDER BY divisor`, id)
	if err != nil {
		return nil, fmt.Errorf("load rules for game %v: %w", id, err)
	}
	defer rows.Close()
	g.Rules = []models.Rule{}
	for rows.Next() {
		var r models.Rule
		if err := rows.Scan(&r.Divisor, &r.Word); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		g.Rules = append(g.Rules, r)
	}
	return &g, rows.Err()
}

func (s *PgStore) GameNameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	q := `SELECT 1 FROM games WHERE LOWER(name) = LOWER($1) AND id <> $2 LIMIT 1`
	var tmp int
	err := s.pool.QueryRow(ctx, q, name, exclude).Scan(&tmp)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check game name: %w", err)
	}
	return true, nil
}

func (s *PgStore) InsertGame(ctx context.Context, g *models.Game) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, name, author, min_value, max_value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, q, g.ID, g.Name, g.Author, g.MinValue, g.MaxValue, g.CreatedAt); err != nil {
			return err
		}
		return insertRules(ctx, tx, g.ID, g.Rules)
	})
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, err, fmt.Sprintf("Game with name '%s' already exists.", g.Name))
	}
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func (s *PgStore) ReplaceGame(ctx context.Context, g *models.Game) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET name = $2, author = $3, min_value = $4, max_value = $5
			WHERE id = $1
		`
		ct, err := tx.Exec(ctx, q, g.ID, g.Name, g.Author, g.MinValue, g.MaxValue)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return apperr.NotFound("Game with ID %s not found.", g.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM game_rules WHERE game_id = $1`, g.ID); err != nil {
			return err
		}
		return insertRules(ctx, tx, g.ID, g.Rules)
	})
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, err, fmt.Sprintf("Game with name '%s' already exists.", g.Name))
	}
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return fmt.Errorf("failed to replace game: %w", err)
	}
	return err
}

func insertRules(ctx context.Context, tx pgx.Tx, gameID uuid.UUID, rules []models.Rule) error {
	q := `INSERT INTO game_rules (id, game_id, divisor, word) VALUES ($1, $2, $3, $4)`
	for _, r := range rules {
		if _, err := tx.Exec(ctx, q, uuid.New(), gameID, r.Divisor, r.Word); err != nil {
			return err
		}
	}
	return nil
}

// DeleteGame relies on ON DELETE CASCADE for rules, sessions and answers.
func (s *PgStore) DeleteGame(ctx context.Context, id uuid.UUID) error {
	var affected int64
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
		affected = ct.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("Game with ID %s not found.", id)
	}
	return nil
}

func (s *PgStore) CountGames(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

func (s *PgStore) InsertSession(ctx context.Context, sess *models.Session) error {
	q := `
		INSERT INTO game_sessions (id, game_id, player, duration, score_correct, score_incorrect, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			sess.ID, sess.GameID, sess.Player, sess.Duration,
			sess.ScoreCorrect, sess.ScoreIncorrect, sess.StartedAt, sess.CompletedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *PgStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return loadSession(ctx, s.pool, id, false)
}

func loadSession(ctx context.Context, db querier, id uuid.UUID, forUpdate bool) (*models.Session, error) {
	q := `
		SELECT id, game_id, player, duration, score_correct, score_incorrect, started_at, completed_at
		FROM game_sessions
		WHERE id = $1
	`
	if forUpdate {
		q += " FOR UPDATE"
	}
	var sess models.Session
	err := db.QueryRow(ctx, q, id).Scan(
		&sess.ID, &sess.GameID, &sess.Player, &sess.Duration,
		&sess.ScoreCorrect, &sess.ScoreIncorrect, &sess.StartedAt, &sess.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Session with ID %s not found.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %v: %w", id, err)
	}

	sess.Game, err = loadGame(ctx, db, sess.GameID)
	if err != nil {
		return nil, err
	}

	aq := `
		SELECT id, session_id, number, player_answer, correct_answer, is_correct, answered_at
		FROM game_answers
		WHERE session_id = $1
		ORDER BY answered_at
	`
	rows, err := db.Query(ctx, aq, id)
	if err != nil {
		return nil, fmt.Errorf("load answers for session %v: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Number, &a.PlayerAnswer, &a.CorrectAnswer, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		sess.Answers = append(sess.Answers, a)
	}
	return &sess, rows.Err()
}

// WithSession takes a row lock on the session so concurrent submissions serialize.
func (s *PgStore) WithSession(ctx context.Context, id uuid.UUID, fn func(tx SessionTx, sess *models.Session) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		sess, err := loadSession(ctx, tx, id, true)
		if err != nil {
			return err
		}
		return fn(pgSessionTx{tx: tx}, sess)
	})
}

type pgSessionTx struct {
	tx pgx.Tx
}

func (t pgSessionTx) InsertAnswer(ctx context.Context, a *models.Answer) error {
	q := `
		INSERT INTO game_answers (id, session_id, number, player_answer, correct_answer, is_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := t.tx.Exec(ctx, q, a.ID, a.SessionID, a.Number, a.PlayerAnswer, a.CorrectAnswer, a.IsCorrect, a.AnsweredAt)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, err, fmt.Sprintf("Number %d has already been answered.", a.Number))
	}
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (t pgSessionTx) AddScore(ctx context.Context, sessionID uuid.UUID, correct bool) (models.Score, error) {
	q := `
		UPDATE game_sessions SET score_incorrect = score_incorrect + 1
		WHERE id = $1
		RETURNING score_correct, score_incorrect
	`
	if correct {
		q = `
			UPDATE game_sessions SET score_correct = score_correct + 1
			WHERE id = $1
			RETURNING score_correct, score_incorrect
		`
	}
	var sc models.Score
	if err := t.tx.QueryRow(ctx, q, sessionID).Scan(&sc.Correct, &sc.Incorrect); err != nil {
		return sc, fmt.Errorf("update score: %w", err)
	}
	return sc, nil
}

func (t pgSessionTx) Complete(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	if _, err := t.tx.Exec(ctx, `UPDATE game_sessions SET completed_at = $2 WHERE id = $1`, sessionID, at); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}
