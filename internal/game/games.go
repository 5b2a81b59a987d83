// internal/game/games.go
package game

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
)

const (
	maxNameLength = 100
	maxWordLength = 50
)

func (s *Service) ListGames(ctx context.Context) ([]models.Game, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	for i := range games {
		games[i].Rules = models.SortedRules(games[i].Rules)
	}
	return games, nil
}

func (s *Service) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	g, err := s.store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Rules = models.SortedRules(g.Rules)
	return g, nil
}

func (s *Service) CreateGame(ctx context.Context, req models.GameRequest) (*models.Game, error) {
	if err := validateGameFields(req); err != nil {
		return nil, err
	}
	taken, err := s.store.GameNameTaken(ctx, req.Name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Game with name '%s' already exists.", req.Name)
	}
	if err := validateGameRules(req); err != nil {
		return nil, err
	}

	g := &models.Game{
		ID:        uuid.New(),
		Name:      req.Name,
		Author:    req.Author,
		MinValue:  req.MinValue,
		MaxValue:  req.MaxValue,
		CreatedAt: s.now(),
		Rules:     models.SortedRules(req.Rules),
	}
	if err := s.store.InsertGame(ctx, g); err != nil {
		return nil, err
	}
	s.log.WithField("game_id", g.ID).Infof("created game %q", g.Name)
	return g, nil
}

// UpdateGame overwrites the game and replaces its whole rule set.
func (s *Service) UpdateGame(ctx context.Context, id uuid.UUID, req models.GameRequest) (*models.Game, error) {
	existing, err := s.store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateGameFields(req); err != nil {
		return nil, err
	}
	taken, err := s.store.GameNameTaken(ctx, req.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Game with name '%s' already exists.", req.Name)
	}
	if err := validateGameRules(req); err != nil {
		return nil, err
	}

	existing.Name = req.Name
	existing.Author = req.Author
	existing.MinValue = req.MinValue
	existing.MaxValue = req.MaxValue
	existing.Rules = models.SortedRules(req.Rules)
	if err := s.store.ReplaceGame(ctx, existing); err != nil {
		return nil, err
	}
	s.log.WithField("game_id", id).Infof("updated game %q", existing.Name)
	return existing, nil
}

// DeleteGame removes the game along with its rules, sessions and answers.
func (s *Service) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteGame(ctx, id); err != nil {
		return err
	}
	s.log.WithField("game_id", id).Info("deleted game")
	return nil
}

func validateGameFields(req models.GameRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperr.Validation("Name is required.")
	}
	if len(req.Name) > maxNameLength {
		return apperr.Validation("Name must be at most %d characters.", maxNameLength)
	}
	if strings.TrimSpace(req.Author) == "" {
		return apperr.Validation("Author is required.")
	}
	if len(req.Author) > maxNameLength {
		return apperr.Validation("Author must be at most %d characters.", maxNameLength)
	}
	return nil
}

func validateGameRules(req models.GameRequest) error {
	if req.MinValue < 1 || req.MaxValue < 1 {
		return apperr.Validation("MinValue and MaxValue must be at least 1.")
	}
	if req.MinValue > math.MaxInt32 || req.MaxValue > math.MaxInt32 {
		return apperr.Validation("MinValue and MaxValue must be at most %d.", math.MaxInt32)
	}
	if req.MinValue > req.MaxValue {
		return apperr.Validation("MinValue must be less than or equal to MaxValue.")
	}
	if len(req.Rules) == 0 {
		return apperr.Validation("At least one rule is required.")
	}
	for _, r := range req.Rules {
		if r.Divisor <= 1 {
			return apperr.Validation("All divisors must be greater than 1.")
		}
	}
	for _, r := range req.Rules {
		if r.Divisor < req.MinValue || r.Divisor > req.MaxValue {
			return apperr.Validation("All divisors must be within the specified range.")
		}
	}
	seen := make(map[int]bool, len(req.Rules))
	for _, r := range req.Rules {
		if seen[r.Divisor] {
			return apperr.Validation("Duplicate rules found. Each divisor must be unique.")
		}
		seen[r.Divisor] = true
	}
	for _, r := range req.Rules {
		if r.Word == "" {
			return apperr.Validation("Every rule needs a word.")
		}
		if len(r.Word) > maxWordLength {
			return apperr.Validation("Rule words must be at most %d characters.", maxWordLength)
		}
	}
	return nil
}
