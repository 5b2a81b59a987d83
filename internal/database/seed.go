// internal/database/seed.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	log "github.com/sirupsen/logrus"
)

// Seed inserts the games listed in the JSON file at path, but only into an empty store.
// A missing file is not an error. It returns the number of games inserted.
func Seed(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("seed file not found at path: %s", path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var games []models.Game
	if err := json.Unmarshal(data, &games); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(games) == 0 {
		log.Debug("no valid game data found in the seed file")
		return 0, nil
	}

	n, err := store.CountGames(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Debug("games already exist, skipping seeding")
		return 0, nil
	}

	now := time.Now().UTC()
	for i := range games {
		g := &games[i]
		g.ID = uuid.New()
		g.CreatedAt = now
		if err := store.InsertGame(ctx, g); err != nil {
			return i, fmt.Errorf("seed game %q: %w", g.Name, err)
		}
	}
	log.Infof("seeded %d games", len(games))
	return len(games), nil
}
