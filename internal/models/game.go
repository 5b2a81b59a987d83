// internal/models/game.go
package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Game is a named rule set bound to an inclusive numeric range.
type Game struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Author    string    `json:"author"`
	MinValue  int       `json:"minValue"`
	MaxValue  int       `json:"maxValue"`
	CreatedAt time.Time `json:"createdAt"`
	Rules     []Rule    `json:"rules"`
}

// Rule appends Word to the answer of every number divisible by Divisor.
type Rule struct {
	Divisor int    `json:"divisor"`
	Word    string `json:"word"`
}

// TotalNumbers is the size of the game's range.
func (g *Game) TotalNumbers() int {
	return g.MaxValue - g.MinValue + 1
}

// SortedRules returns a copy of the rules ordered by ascending divisor.
func SortedRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Divisor < out[j].Divisor
	})
	return out
}

// GameRequest is the create/update payload. Rules are replaced wholesale on update.
type GameRequest struct {
	Name     string `json:"name"`
	Author   string `json:"author"`
	MinValue int    `json:"minValue"`
	MaxValue int    `json:"maxValue"`
	Rules    []Rule `json:"rules"`
}
