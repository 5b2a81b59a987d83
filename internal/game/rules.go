// internal/game/rules.go
package game

import (
	"strconv"
	"strings"

	"github.com/jason-s-yu/fizzbuzz/internal/models"
)

// Compute returns the canonical answer for number: the words of every rule whose
// divisor divides number, concatenated in ascending divisor order. When no word
// applies the answer is the number itself.
func Compute(number int, rules []models.Rule) string {
	var sb strings.Builder
	for _, r := range models.SortedRules(rules) {
		if r.Divisor != 0 && number%r.Divisor == 0 {
			sb.WriteString(r.Word)
		}
	}
	result := sb.String()
	if strings.TrimSpace(result) == "" {
		return strconv.Itoa(number)
	}
	return result
}

// Validate reports whether answer matches Compute(number, rules), ignoring case
// and surrounding whitespace on both sides.
func Validate(number int, answer string, rules []models.Rule) bool {
	expected := Compute(number, rules)
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(answer))
}
