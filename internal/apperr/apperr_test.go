package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", NotFound("Game with ID %d not found.", 7))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindConflict, KindOf(Wrap(KindConflict, errors.New("23505"), "taken")))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindTimeout, KindOf(context.Canceled))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnexpected, KindOf(nil))

	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(nil, KindUnexpected))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Game with ID 7 not found.", NotFound("Game with ID %d not found.", 7).Error())

	cause := errors.New("duplicate key")
	err := Wrap(KindConflict, cause, "taken")
	assert.Equal(t, "taken: duplicate key", err.Error())
	assert.ErrorIs(t, err, cause)
}
