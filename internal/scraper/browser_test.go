package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErr(t *testing.T) {
	assert.NoError(t, wrapErr("click #buy", nil))

	t.Run("deadline", func(t *testing.T) {
		err := wrapErr("wait .card", fmt.Errorf("element: %w", context.DeadlineExceeded))
		var timeout *ErrTimeout
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "wait .card", timeout.Op)
		assert.True(t, IsTimeout(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("element not found", func(t *testing.T) {
		err := wrapErr("click #buy", &rod.ErrElementNotFound{})
		assert.ErrorIs(t, err, ErrElementNotFound)
		assert.False(t, IsTimeout(err))
		assert.Contains(t, err.Error(), "click #buy")
	})

	t.Run("other", func(t *testing.T) {
		cause := errors.New("target closed")
		err := wrapErr("navigate", cause)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrElementNotFound)
		assert.False(t, IsTimeout(err))
	})
}
