package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/require"
)

// TestNewClient verifies API key resolution order and model defaulting.
func TestNewClient(t *testing.T) {
	t.Run("explicit key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		c, err := NewClient("sk-explicit", "")
		require.NoError(t, err)
		require.Equal(t, anthropic.Model(DefaultModel), c.model)
	})

	t.Run("env key wins", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-env")
		_, err := NewClient("sk-explicit", "claude-haiku-4-5")
		require.NoError(t, err)
	})

	t.Run("no key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		_, err := NewClient("", "")
		require.ErrorIs(t, err, errAPIKeyRequired)
	})

	t.Run("custom model", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-env")
		c, err := NewClient("", "claude-haiku-4-5")
		require.NoError(t, err)
		require.Equal(t, anthropic.Model("claude-haiku-4-5"), c.model)
	})
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// TestIsRetryable pins the retry classification.
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network timeout", timeoutErr{}, true},
		{"rate limited", &anthropic.Error{StatusCode: 429}, true},
		{"overloaded", &anthropic.Error{StatusCode: 529}, true},
		{"server error", &anthropic.Error{StatusCode: 500}, true},
		{"bad request", &anthropic.Error{StatusCode: 400}, false},
		{"auth failure", &anthropic.Error{StatusCode: 401}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}
