package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastConfig(), nil, func() (string, error) {
		calls++
		return "payload", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "payload", result)
	assert.Equal(t, 1, calls)
}

func TestDo_TransientTwiceThenSuccess(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastConfig(), IsNetworkError, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset by peer")
		}
		return "payload", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "payload", result)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(), IsNetworkError, func() (string, error) {
		calls++
		return "", errors.New("request timeout")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
}

func TestDo_NonRetryableAbortsImmediately(t *testing.T) {
	authErr := errors.New("authentication failed")
	calls := 0
	_, err := Do(context.Background(), fastConfig(), func(err error) bool {
		return !errors.Is(err, authErr)
	}, func() (string, error) {
		calls++
		return "", authErr
	})

	require.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
	}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, cfg, IsNetworkError, func() (string, error) {
		calls++
		return "", errors.New("timeout")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", errors.New("request timeout"), true},
		{"deadline", errors.New("context deadline exceeded"), true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"bad gateway", errors.New("502 Bad Gateway"), true},
		{"cancelled", context.Canceled, false},
		{"auth", errors.New("invalid username or password"), false},
		{"format", errors.New("missing column: room"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := time.Second
	max := 10 * time.Second

	assert.Equal(t, time.Second, calculateBackoff(0, initial, max))
	assert.Equal(t, 2*time.Second, calculateBackoff(1, initial, max))
	assert.Equal(t, 4*time.Second, calculateBackoff(2, initial, max))
	assert.Equal(t, max, calculateBackoff(5, initial, max))
}
