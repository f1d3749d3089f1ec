package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	cause := errors.New("still failing")
	calls := 0
	err := Retry(context.Background(), fastRetry(2), func() error {
		calls++
		return cause
	})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 2, calls)
}

func TestRetry_ShouldRetryStopsEarly(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastRetry(5)
	cfg.ShouldRetry = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return permanent
	})

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetry(3), func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult(t *testing.T) {
	got, err := RetryWithResult(context.Background(), fastRetry(1), func() (string, error) {
		return "mock://exports/a.csv", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "mock://exports/a.csv", got)
}

func TestCalculateDelay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(cfg, 0))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(cfg, 1))
	assert.Equal(t, 300*time.Millisecond, calculateDelay(cfg, 2))
}

func TestUUIDs(t *testing.T) {
	assert.True(t, IsValidUUID(GenerateRequestID()))
	assert.True(t, IsValidUUID(GenerateExportID()))
	assert.NotEqual(t, GenerateExportID(), GenerateExportID())
	assert.False(t, IsValidUUID("../../etc/passwd"))
}
