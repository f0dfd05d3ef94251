package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
		ShouldRetry:    func(error) bool { return true },
	}
}

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastRetryConfig(3), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	val, err := DoVal(context.Background(), fastRetryConfig(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("workflow run failed")
		}
		return "report", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "report", val)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetryConfig(3), func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("still down")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoVal_NonTransientNotRetried(t *testing.T) {
	cfg := fastRetryConfig(5)
	cfg.ShouldRetry = nil // default IsTransient check

	calls := 0
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("malformed bill payload")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_TransientErrorRetried(t *testing.T) {
	cfg := fastRetryConfig(2)
	cfg.ShouldRetry = nil

	calls := 0
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", NewTransientError(errors.New("dify returned 503"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := DoVal(ctx, fastRetryConfig(10), func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestComputeBackoff_Grows(t *testing.T) {
	cfg := applyDefaults(RetryConfig{JitterFraction: 0})
	d0 := computeBackoff(0, cfg)
	d1 := computeBackoff(1, cfg)
	d2 := computeBackoff(2, cfg)
	assert.Less(t, d0, d1)
	assert.Less(t, d1, d2)
}

func TestComputeBackoff_Capped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{JitterFraction: 0})
	d := computeBackoff(20, cfg)
	assert.LessOrEqual(t, d, cfg.MaxBackoff)
}
