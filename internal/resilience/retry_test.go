package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(eris.New("flaky"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return NewPermanentError(eris.New("user not found"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(err))
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		calls++
		return NewTransientError(eris.New("still down"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ReturnsValue(t *testing.T) {
	val, err := DoVal(context.Background(), fastConfig(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestDoVal_HonorsRetryAfterHint(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 2

	calls := 0
	start := time.Now()
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, NewRateLimitedError(eris.New("429"), 30*time.Millisecond)
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	// The single sleep must have honored the server-provided delay, not the
	// 1ms configured backoff.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastConfig(), func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(eris.New("flaky"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(NewTransientError(eris.New("x"), 429)))
	assert.True(t, IsTransient(eris.New("read tcp: i/o timeout")))
	assert.False(t, IsTransient(eris.New("invalid input")))
	// Permanent beats transient anywhere in the chain.
	assert.False(t, IsTransient(NewPermanentError(NewTransientError(eris.New("x"), 503))))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestRetryAfterHint(t *testing.T) {
	assert.Equal(t, time.Duration(0), RetryAfterHint(eris.New("plain")))
	assert.Equal(t, 5*time.Second, RetryAfterHint(NewRateLimitedError(eris.New("429"), 5*time.Second)))
}
