package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableClassification(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("connection reset by peer")))
	assert.True(t, IsRetryable(errors.New("429 too many requests")))
	assert.False(t, IsRetryable(errors.New("invalid request: missing field")))
	assert.True(t, IsRetryable(&net.DNSError{IsTimeout: false}))
}

func TestPolicyDoRetriesTransientThenSucceeds(t *testing.T) {
	p := NewPolicy()
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicyDoStopsOnPermanentError(t *testing.T) {
	p := NewPolicy()
	calls := 0
	permanent := errors.New("invalid request")
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, OpenDuration: 50 * time.Millisecond, HalfOpenSuccesses: 1})

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.Failure()
	}
	assert.Equal(t, StateClosed, b.CurrentState())

	require.NoError(t, b.Allow())
	b.Failure()
	assert.Equal(t, StateOpen, b.CurrentState())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, OpenDuration: 10 * time.Millisecond, HalfOpenSuccesses: 2})

	require.NoError(t, b.Allow())
	b.Failure()
	assert.Equal(t, StateOpen, b.CurrentState())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())
	b.Success()
	assert.Equal(t, StateHalfOpen, b.CurrentState())

	require.NoError(t, b.Allow())
	b.Success()
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreakerDoWiresSuccessAndFailure(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())
	err := b.Do(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.CurrentState())

	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	}
	assert.Equal(t, StateOpen, b.CurrentState())
}
