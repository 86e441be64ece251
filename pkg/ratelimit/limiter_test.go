package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveBudgets(t *testing.T) {
	_, err := New(Config{RequestsPerMinute: 0, TokensPerMinute: 1000})
	require.Error(t, err)

	_, err = New(Config{RequestsPerMinute: 10, TokensPerMinute: 0})
	require.Error(t, err)
}

func TestWaitForCapacityGrantsWithinBurst(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 60, TokensPerMinute: 6000})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, l.WaitForCapacity(ctx, 1000))
}

func TestWaitForCapacityRejectsOversizedEstimate(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 60, TokensPerMinute: 1000})
	require.NoError(t, err)

	err = l.WaitForCapacity(context.Background(), 5000)
	assert.Error(t, err)
}

func TestWaitForCapacityHonorsContextCancellation(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 1, TokensPerMinute: 1})
	require.NoError(t, err)

	// Drain the request bucket's single burst slot.
	require.NoError(t, l.WaitForCapacity(context.Background(), 0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = l.WaitForCapacity(ctx, 0)
	assert.Error(t, err)
}

func TestReconfigureAdjustsBuckets(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 10, TokensPerMinute: 1000})
	require.NoError(t, err)

	require.NoError(t, l.Reconfigure(Config{RequestsPerMinute: 20, TokensPerMinute: 2000}))

	snap := l.Inspect()
	assert.GreaterOrEqual(t, snap.RequestsAvailable, 0.0)
	assert.GreaterOrEqual(t, snap.TokensAvailable, 0.0)
	assert.Equal(t, 20, l.requests.Burst())
	assert.Equal(t, 2000, l.tokens.Burst())
	assert.InDelta(t, 20.0/60.0, float64(l.requests.Limit()), 1e-9)
	assert.InDelta(t, 2000.0/60.0, float64(l.tokens.Limit()), 1e-9)
}
