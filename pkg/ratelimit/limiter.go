// Package ratelimit throttles outbound embedding-API traffic against two
// independent request- and token-per-minute budgets.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config describes the steady-state budget for a remote API account.
type Config struct {
	RequestsPerMinute int
	TokensPerMinute   int
}

// Limiter gates calls against a requests-per-minute bucket and a
// tokens-per-minute bucket at once. A call only proceeds once both buckets
// have capacity; either bucket may block the caller.
type Limiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter

	mu  sync.RWMutex
	cfg Config
}

// New builds a Limiter whose buckets refill continuously at cfg's
// per-minute rates and whose burst equals one minute of budget, so a single
// call never has to pay for more than its own request.
func New(cfg Config) (*Limiter, error) {
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("ratelimit: requests per minute must be positive, got %d", cfg.RequestsPerMinute)
	}
	if cfg.TokensPerMinute <= 0 {
		return nil, fmt.Errorf("ratelimit: tokens per minute must be positive, got %d", cfg.TokensPerMinute)
	}
	return &Limiter{
		requests: rate.NewLimiter(perSecond(cfg.RequestsPerMinute), cfg.RequestsPerMinute),
		tokens:   rate.NewLimiter(perSecond(cfg.TokensPerMinute), cfg.TokensPerMinute),
		cfg:      cfg,
	}, nil
}

func perSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}

// WaitForCapacity blocks until both the request bucket has room for one call
// and the token bucket has room for estimatedTokens, or ctx is done first.
// A request estimated above the token burst can never succeed and returns an
// error immediately rather than blocking forever.
func (l *Limiter) WaitForCapacity(ctx context.Context, estimatedTokens int) error {
	if estimatedTokens < 0 {
		estimatedTokens = 0
	}

	l.mu.RLock()
	burst := l.cfg.TokensPerMinute
	l.mu.RUnlock()
	if estimatedTokens > burst {
		return fmt.Errorf("ratelimit: estimated tokens %d exceed bucket burst %d", estimatedTokens, burst)
	}

	if err := l.requests.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit: waiting for request capacity: %w", err)
	}
	if estimatedTokens == 0 {
		return nil
	}
	if err := l.tokens.WaitN(ctx, estimatedTokens); err != nil {
		return fmt.Errorf("ratelimit: waiting for token capacity: %w", err)
	}
	return nil
}

// Reconfigure swaps in new per-minute budgets, adjusting limit and burst of
// both buckets in place. Tokens already reserved are unaffected.
func (l *Limiter) Reconfigure(cfg Config) error {
	if cfg.RequestsPerMinute <= 0 || cfg.TokensPerMinute <= 0 {
		return fmt.Errorf("ratelimit: per-minute budgets must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	l.requests.SetLimit(perSecond(cfg.RequestsPerMinute))
	l.requests.SetBurst(cfg.RequestsPerMinute)
	l.tokens.SetLimit(perSecond(cfg.TokensPerMinute))
	l.tokens.SetBurst(cfg.TokensPerMinute)
	return nil
}

// Snapshot reports the tokens currently available in each bucket, for
// health/diagnostics endpoints.
type Snapshot struct {
	RequestsAvailable float64
	TokensAvailable   float64
	CheckedAt         time.Time
}

// Inspect returns a point-in-time view of bucket fill levels.
func (l *Limiter) Inspect() Snapshot {
	now := time.Now()
	return Snapshot{
		RequestsAvailable: l.requests.TokensAt(now),
		TokensAvailable:   l.tokens.TokensAt(now),
		CheckedAt:         now,
	}
}
