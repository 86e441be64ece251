// Package retry provides a shared exponential-backoff retry policy and
// circuit breaker for calls to the remote embedding facility and document
// store.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configuration constants, matching the retry contract:
// exponential backoff starting at 1s, doubling, capped at 60s, with jitter
// up to 4 retries (5 attempts total).
const (
	InitialInterval = 1 * time.Second
	MaxInterval = 60 * time.Second
	Multiplier = 2.0
	RandomizationFactor = 0.1
	MaxRetries = 4
)

// ErrNotRetryable wraps an error that Do decided not to retry, so callers
// can distinguish "gave up after retries" from "refused to retry at all".
var ErrNotRetryable = errors.New("retry: error is not retryable")

// Policy runs an operation with exponential backoff, skipping retries for
// errors classified as permanent.
type Policy struct {
	maxRetries int
	newBackoff func() backoff.BackOff
}

// NewPolicy builds the default retry policy: exponential backoff capped
// at MaxRetries retries (MaxRetries+1 attempts in total).
func NewPolicy() *Policy {
	return &Policy{
		maxRetries: MaxRetries,
		newBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = InitialInterval
			b.MaxInterval = MaxInterval
			b.Multiplier = Multiplier
			b.RandomizationFactor = RandomizationFactor
			return b
		},
	}
}

// Do runs op, retrying on retryable errors with exponential backoff until it
// succeeds, a non-retryable error is returned, ctx is done, or maxRetries is
// exhausted.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	attempt := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackoff(), uint64(p.maxRetries)), ctx)
	err := backoff.Retry(attempt, b)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return fmt.Errorf("%w: %w", ErrNotRetryable, lastErr)
	}
	return err
}

// IsRetryable classifies an error as transient (worth retrying) or
// permanent, following the same layered classification style as the
// teacher's MCP error recovery: context errors and malformed requests never
// retry, network-level failures and explicit rate-limit/server signals do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}

	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}

	msg := strings.ToLower(err.Error())
	for _, transient := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"rate limit",
		"too many requests",
		"server error",
		"503",
		"502",
		"500",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}
