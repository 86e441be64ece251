package retry

import (
	"errors"
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Allow when the breaker is open and the cooldown
// has not yet elapsed.
var ErrCircuitOpen = errors.New("retry: circuit breaker is open")

// BreakerConfig controls when the breaker trips and how long it stays open.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that trips the breaker open.
	FailureThreshold int
	// OpenDuration is how long the breaker stays open before allowing a
	// single half-open probe.
	OpenDuration time.Duration
	// HalfOpenSuccesses is the number of consecutive successful probes
	// required to close the breaker again.
	HalfOpenSuccesses int
}

// DefaultBreakerConfig matches the retry contract: trip after 5 consecutive
// failures, cool down for 5 minutes, close again on the first clean probe.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:  5,
		OpenDuration:      5 * time.Minute,
		HalfOpenSuccesses: 1,
	}
}

// Breaker is a small closed/open/half-open state machine guarding a single
// downstream dependency (the embedding facility or the document store).
// No example repo in the corpus wires an actual circuit-breaker library —
// see DESIGN.md for why this is hand-rolled rather than imported.
type Breaker struct {
	cfg BreakerConfig

	mu              sync.Mutex
	state           State
	consecutiveFail int
	halfOpenOK      int
	openedAt        time.Time
}

// NewBreaker builds a Breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a call may proceed. When the breaker is open and the
// cooldown has elapsed, it transitions to half-open and allows exactly one
// probe through; further calls are rejected until that probe reports back
// via Success or Failure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.OpenDuration {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.halfOpenOK = 0
		return nil
	case StateHalfOpen:
		// Only one probe in flight at a time; reject concurrent callers.
		return ErrCircuitOpen
	default:
		return nil
	}
}

// Success records a successful call, closing the breaker from half-open
// once enough consecutive probes have succeeded, and resetting the failure
// count in the closed state.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.halfOpenOK++
		if b.halfOpenOK >= b.cfg.HalfOpenSuccesses {
			b.state = StateClosed
			b.consecutiveFail = 0
		}
	case StateClosed:
		b.consecutiveFail = 0
	}
}

// Failure records a failed call, tripping the breaker open once the
// configured failure threshold is reached, or immediately re-opening a
// failed half-open probe.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = time.Now()
	case StateClosed:
		b.consecutiveFail++
		if b.consecutiveFail >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.openedAt = time.Now()
		}
	}
}

// CurrentState returns the breaker's current state for diagnostics.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs op if the breaker allows it, recording success/failure and
// translating a rejected call into ErrCircuitOpen.
func (b *Breaker) Do(op func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := op(); err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}
