package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session ID is unknown or has expired.
var ErrNotFound = errors.New("session: not found")

// ErrMaxSessions is returned when the manager is at its configured session
// cap and a new session is requested.
var ErrMaxSessions = errors.New("session: maximum concurrent sessions reached")

// ErrProtocolVersionMismatch is returned when a request's protocol version
// doesn't match the version the session was created with.
var ErrProtocolVersionMismatch = errors.New("session: protocol version mismatch")

// DefaultTTL is how long a session may go silent before the sweeper reaps
// it.
const DefaultTTL = 30 * time.Minute

// DefaultSweepInterval is how often the sweeper goroutine scans for expired
// sessions.
const DefaultSweepInterval = time.Minute

// Manager owns every live session in memory, keyed by session ID.
type Manager struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// Config tunes session lifetime and capacity.
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// NewManager creates a session manager with the given limits. A zero TTL
// falls back to DefaultTTL and a zero MaxSessions means an unbounded session
// count. SweepInterval is not read here; the sweeper runs at the interval
// passed to StartSweeper.
func NewManager(cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		logger:      slog.Default(),
	}
}

// Create allocates a new session bound to protocolVersion, returning
// ErrMaxSessions once the configured cap is reached.
func (m *Manager) Create(protocolVersion, clientInfo string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrMaxSessions
	}

	now := time.Now()
	s := &Session{
		ID:              uuid.New().String(),
		ProtocolVersion: protocolVersion,
		ClientInfo:      clientInfo,
		CreatedAt:       now,
		LastSeenAt:      now,
		TTL:             m.ttl,
	}
	m.sessions[s.ID] = s
	return s, nil
}

// Get retrieves a live, unexpired session by ID and bumps its last-seen
// timestamp.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Validate checks that an incoming request's protocol version matches the
// session it was created with, per the protocol-version guard.
func (m *Manager) Validate(id, protocolVersion string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if s.ProtocolVersion != protocolVersion {
		return nil, fmt.Errorf("%w: session has %q, request has %q", ErrProtocolVersionMismatch, s.ProtocolVersion, protocolVersion)
	}
	return s, nil
}

// StableIdentity derives a deterministic pseudo-session-id from a client
// identifier and user agent, for clients that can't retain a Mcp-Session-Id
// header between requests. Hashes the pair with SHA-256 and formats the
// digest as a UUID, so the id passes the same format check as a random
// session id; never used to authenticate, only to give a stateless client a
// stable bucket.
func StableIdentity(clientID, userAgent string) string {
	return uuid.NewHash(sha256.New(), uuid.Nil, []byte(clientID+"|"+userAgent), 8).String()
}

// GetOrCreateStable looks up a session by its stable-identity derived ID
// creating one if absent, for clients relying on the fallback path.
func (m *Manager) GetOrCreateStable(clientID, userAgent, protocolVersion string) (*Session, error) {
	id := StableIdentity(clientID, userAgent)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok && !s.Expired(time.Now()) {
		s.Touch()
		return s, nil
	}

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrMaxSessions
	}

	now := time.Now()
	s := &Session{
		ID:              id,
		ProtocolVersion: protocolVersion,
		ClientInfo:      userAgent,
		CreatedAt:       now,
		LastSeenAt:      now,
		TTL:             m.ttl,
	}
	m.sessions[id] = s
	return s, nil
}

// Delete removes a session (explicit client teardown via DELETE /mcp).
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// List returns a snapshot of every live session.
func (m *Manager) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out
}

// Count returns the number of currently tracked sessions (including ones
// that have expired but haven't been swept yet).
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper launches a background goroutine that periodically reaps
// expired sessions. Calling StartSweeper on an already-running manager is a
// no-op.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if m.cancel != nil {
		return
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.sweepLoop(ctx, interval)
}

// StopSweeper halts the sweeper goroutine and waits for it to exit.
func (m *Manager) StopSweeper() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		<-m.done
	}
	m.cancel = nil
	m.done = nil
}

func (m *Manager) sweepLoop(ctx context.Context, interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := m.sweep()
			if n > 0 {
				m.logger.Debug("session: swept expired sessions", "count", n)
			}
		}
	}
}

func (m *Manager) sweep() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
