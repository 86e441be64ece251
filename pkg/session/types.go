// Package session manages MCP client sessions: creation, TTL expiry,
// protocol-version binding, and a stable-identity fallback for clients that
// can't persist a session ID between requests.
package session

import (
	"sync"
	"time"
)

// Session is a single client's MCP connection state.
type Session struct {
	ID              string        `json:"id"`
	ProtocolVersion string        `json:"protocol_version"`
	ClientInfo      string        `json:"client_info,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	LastSeenAt      time.Time     `json:"last_seen_at"`
	TTL             time.Duration `json:"-"`

	mu sync.RWMutex
}

// Touch refreshes the session's last-seen timestamp (thread-safe),
// extending its TTL window.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastSeenAt = time.Now()
}

// Expired reports whether the session has gone silent longer than its TTL.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.LastSeenAt) > s.TTL
}

// Clone returns a safe point-in-time copy for callers that only read.
func (s *Session) Clone() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		ID:              s.ID,
		ProtocolVersion: s.ProtocolVersion,
		ClientInfo:      s.ClientInfo,
		CreatedAt:       s.CreatedAt,
		LastSeenAt:      s.LastSeenAt,
		TTL:             s.TTL,
	}
}
