// Package sse implements the server-push half of the MCP transport: a hub
// that assigns each session a monotonic event stream, replays missed events
// by Last-Event-ID, and broadcasts new events to any attached subscriber
// without blocking the publisher on slow readers.
package sse

import "time"

// Event is one server-sent event scoped to a session.
type Event struct {
	ID        uint64
	Type      string
	Data      []byte
	CreatedAt time.Time
}
