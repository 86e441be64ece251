package sse

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultReplayBufferSize is the minimum per-session ring buffer size
// for Last-Event-ID replay.
const DefaultReplayBufferSize = 256

// subscriberBuffer is how many pending events a slow subscriber may queue
// before it is considered lagged and further events are dropped for it
// rather than blocking Publish.
const subscriberBuffer = 64

// sessionStream owns one session's replay ring buffer and its live
// subscribers. A snapshot of subscriber channels is taken under lock, then
// sends happen outside the lock so a slow reader never blocks Publish for
// everyone else.
type sessionStream struct {
	mu          sync.RWMutex
	nextID      uint64
	ring        []Event
	ringHead    int
	ringSize    int
	subscribers map[uint64]*subscriberEntry
	nextSubID   uint64
}

// subscriberEntry pairs a live subscriber's channel with a lag flag set by
// Publish when that subscriber's buffer is full, so the GET loop can surface
// a visible marker instead of silently dropping events.
type subscriberEntry struct {
	ch     chan Event
	lagged atomic.Bool
}

func newSessionStream(bufferSize int) *sessionStream {
	if bufferSize < DefaultReplayBufferSize {
		bufferSize = DefaultReplayBufferSize
	}
	return &sessionStream{
		ring:        make([]Event, bufferSize),
		subscribers: make(map[uint64]*subscriberEntry),
	}
}

// Hub owns every session's event stream.
type Hub struct {
	mu             sync.RWMutex
	streams        map[string]*sessionStream
	replayBufferSz int
}

// NewHub builds a Hub whose sessions each get a replay ring buffer of at
// least DefaultReplayBufferSize events.
func NewHub(replayBufferSize int) *Hub {
	return &Hub{
		streams:        make(map[string]*sessionStream),
		replayBufferSz: replayBufferSize,
	}
}

func (h *Hub) streamFor(sessionID string) *sessionStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams[sessionID]
	if !ok {
		s = newSessionStream(h.replayBufferSz)
		h.streams[sessionID] = s
	}
	return s
}

// Publish appends an event to a session's stream and fans it out to every
// live subscriber. A subscriber whose buffer is full stays attached but
// misses this event rather than stalling the broadcast; its lagged flag is
// set so Subscription.Lagged reports the gap.
func (h *Hub) Publish(sessionID, eventType string, data []byte) Event {
	s := h.streamFor(sessionID)

	s.mu.Lock()
	s.nextID++
	ev := Event{ID: s.nextID, Type: eventType, Data: data, CreatedAt: time.Now()}
	s.ring[s.ringHead] = ev
	s.ringHead = (s.ringHead + 1) % len(s.ring)
	if s.ringSize < len(s.ring) {
		s.ringSize++
	}
	subs := make([]*subscriberEntry, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		default:
			// Lagged subscriber; drop the event for them rather than block
			// the publisher. The GET loop surfaces this as a visible
			// "lagged" comment on its next tick, and Subscription.Overflow covers
			// the case where they reconnect entirely.
			sub.lagged.Store(true)
		}
	}
	return ev
}

// Subscription is a live handle on a session's event stream plus any
// replayed events the caller missed.
type Subscription struct {
	Replay    []Event
	Overflow  bool
	Events    <-chan Event
	sessionID string
	subID     uint64
	hub       *Hub
	entry     *subscriberEntry
}

// Close detaches the subscription from its session stream.
func (sub *Subscription) Close() {
	sub.hub.unsubscribe(sub.sessionID, sub.subID)
}

// Lagged reports whether Publish dropped at least one event for this
// subscriber since the last call, clearing the flag so each lag episode is
// reported exactly once.
func (sub *Subscription) Lagged() bool {
	return sub.entry.lagged.Swap(false)
}

// Subscribe attaches to a session's stream, returning any events after
// lastEventID from the replay buffer (Overflow=true if some were already
// evicted) plus a live channel for everything published from now on.
func (h *Hub) Subscribe(ctx context.Context, sessionID string, lastEventID uint64) (*Subscription, error) {
	s := h.streamFor(sessionID)

	s.mu.Lock()
	replay, overflow := s.replayLocked(lastEventID)
	entry := &subscriberEntry{ch: make(chan Event, subscriberBuffer)}
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = entry
	s.mu.Unlock()

	return &Subscription{
		Replay:    replay,
		Overflow:  overflow,
		Events:    entry.ch,
		sessionID: sessionID,
		subID:     id,
		hub:       h,
		entry:     entry,
	}, nil
}

// replayLocked returns every buffered event with ID > lastEventID, oldest
// first. overflow is true when the oldest buffered event already has an ID
// greater than lastEventID+1, meaning some events were evicted before the
// caller could replay them.
func (s *sessionStream) replayLocked(lastEventID uint64) ([]Event, bool) {
	if s.ringSize == 0 {
		return nil, false
	}

	oldestIdx := s.ringHead
	if s.ringSize < len(s.ring) {
		oldestIdx = 0
	}

	var out []Event
	overflow := false
	for i := 0; i < s.ringSize; i++ {
		idx := (oldestIdx + i) % len(s.ring)
		ev := s.ring[idx]
		if ev.ID <= lastEventID {
			continue
		}
		if len(out) == 0 && ev.ID > lastEventID+1 {
			overflow = true
		}
		out = append(out, ev)
	}
	return out, overflow
}

func (h *Hub) unsubscribe(sessionID string, subID uint64) {
	h.mu.RLock()
	s, ok := h.streams[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	s.mu.Lock()
	if entry, ok := s.subscribers[subID]; ok {
		delete(s.subscribers, subID)
		close(entry.ch)
	}
	s.mu.Unlock()
}

// Close removes a session's stream entirely, closing every subscriber
// channel, used when a session is torn down.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	s, ok := h.streams[sessionID]
	if ok {
		delete(h.streams, sessionID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	for id, entry := range s.subscribers {
		delete(s.subscribers, id)
		close(entry.ch)
	}
	s.mu.Unlock()
}

// SubscriberCount reports how many live subscribers a session currently
// has, for diagnostics.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	s, ok := h.streams[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// ErrUnknownSession names a session with no stream. No Hub method returns
// it: Publish and Subscribe create a session's stream on first use.
var ErrUnknownSession = fmt.Errorf("sse: unknown session")
