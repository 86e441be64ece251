package sse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndSubscribeDeliversLiveEvents(t *testing.T) {
	h := NewHub(DefaultReplayBufferSize)
	sub, err := h.Subscribe(context.Background(), "sess-1", 0)
	require.NoError(t, err)
	defer sub.Close()

	h.Publish("sess-1", "message", []byte(`{"hello":"world"}`))

	select {
	case ev := <-sub.Events:
		assert.Equal(t, uint64(1), ev.ID)
		assert.Equal(t, "message", ev.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeReplaysMissedEvents(t *testing.T) {
	h := NewHub(DefaultReplayBufferSize)
	h.Publish("sess-1", "a", []byte("1"))
	h.Publish("sess-1", "b", []byte("2"))
	h.Publish("sess-1", "c", []byte("3"))

	sub, err := h.Subscribe(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, sub.Replay, 2)
	assert.Equal(t, uint64(2), sub.Replay[0].ID)
	assert.Equal(t, uint64(3), sub.Replay[1].ID)
	assert.False(t, sub.Overflow)
}

func TestSubscribeReportsOverflowWhenRingWrapped(t *testing.T) {
	h := NewHub(4) // below DefaultReplayBufferSize, clamped up inside newSessionStream
	for i := 0; i < DefaultReplayBufferSize+10; i++ {
		h.Publish("sess-1", "tick", []byte("x"))
	}

	sub, err := h.Subscribe(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	defer sub.Close()

	assert.True(t, sub.Overflow)
}

func TestLaggedSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(DefaultReplayBufferSize)
	sub, err := h.Subscribe(context.Background(), "sess-1", 0)
	require.NoError(t, err)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Publish("sess-1", "tick", []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestCloseDetachesSubscribers(t *testing.T) {
	h := NewHub(DefaultReplayBufferSize)
	sub, err := h.Subscribe(context.Background(), "sess-1", 0)
	require.NoError(t, err)

	h.Close("sess-1")

	_, ok := <-sub.Events
	assert.False(t, ok, "channel should be closed")
	assert.Equal(t, 0, h.SubscriberCount("sess-1"))
}
