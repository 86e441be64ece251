package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetRoundTrip(t *testing.T) {
	m := NewManager(Config{})
	s, err := m.Create("2025-06-18", "test-client/1.0")
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestGetUnknownSessionReturnsNotFound(t *testing.T) {
	m := NewManager(Config{})
	_, err := m.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidateRejectsProtocolVersionMismatch(t *testing.T) {
	m := NewManager(Config{})
	s, err := m.Create("2025-06-18", "client")
	require.NoError(t, err)

	_, err = m.Validate(s.ID, "2024-11-05")
	assert.ErrorIs(t, err, ErrProtocolVersionMismatch)

	got, err := m.Validate(s.ID, "2025-06-18")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestCreateRejectsOverCapacity(t *testing.T) {
	m := NewManager(Config{MaxSessions: 1})
	_, err := m.Create("v1", "a")
	require.NoError(t, err)

	_, err = m.Create("v1", "b")
	assert.ErrorIs(t, err, ErrMaxSessions)
}

func TestStableIdentityIsDeterministicAndRoundTrips(t *testing.T) {
	m := NewManager(Config{})
	s1, err := m.GetOrCreateStable("client-a", "agent/1.0", "v1")
	require.NoError(t, err)

	s2, err := m.GetOrCreateStable("client-a", "agent/1.0", "v1")
	require.NoError(t, err)
	assert.Equal(t, s1.ID, s2.ID)

	s3, err := m.GetOrCreateStable("client-b", "agent/1.0", "v1")
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s3.ID)
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	m := NewManager(Config{TTL: 10 * time.Millisecond})
	s, err := m.Create("v1", "client")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweeperRemovesExpiredSessions(t *testing.T) {
	m := NewManager(Config{TTL: 5 * time.Millisecond})
	_, err := m.Create("v1", "client")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartSweeper(ctx, 10*time.Millisecond)
	defer m.StopSweeper()

	assert.Eventually(t, func() bool {
		return m.Count() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestDeleteRemovesSession(t *testing.T) {
	m := NewManager(Config{})
	s, err := m.Create("v1", "client")
	require.NoError(t, err)

	require.NoError(t, m.Delete(s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.Delete(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
