package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreTakeOnce(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	require.NoError(t, s.Put("a", "XyZ9", time.Minute))

	code, err := s.Take("a")
	require.NoError(t, err)
	assert.Equal(t, "XyZ9", code)

	_, err = s.Take("a")
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	_, err = s.Take("never")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemStoreExpiry(t *testing.T) {
	clock := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &memStore{entries: map[string]memEntry{}, now: func() time.Time { return clock }}

	require.NoError(t, s.Put("a", "code", time.Minute))
	require.NoError(t, s.Put("b", "code", time.Hour))

	clock = clock.Add(2 * time.Minute)
	_, err := s.Take("a")
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	// expired entries are swept on the next Put
	require.NoError(t, s.Put("c", "code", time.Minute))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, s.Put("d", "code", time.Minute))
	assert.Len(t, s.entries, 2)

	code, err := s.Take("b")
	require.NoError(t, err)
	assert.Equal(t, "code", code)
}
