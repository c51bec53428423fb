package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)
	_, ok := s.Get("chat-1")
	assert.False(t, ok)
}

func TestAdvance_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Advance("chat-1", 100))

	reloaded, err := Open(path)
	require.NoError(t, err)
	cp, ok := reloaded.Get("chat-1")
	require.True(t, ok)
	assert.Equal(t, int64(100), cp.LastMessageID)
}

func TestAdvance_NeverRewindsProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Advance("chat-1", 100))
	require.NoError(t, s.Advance("chat-1", 50))

	cp, _ := s.Get("chat-1")
	assert.Equal(t, int64(100), cp.LastMessageID)
}

func TestSnapshot_ReturnsIndependentCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Advance("chat-1", 10))

	snap := s.Snapshot()
	delete(snap, "chat-1")
	cp, _ := s.Get("chat-1")
	assert.Equal(t, int64(10), cp.LastMessageID)
}
