// Package checkpoint persists per-chat backfill progress to a JSON file so
// an interrupted backfill resumes without re-scanning already-ingested
// history.
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rtyshyk/telegram-rag/internal/errors"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// Store is a single-process, lock-guarded JSON checkpoint file. Writes are
// monotonic: a write with a LastMessageID lower than the stored value is a
// no-op, so a crashed-and-restarted ingest never rewinds progress.
type Store struct {
	path string
	mu   sync.Mutex
	data *types.BackfillCheckpoint
}

// Open loads path if it exists, or starts from an empty checkpoint set. The
// file is read exactly once; all subsequent access goes through the
// in-memory copy guarded by mu.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: types.NewBackfillCheckpoint()}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Permanent("checkpoint_read_failed", "failed to read checkpoint file", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, s.data); err != nil {
		return nil, errors.Permanent("checkpoint_parse_failed", "failed to parse checkpoint file", err)
	}
	return s, nil
}

// Get returns the stored checkpoint for chatID, and whether one exists.
func (s *Store) Get(chatID string) (types.ChatCheckpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.data.Chats[chatID]
	return cp, ok
}

// Advance updates chatID's checkpoint to lastMessageID, provided it moves
// progress forward, then persists the full checkpoint set atomically.
func (s *Store) Advance(chatID string, lastMessageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data.Chats[chatID]
	if ok && lastMessageID <= existing.LastMessageID {
		return nil
	}
	s.data.Chats[chatID] = types.ChatCheckpoint{LastMessageID: lastMessageID, UpdatedAt: time.Now()}
	return s.persistLocked()
}

// persistLocked writes the checkpoint set to a temp file and renames it into
// place, so a crash mid-write never leaves a truncated checkpoint file.
func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Permanent("checkpoint_marshal_failed", "failed to marshal checkpoint", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "checkpoint-*.tmp")
	if err != nil {
		return errors.Transient("checkpoint_write_failed", "failed to create temp checkpoint file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Transient("checkpoint_write_failed", "failed to write temp checkpoint file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Transient("checkpoint_write_failed", "failed to close temp checkpoint file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.Transient("checkpoint_rename_failed", "failed to rename checkpoint file into place", err)
	}
	return nil
}

// Snapshot returns a copy of every stored chat checkpoint; changing the
// returned map does not affect the store.
func (s *Store) Snapshot() map[string]types.ChatCheckpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.ChatCheckpoint, len(s.data.Chats))
	for k, v := range s.data.Chats {
		out[k] = v
	}
	return out
}
