package checkpoint

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint Store for tests and single-process
// development runs.
type MemoryStore struct {
	mu    sync.Mutex
	snaps map[string]*Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*Snapshot)}
}

// Put saves a new snapshot for the thread, incrementing its version.
func (s *MemoryStore) Put(_ context.Context, threadID string, state json.RawMessage) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := 1
	if prev, ok := s.snaps[threadID]; ok {
		version = prev.Version + 1
	}

	snap := &Snapshot{
		ThreadID: threadID,
		Version:  version,
		State:    append(json.RawMessage(nil), state...),
		SavedAt:  time.Now().UTC(),
	}
	s.snaps[threadID] = snap

	out := *snap
	return &out, nil
}

// Get retrieves the latest snapshot for the thread.
func (s *MemoryStore) Get(_ context.Context, threadID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snaps[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *snap
	out.State = append(json.RawMessage(nil), snap.State...)
	return &out, nil
}

// Delete removes the thread's checkpoint. Deleting a missing key is not
// an error.
func (s *MemoryStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, threadID)
	return nil
}
