package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketCheckpoints is the KV bucket holding workflow snapshots.
const BucketCheckpoints = "SCENEFLOW_CHECKPOINTS"

// KVStore is a checkpoint Store backed by NATS JetStream KV.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates a KVStore, creating the checkpoint bucket if needed.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	kv, err := js.KeyValue(ctx, BucketCheckpoints)
	if err != nil {
		// Bucket doesn't exist, create it
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketCheckpoints,
			Description: "Sceneflow workflow checkpoint storage",
			History:     5, // Keep last 5 revisions
		})
		if err != nil {
			return nil, fmt.Errorf("create checkpoint bucket: %w", err)
		}
	}
	return &KVStore{kv: kv}, nil
}

// Put saves a new snapshot for the thread, incrementing its version.
func (s *KVStore) Put(ctx context.Context, threadID string, state json.RawMessage) (*Snapshot, error) {
	version := 1
	if prev, err := s.Get(ctx, threadID); err == nil {
		version = prev.Version + 1
	} else if err != ErrNotFound {
		return nil, err
	}

	snap := &Snapshot{
		ThreadID: threadID,
		Version:  version,
		State:    state,
		SavedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	if _, err := s.kv.Put(ctx, threadID, data); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	return snap, nil
}

// Get retrieves the latest snapshot for the thread.
func (s *KVStore) Get(ctx context.Context, threadID string) (*Snapshot, error) {
	entry, err := s.kv.Get(ctx, threadID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(entry.Value(), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Delete removes the thread's checkpoint. Deleting a missing key is not
// an error.
func (s *KVStore) Delete(ctx context.Context, threadID string) error {
	if err := s.kv.Delete(ctx, threadID); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
