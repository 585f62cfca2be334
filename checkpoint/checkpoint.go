// Package checkpoint provides durable workflow state storage keyed by thread ID.
//
// A checkpoint captures the full workflow state at a suspension point so a
// paused run can be resumed by a later request, possibly handled by a
// different process. Snapshots are versioned monotonically per thread.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for a thread.
var ErrNotFound = errors.New("checkpoint not found")

// Snapshot is a versioned point-in-time capture of workflow state.
type Snapshot struct {
	ThreadID string          `json:"thread_id"`
	Version  int             `json:"version"`
	State    json.RawMessage `json:"state"`
	SavedAt  time.Time       `json:"saved_at"`
}

// Store persists workflow snapshots keyed by thread ID.
//
// Put overwrites any existing snapshot for the thread and increments its
// version. Get returns the latest snapshot. Delete is idempotent.
type Store interface {
	Put(ctx context.Context, threadID string, state json.RawMessage) (*Snapshot, error)
	Get(ctx context.Context, threadID string) (*Snapshot, error)
	Delete(ctx context.Context, threadID string) error
}
