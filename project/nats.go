package project

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketProjects is the KV bucket holding project records.
const BucketProjects = "SCENEFLOW_PROJECTS"

// KVStore is a project Store backed by NATS JetStream KV.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates a KVStore, creating the project bucket if needed.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	kv, err := js.KeyValue(ctx, BucketProjects)
	if err != nil {
		// Bucket doesn't exist, create it
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      BucketProjects,
			Description: "Sceneflow project storage",
			History:     5, // Keep last 5 revisions
		})
		if err != nil {
			return nil, fmt.Errorf("create project bucket: %w", err)
		}
	}
	return &KVStore{kv: kv}, nil
}

// Create stores a new project, assigning its ID and timestamps.
func (s *KVStore) Create(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	if _, err := s.kv.Create(ctx, p.ID, data); err != nil {
		return fmt.Errorf("store project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID.
func (s *KVStore) Get(ctx context.Context, id string) (*Project, error) {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	var p Project
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}

	return &p, nil
}

// Update overwrites an existing project record.
func (s *KVStore) Update(ctx context.Context, p *Project) error {
	if p.ID == "" {
		return fmt.Errorf("project ID is required")
	}
	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	if _, err := s.kv.Put(ctx, p.ID, data); err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	return nil
}

// List returns all projects for a user, or all projects when userID is
// empty.
func (s *KVStore) List(ctx context.Context, userID string) ([]*Project, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list project keys: %w", err)
	}

	projects := make([]*Project, 0, len(keys))
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var p Project
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			continue
		}
		if userID != "" && p.UserID != userID {
			continue
		}
		projects = append(projects, &p)
	}

	return projects, nil
}

// Delete removes a project. Deleting a missing project is not an error.
func (s *KVStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, id); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
