package project

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory project Store for tests and single-process
// development runs.
type MemoryStore struct {
	mu       sync.Mutex
	projects map[string]*Project
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*Project)}
}

// Create stores a new project, assigning its ID and timestamps.
func (s *MemoryStore) Create(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

// Get retrieves a project by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Scenes = append([]StoredScene(nil), p.Scenes...)
	return &cp, nil
}

// Update overwrites an existing project record.
func (s *MemoryStore) Update(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = time.Now().UTC()
	cp := *p
	cp.Scenes = append([]StoredScene(nil), p.Scenes...)
	s.projects[p.ID] = &cp
	return nil
}

// List returns all projects for a user, or all projects when userID is
// empty, ordered by creation time.
func (s *MemoryStore) List(_ context.Context, userID string) ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		if userID != "" && p.UserID != userID {
			continue
		}
		cp := *p
		cp.Scenes = append([]StoredScene(nil), p.Scenes...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a project. Deleting a missing project is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
	return nil
}
