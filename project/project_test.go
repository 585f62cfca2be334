package project

import (
	"context"
	"testing"
)

func TestMemoryStore_CreateAssignsID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := &Project{UserID: "1", Title: "Robot Story", Concept: "a lonely robot", NumScenes: 3}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.ID == "" {
		t.Error("Create did not assign an ID")
	}
	if p.CreatedAt.IsZero() {
		t.Error("Create did not set CreatedAt")
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Robot Story" {
		t.Errorf("Title = %q, want Robot Story", got.Title)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_UpdateScenes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := &Project{UserID: "1", Title: "T", Concept: "c", NumScenes: 2}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	p.Scenes = []StoredScene{
		{Number: 1, Title: "Opening", Script: "body one"},
		{Number: 2, Title: "Closing", Script: "body two"},
	}
	if err := store.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(got.Scenes))
	}
	if s := got.Scene(2); s == nil || s.Title != "Closing" {
		t.Errorf("Scene(2) = %+v, want Closing", s)
	}
	if got.Scene(3) != nil {
		t.Error("Scene(3) should be nil")
	}
}

func TestMemoryStore_ListFiltersByUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, p := range []*Project{
		{UserID: "1", Title: "A"},
		{UserID: "2", Title: "B"},
		{UserID: "1", Title: "C"},
	} {
		if err := store.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	mine, err := store.List(ctx, "1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("List(user 1) = %d projects, want 2", len(mine))
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(all) = %d projects, want 3", len(all))
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := &Project{UserID: "1", Title: "A"}
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, p.ID); err != ErrNotFound {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, p.ID); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
}
