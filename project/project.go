// Package project provides primary persistence for generation projects.
//
// A project is the durable record of a generation run: the user's concept
// and settings plus the materialized scenes. Workflow checkpoints are
// transient; once a run reaches a terminal stage its results land here.
package project

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("project not found")

// StoredScene is a materialized scene on a project record.
type StoredScene struct {
	Number       int    `json:"scene_number"`
	Title        string `json:"title"`
	Script       string `json:"script"`
	StoryContext string `json:"story_context,omitempty"`
	ImagePrompt  string `json:"image_prompt,omitempty"`
	Image        string `json:"image,omitempty"`
	Video        string `json:"video,omitempty"`
}

// Project is the durable record of a generation run.
type Project struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Title       string        `json:"title"`
	Concept     string        `json:"concept"`
	NumScenes   int           `json:"num_scenes"`
	Creativity  string        `json:"creativity_level"`
	ProjectType string        `json:"project_type"`
	TriggerWord string        `json:"trigger_word,omitempty"`
	Video       string        `json:"video,omitempty"`
	Scenes      []StoredScene `json:"scenes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Scene returns the stored scene with the given number, or nil.
func (p *Project) Scene(number int) *StoredScene {
	for i := range p.Scenes {
		if p.Scenes[i].Number == number {
			return &p.Scenes[i]
		}
	}
	return nil
}

// Store persists project records.
type Store interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, p *Project) error
	List(ctx context.Context, userID string) ([]*Project, error)
	Delete(ctx context.Context, id string) error
}
