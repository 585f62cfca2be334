// Package workflow implements the resumable scene generation pipeline.
//
// A run flows concept -> script -> decision -> (rewrite loop) -> image
// prompts -> finalize. The engine executes named stages over a shared
// State, suspends before the decision stage by persisting a checkpoint,
// and resumes when a later request supplies the thread ID and a Patch.
package workflow

import (
	"github.com/envisionhq/sceneflow/imageprompt"
	"github.com/envisionhq/sceneflow/script"
)

// State is the single unit of data passed between stages. It must stay
// JSON-serializable: between suspension and resumption the process may
// restart, so the checkpoint is the only carrier of in-flight context.
type State struct {
	Concept     string  `json:"concept"`
	NumScenes   int     `json:"num_scenes"`
	Creativity  string  `json:"creativity"`
	TriggerWord string  `json:"trigger_word,omitempty"`
	ProjectType string  `json:"project_type,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	Scenes []script.Scene `json:"scenes"`
	Script string         `json:"script,omitempty"`

	// Decision and rewrite flags. At most one of accept, single-scene
	// edit, or all-scenes edit is active per decision visit.
	RewriteDecision     string `json:"rewrite_decision,omitempty"`
	NeedsRewrite        bool   `json:"needs_rewrite,omitempty"`
	SceneToEdit         int    `json:"scene_to_edit,omitempty"`
	EditAllScenes       bool   `json:"edit_all_scenes,omitempty"`
	RewriteInstructions string `json:"rewrite_instructions,omitempty"`

	ImagePrompts []imageprompt.ScenePrompt `json:"image_prompts,omitempty"`

	Error string `json:"error,omitempty"`

	ProjectID    string `json:"project_id,omitempty"`
	ProjectTitle string `json:"project_title,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	cp := *s
	cp.Scenes = append([]script.Scene(nil), s.Scenes...)
	cp.ImagePrompts = append([]imageprompt.ScenePrompt(nil), s.ImagePrompts...)
	return &cp
}

// SceneByNumber returns a pointer to the scene with the given number, or
// nil when absent.
func (s *State) SceneByNumber(n int) *script.Scene {
	for i := range s.Scenes {
		if s.Scenes[i].Number == n {
			return &s.Scenes[i]
		}
	}
	return nil
}

// RebuildScript orders scenes ascending and regenerates the concatenated
// script text from them.
func (s *State) RebuildScript() {
	script.SortByNumber(s.Scenes)
	s.Script = script.Render(s.Scenes)
}

// clearRewriteFlags resets the decision flags to a safe resting position
// so a later interaction can retry cleanly.
func (s *State) clearRewriteFlags() {
	s.NeedsRewrite = false
	s.SceneToEdit = 0
	s.EditAllScenes = false
}

// Patch carries resume-time overrides. Using an explicit record instead
// of a blind map merge keeps checkpoint keys and caller overrides from
// colliding.
type Patch struct {
	Decision            string `json:"decision,omitempty"`
	SceneToEdit         int    `json:"scene_to_edit,omitempty"`
	EditAllScenes       bool   `json:"edit_all_scenes,omitempty"`
	RewriteInstructions string `json:"rewrite_instructions,omitempty"`
	TriggerWord         string `json:"trigger_word,omitempty"`
}

// Apply merges the patch into the state. Zero-valued fields are left
// untouched except EditAllScenes, which is authoritative whenever a
// decision is supplied.
func (p Patch) Apply(s *State) {
	if p.Decision != "" {
		s.RewriteDecision = p.Decision
		s.EditAllScenes = p.EditAllScenes
	}
	if p.SceneToEdit > 0 {
		s.SceneToEdit = p.SceneToEdit
	}
	if p.RewriteInstructions != "" {
		s.RewriteInstructions = p.RewriteInstructions
	}
	if p.TriggerWord != "" {
		s.TriggerWord = p.TriggerWord
	}
}
