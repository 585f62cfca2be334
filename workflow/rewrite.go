package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/envisionhq/sceneflow/llm"
	"github.com/envisionhq/sceneflow/script"
	"github.com/envisionhq/sceneflow/workflow/prompts"
)

// RewriteScene regenerates the selected scene or every scene, selected
// by EditAllScenes. Both modes clear the rewrite flags on success and on
// failure, so the state always has a resolvable next action.
func (s *Stages) RewriteScene(ctx context.Context, st *State) *State {
	if st.EditAllScenes {
		return s.rewriteAllScenes(ctx, st)
	}
	return s.rewriteSingleScene(ctx, st)
}

// rewriteSingleScene rewrites the target scene per the edit request,
// then cascades regeneration through every scene after it so downstream
// narrative stays consistent. Scenes before the target are untouched.
func (s *Stages) rewriteSingleScene(ctx context.Context, st *State) *State {
	target := st.SceneToEdit
	if target == 0 {
		st.clearRewriteFlags()
		return st
	}

	current := st.SceneByNumber(target)
	if current == nil {
		st.clearRewriteFlags()
		st.Error = fmt.Sprintf("Scene %d not found.", target)
		return st
	}

	instructions := strings.TrimSpace(st.RewriteInstructions)
	if instructions == "" {
		st.clearRewriteFlags()
		st.Error = "No rewrite instructions provided."
		return st
	}

	s.Logger.Info("rewriting scene",
		"scene", target,
		"instructions", instructions)

	// Full story context with the target marked for the editor.
	blocks := make([]string, 0, len(st.Scenes))
	for _, sc := range st.Scenes {
		block := sc.Block()
		if sc.Number == target {
			head, body, _ := strings.Cut(block, "\n")
			block = head + " [TO BE EDITED]\n" + body
		}
		blocks = append(blocks, block)
	}
	storyContext := strings.Join(blocks, "\n\n")

	temperature := st.Temperature
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: prompts.RewriteSingleSystem(st.TriggerWord)},
			{Role: "user", Content: prompts.RewriteSingleUser(st.Concept, instructions, st.TriggerWord, storyContext, target)},
		},
		Temperature: &temperature,
		MaxTokens:   rewriteSingleMaxTokens,
	})
	if err != nil {
		st.Error = fmt.Sprintf("Scene rewrite failed: %v", err)
		st.clearRewriteFlags()
		return st
	}

	revised, ok := script.ParseOne(resp.Content)
	if !ok {
		st.Error = "Could not parse rewritten scene. Content was: " + resp.Content
		st.clearRewriteFlags()
		return st
	}

	current.Title = revised.Title
	current.Story = revised.Story

	// Cascade: regenerate each scene after the target one at a time,
	// folding the accumulated context of all finalized scenes forward.
	script.SortByNumber(st.Scenes)
	var accumulated []string
	lastContext := ""
	for i := range st.Scenes {
		sc := &st.Scenes[i]
		switch {
		case sc.Number > target:
			_, regen, err := s.generateScenes(ctx, st.Concept, 1, st.Creativity, lastContext)
			if err != nil || len(regen) == 0 {
				st.Error = "Scene regeneration failed."
				st.clearRewriteFlags()
				// Scenes edited before the failure keep their new
				// text, so the script must follow them.
				st.RebuildScript()
				return st
			}
			sc.Title = regen[0].Title
			sc.Story = regen[0].Story
			accumulated = append(accumulated, sc.Block())
		default:
			accumulated = append(accumulated, sc.Block())
		}
		lastContext = strings.Join(accumulated, "\n\n")
	}

	st.RebuildScript()
	st.clearRewriteFlags()
	s.Logger.Info("scene rewrite complete", "scene", target)
	return st
}

// rewriteAllScenes applies one edit request to every scene in a single
// generation call. The scene count is immutable during an edit: numbers
// in the response that do not already exist are discarded.
func (s *Stages) rewriteAllScenes(ctx context.Context, st *State) *State {
	if len(st.Scenes) == 0 {
		st.clearRewriteFlags()
		st.Error = "No scenes found to edit."
		return st
	}

	instructions := strings.TrimSpace(st.RewriteInstructions)
	if instructions == "" {
		st.clearRewriteFlags()
		st.Error = "No rewrite instructions provided."
		return st
	}

	s.Logger.Info("rewriting all scenes",
		"scenes", len(st.Scenes),
		"instructions", instructions)

	storyContext := script.Render(st.Scenes)

	temperature := st.Temperature
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: prompts.RewriteAllSystem(st.TriggerWord)},
			{Role: "user", Content: prompts.RewriteAllUser(st.Concept, instructions, st.TriggerWord, storyContext, len(st.Scenes))},
		},
		Temperature: &temperature,
		MaxTokens:   rewriteAllMaxTokens,
	})
	if err != nil {
		st.Error = fmt.Sprintf("Error in all scenes rewrite: %v", err)
		st.clearRewriteFlags()
		return st
	}

	revised := script.Parse(resp.Content)
	if len(revised) == 0 {
		st.Error = "Could not parse any rewritten scenes from LLM response."
		st.clearRewriteFlags()
		return st
	}

	for _, r := range revised {
		existing := st.SceneByNumber(r.Number)
		if existing == nil {
			s.Logger.Warn("rewritten scene not in original set, discarding", "scene", r.Number)
			continue
		}
		existing.Title = r.Title
		existing.Story = r.Story
	}

	st.RebuildScript()
	st.clearRewriteFlags()
	s.Logger.Info("all scenes rewritten", "scenes", len(st.Scenes))
	return st
}
