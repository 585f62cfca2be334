package workflow

import (
	"context"

	"github.com/envisionhq/sceneflow/imageprompt"
	"github.com/envisionhq/sceneflow/script"
)

// GenerateImagePrompts produces one image prompt per finalized scene.
// The generator never yields an empty prompt; enrichment failures fall
// back to template assembly per scene, so a partial LLM outage degrades
// quality rather than dropping scenes.
func (s *Stages) GenerateImagePrompts(ctx context.Context, st *State) *State {
	if len(st.Scenes) == 0 {
		st.Error = "No scenes available for image prompt generation"
		return st
	}

	s.Logger.Info("generating image prompts", "scenes", len(st.Scenes))

	out := make([]imageprompt.ScenePrompt, 0, len(st.Scenes))
	for _, sc := range st.Scenes {
		// The generator sees the concrete identity, not the placeholder.
		sceneText := script.ApplyTriggerWord(sc.Story, st.TriggerWord)
		out = append(out, imageprompt.ScenePrompt{
			SceneNumber:    sc.Number,
			SceneTitle:     sc.Title,
			ImagePrompt:    s.Prompts.Generate(ctx, sceneText, sc.Title, st.TriggerWord),
			NegativePrompt: imageprompt.NegativePrompt,
		})
	}

	st.ImagePrompts = out
	s.Logger.Info("image prompts generated", "prompts", len(out))
	return st
}
