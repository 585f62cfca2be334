package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/envisionhq/sceneflow/imageprompt"
	"github.com/envisionhq/sceneflow/llm"
	"github.com/envisionhq/sceneflow/script"
	"github.com/envisionhq/sceneflow/workflow/prompts"
)

// Token budgets per generation call.
const (
	scriptMaxTokens        = 4000
	rewriteSingleMaxTokens = 1000
	rewriteAllMaxTokens    = 3000
)

// Stages holds the pipeline's stage implementations and their
// collaborators. Credentials and clients arrive here explicitly; stages
// read nothing ambient.
type Stages struct {
	LLM     llm.TextGenerator
	Prompts *imageprompt.Generator
	Logger  *slog.Logger
}

// NewStages wires the stage set. A nil logger falls back to the default.
func NewStages(client llm.TextGenerator, gen *imageprompt.Generator, logger *slog.Logger) *Stages {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stages{LLM: client, Prompts: gen, Logger: logger}
}

// GenerateScript produces the initial scene set from the concept.
// Invalid scene counts and creativity levels are corrected to defaults,
// never rejected. A generation failure lands in State.Error with the
// raw error text as the script; the stage does not fail the run.
func (s *Stages) GenerateScript(ctx context.Context, st *State) *State {
	st.NumScenes = script.ClampSceneCount(st.NumScenes)
	st.Creativity = script.NormalizeCreativity(st.Creativity)
	st.Temperature = script.TemperatureFor(st.Creativity)
	st.ProjectType = string(script.DetectProjectType(st.Concept))

	s.Logger.Info("generating script",
		"concept", st.Concept,
		"num_scenes", st.NumScenes,
		"creativity", st.Creativity,
		"project_type", st.ProjectType)

	raw, scenes, err := s.generateScenes(ctx, st.Concept, st.NumScenes, st.Creativity, "")
	if err != nil {
		st.Script = fmt.Sprintf("Error generating script: %v", err)
		st.Scenes = nil
		st.Error = st.Script
		st.clearRewriteFlags()
		return st
	}

	st.Script = raw
	st.Scenes = scenes
	s.Logger.Info("script generated", "scenes", len(scenes))
	return st
}

// generateScenes issues one script generation call and parses the scene
// blocks out of the response. previousContext, when set, asks for a
// continuation consistent with already-finalized scenes; the cascade in
// single-scene rewrites drives this one scene at a time.
func (s *Stages) generateScenes(ctx context.Context, concept string, n int, creativity, previousContext string) (string, []script.Scene, error) {
	commercial := script.DetectProjectType(concept) == script.ProjectTypeCommercial
	temperature := script.TemperatureFor(creativity)

	resp, err := s.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: prompts.ScriptSystem(commercial)},
			{Role: "user", Content: prompts.ScriptUser(concept, n, script.CreativityDescription(creativity), commercial, previousContext)},
		},
		Temperature: &temperature,
		MaxTokens:   scriptMaxTokens,
	})
	if err != nil {
		return "", nil, err
	}

	return resp.Content, script.Parse(resp.Content), nil
}
