package workflow

// Stage names of the scene generation pipeline.
const (
	StageGenerateScript = "generate_script"
	StageDecideRewrite  = "decide_rewrite"
	StageRewriteScene   = "rewrite_scene"
	StageImagePrompts   = "generate_image_prompts"
	StageFinalize       = "finalize_output"
)

// RouteAfterDecide sends the run to the rewrite stage when a rewrite is
// pending, otherwise on to image prompt generation.
func RouteAfterDecide(st *State) string {
	if st.NeedsRewrite {
		return StageRewriteScene
	}
	return StageImagePrompts
}

// RouteAfterRewrite always returns to the decision stage. The rewrite
// stage clears its own flags on every path, so this cannot loop without
// a fresh decision.
func RouteAfterRewrite(st *State) string {
	return StageDecideRewrite
}

// NewScriptGraph wires the five pipeline stages. entry selects where
// execution starts: StageGenerateScript for a fresh run, or a later
// stage when resuming with already-generated scenes.
func NewScriptGraph(s *Stages, entry string) *Graph {
	g := NewGraph()
	g.AddNode(StageGenerateScript, s.GenerateScript)
	g.AddNode(StageDecideRewrite, s.DecideRewrite)
	g.AddNode(StageRewriteScene, s.RewriteScene)
	g.AddNode(StageImagePrompts, s.GenerateImagePrompts)
	g.AddNode(StageFinalize, s.FinalizeOutput)

	g.AddEdge(StageGenerateScript, StageDecideRewrite)
	g.AddConditionalEdge(StageDecideRewrite, RouteAfterDecide, StageRewriteScene, StageImagePrompts)
	g.AddConditionalEdge(StageRewriteScene, RouteAfterRewrite, StageDecideRewrite)
	g.AddEdge(StageImagePrompts, StageFinalize)

	g.SetEntryPoint(entry)
	return g
}
