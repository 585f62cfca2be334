package workflow

import "context"

// Decision values accepted by the decision stage.
const (
	DecisionAccept = "accept"
	DecisionEdit   = "edit"
)

// DecideRewrite applies the caller's decision about the current scenes.
// It is a pure branch point: no generation happens here. The human
// decision arrives as a resume patch because the engine suspends before
// this stage; a run that reaches it with no decision set proceeds as an
// accept.
func (s *Stages) DecideRewrite(ctx context.Context, st *State) *State {
	if len(st.Scenes) == 0 {
		st.SceneToEdit = 0
		st.NeedsRewrite = false
		return st
	}

	switch st.RewriteDecision {
	case DecisionEdit:
		st.NeedsRewrite = true
		// scene_to_edit or edit_all_scenes is supplied by the patch
	case DecisionAccept:
		st.NeedsRewrite = false
		st.SceneToEdit = 0
		st.EditAllScenes = false
	default:
		s.Logger.Debug("no rewrite decision set, accepting scenes")
		st.NeedsRewrite = false
		st.SceneToEdit = 0
	}

	// A consumed decision does not carry into the next visit.
	st.RewriteDecision = ""
	return st
}
