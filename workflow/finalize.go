package workflow

import "context"

// FinalizeOutput is the terminal reporting stage. It emits a run summary
// and mutates nothing.
func (s *Stages) FinalizeOutput(ctx context.Context, st *State) *State {
	if st.Error != "" {
		s.Logger.Warn("workflow finished with errors",
			"concept", st.Concept,
			"project_type", st.ProjectType,
			"scenes", len(st.Scenes),
			"error", st.Error)
		return st
	}

	s.Logger.Info("workflow finished",
		"concept", st.Concept,
		"project_type", st.ProjectType,
		"scenes", len(st.Scenes),
		"image_prompts", len(st.ImagePrompts))
	return st
}
