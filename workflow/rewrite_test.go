package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/envisionhq/sceneflow/llm"
	"github.com/envisionhq/sceneflow/llm/testutil"
	"github.com/envisionhq/sceneflow/script"
)

func fourSceneState() *State {
	return &State{
		Concept:     "a lonely robot",
		NumScenes:   4,
		Creativity:  "balanced",
		Temperature: 0.7,
		TriggerWord: "rob0t",
		Scenes: []script.Scene{
			{Number: 1, Title: "Dawn", Story: "rob0t wakes among ruins."},
			{Number: 2, Title: "Search", Story: "rob0t searches the empty streets."},
			{Number: 3, Title: "Discovery", Story: "rob0t finds a garden."},
			{Number: 4, Title: "Rest", Story: "rob0t powers down at sunset."},
		},
		NeedsRewrite:        true,
		SceneToEdit:         2,
		RewriteInstructions: "make it rain",
	}
}

func TestRewriteSingleScene_CascadeInvariant(t *testing.T) {
	// Call 1 rewrites scene 2; calls 2 and 3 regenerate scenes 3 and 4.
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: "**Scene 2: \"Downpour\"**\nrob0t trudges through heavy rain.", Model: "test-model"},
			{Content: "**Scene 1: \"Shelter\"**\n{character} shelters under a rusted awning.", Model: "test-model"},
			{Content: "**Scene 1: \"Clearing\"**\n{character} watches the clouds break.", Model: "test-model"},
		},
	}
	s := testStages(mock)

	st := s.RewriteScene(context.Background(), fourSceneState())

	if st.Error != "" {
		t.Fatalf("unexpected error: %s", st.Error)
	}

	// Scene 1 byte-identical, scene 2 replaced, scenes 3-4 regenerated.
	if st.Scenes[0].Title != "Dawn" || st.Scenes[0].Story != "rob0t wakes among ruins." {
		t.Errorf("scene 1 must be untouched, got %+v", st.Scenes[0])
	}
	if st.Scenes[1].Title != "Downpour" {
		t.Errorf("scene 2 title = %q, want Downpour", st.Scenes[1].Title)
	}
	if st.Scenes[2].Title != "Shelter" {
		t.Errorf("scene 3 title = %q, want regenerated Shelter", st.Scenes[2].Title)
	}
	if st.Scenes[3].Title != "Clearing" {
		t.Errorf("scene 4 title = %q, want regenerated Clearing", st.Scenes[3].Title)
	}

	// Regenerated scenes keep their positions.
	for i, sc := range st.Scenes {
		if sc.Number != i+1 {
			t.Errorf("scene at index %d has number %d", i, sc.Number)
		}
	}

	// Script is the ordered concatenation of current scenes.
	if st.Script != script.Render(st.Scenes) {
		t.Error("script must equal the rendered scene list")
	}
	if strings.Count(st.Script, "**Scene") != 4 {
		t.Errorf("script should contain 4 blocks, got %d", strings.Count(st.Script, "**Scene"))
	}

	if st.NeedsRewrite || st.SceneToEdit != 0 {
		t.Error("rewrite flags must be cleared on success")
	}

	// The cascade folds accumulated context forward: the regeneration of
	// scene 4 must see the already-regenerated scene 3.
	reqs := mock.GetRequests()
	if len(reqs) != 3 {
		t.Fatalf("expected 3 LLM calls, got %d", len(reqs))
	}
	if !strings.Contains(reqs[0].Messages[1].Content, "[TO BE EDITED]") {
		t.Error("rewrite prompt must mark the target scene")
	}
	lastCall := reqs[2].Messages[1].Content
	if !strings.Contains(lastCall, "shelters under a rusted awning") {
		t.Error("scene 4 regeneration must carry the regenerated scene 3 context")
	}
	if !strings.Contains(lastCall, "heavy rain") {
		t.Error("scene 4 regeneration must carry the edited scene 2 context")
	}
}

func TestRewriteSingleScene_MissingTarget(t *testing.T) {
	s := testStages(&testutil.MockLLMClient{})

	st := fourSceneState()
	st.SceneToEdit = 9
	st = s.RewriteScene(context.Background(), st)

	if st.Error != "Scene 9 not found." {
		t.Errorf("error = %q, want scene not found", st.Error)
	}
	if st.NeedsRewrite || st.SceneToEdit != 0 {
		t.Error("flags must be cleared on failure")
	}
	if st.Scenes[1].Title != "Search" {
		t.Error("no scene may be mutated on failure")
	}
}

func TestRewriteSingleScene_NoInstructions(t *testing.T) {
	s := testStages(&testutil.MockLLMClient{})

	st := fourSceneState()
	st.RewriteInstructions = "   "
	st = s.RewriteScene(context.Background(), st)

	if st.Error != "No rewrite instructions provided." {
		t.Errorf("error = %q, want missing instructions", st.Error)
	}
	if st.NeedsRewrite {
		t.Error("flags must be cleared")
	}
}

func TestRewriteSingleScene_UnparseableResponse(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: "I cannot help with that.", Model: "test-model"}},
	}
	s := testStages(mock)

	st := s.RewriteScene(context.Background(), fourSceneState())

	if !strings.Contains(st.Error, "Could not parse rewritten scene") {
		t.Errorf("error = %q, want parse failure", st.Error)
	}
	if !strings.Contains(st.Error, "I cannot help with that.") {
		t.Error("parse error should include the offending text for diagnosis")
	}
	if st.Scenes[1].Title != "Search" {
		t.Error("parse failure must not mutate any scene")
	}
	if st.NeedsRewrite || st.SceneToEdit != 0 {
		t.Error("flags must be cleared on failure")
	}
}

func TestRewriteSingleScene_CascadeFailure(t *testing.T) {
	// Rewrite succeeds, first regeneration fails.
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: "**Scene 2: \"Downpour\"**\nrob0t trudges through heavy rain.", Model: "test-model"},
			{Content: "no scene blocks here", Model: "test-model"},
		},
	}
	s := testStages(mock)

	st := s.RewriteScene(context.Background(), fourSceneState())

	if st.Error != "Scene regeneration failed." {
		t.Errorf("error = %q, want regeneration failure", st.Error)
	}
	if st.NeedsRewrite || st.SceneToEdit != 0 {
		t.Error("flags must be cleared on failure")
	}
	// Scene 2 already carries its new text, so the script must too.
	if st.Script != script.Render(st.Scenes) {
		t.Error("script out of sync with scenes after cascade failure")
	}
	if !strings.Contains(st.Script, "Downpour") {
		t.Errorf("script missing rewritten scene, got %q", st.Script)
	}
}

func TestRewriteAllScenes_SceneSetInvariant(t *testing.T) {
	// Response includes scene 9, which does not exist: it must be
	// discarded, never inserted.
	response := strings.Join([]string{
		"**Scene 1: \"Rainy Dawn\"**\nrob0t wakes in the rain.",
		"**Scene 2: \"Wet Search\"**\nrob0t searches flooded streets.",
		"**Scene 3: \"Soaked Discovery\"**\nrob0t finds a drowned garden.",
		"**Scene 4: \"Dripping Rest\"**\nrob0t powers down in drizzle.",
		"**Scene 9: \"Ghost\"**\nthis scene does not exist.",
	}, "\n\n")

	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: response, Model: "test-model"}},
	}
	s := testStages(mock)

	st := fourSceneState()
	st.EditAllScenes = true
	st.SceneToEdit = 0
	st = s.RewriteScene(context.Background(), st)

	if st.Error != "" {
		t.Fatalf("unexpected error: %s", st.Error)
	}
	if len(st.Scenes) != 4 {
		t.Fatalf("scene count changed: got %d, want 4", len(st.Scenes))
	}
	for i, want := range []string{"Rainy Dawn", "Wet Search", "Soaked Discovery", "Dripping Rest"} {
		if st.Scenes[i].Title != want {
			t.Errorf("scene %d title = %q, want %q", i+1, st.Scenes[i].Title, want)
		}
	}
	if st.SceneByNumber(9) != nil {
		t.Error("out-of-range scene must not be inserted")
	}
	if st.EditAllScenes || st.NeedsRewrite {
		t.Error("flags must be cleared on success")
	}
	if len(mock.GetRequests()) != 1 {
		t.Error("all-scenes rewrite is a single generation call")
	}
}

func TestRewriteAllScenes_PartialResponse(t *testing.T) {
	// Only scene 2 comes back: the rest stay as they were.
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: "**Scene 2: \"Wet Search\"**\nrob0t searches flooded streets.", Model: "test-model"},
		},
	}
	s := testStages(mock)

	st := fourSceneState()
	st.EditAllScenes = true
	st = s.RewriteScene(context.Background(), st)

	if st.Error != "" {
		t.Fatalf("unexpected error: %s", st.Error)
	}
	if st.Scenes[0].Title != "Dawn" || st.Scenes[2].Title != "Discovery" {
		t.Error("unmatched scenes must keep their content")
	}
	if st.Scenes[1].Title != "Wet Search" {
		t.Error("matched scene must be updated")
	}
}

func TestRewriteAllScenes_ZeroMatches(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: "nothing parseable", Model: "test-model"}},
	}
	s := testStages(mock)

	st := fourSceneState()
	st.EditAllScenes = true
	st = s.RewriteScene(context.Background(), st)

	if !strings.Contains(st.Error, "Could not parse any rewritten scenes") {
		t.Errorf("error = %q, want parse failure", st.Error)
	}
	for i, want := range []string{"Dawn", "Search", "Discovery", "Rest"} {
		if st.Scenes[i].Title != want {
			t.Errorf("scene %d mutated on failure: %q", i+1, st.Scenes[i].Title)
		}
	}
	if st.EditAllScenes || st.NeedsRewrite {
		t.Error("flags must be cleared on failure")
	}
}

func TestRewriteAllScenes_GenerationError(t *testing.T) {
	mock := &testutil.MockLLMClient{Err: errors.New("boom")}
	s := testStages(mock)

	st := fourSceneState()
	st.EditAllScenes = true
	st = s.RewriteScene(context.Background(), st)

	if st.Error == "" {
		t.Fatal("generation error must set a state error")
	}
	if st.EditAllScenes || st.NeedsRewrite || st.SceneToEdit != 0 {
		t.Error("flags must be cleared on failure")
	}
}
