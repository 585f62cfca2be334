package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/envisionhq/sceneflow/checkpoint"
	"github.com/envisionhq/sceneflow/imageprompt"
	"github.com/envisionhq/sceneflow/llm"
	"github.com/envisionhq/sceneflow/llm/testutil"
	"github.com/envisionhq/sceneflow/project"
	"github.com/envisionhq/sceneflow/workflow"
)

func newTestStages(mock *testutil.MockLLMClient, logger *slog.Logger) *workflow.Stages {
	gen := imageprompt.NewGenerator(mock, imageprompt.WithLogger(logger))
	return workflow.NewStages(mock, gen, logger)
}

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server      *Server
	router      *gin.Engine
	projects    *project.MemoryStore
	checkpoints *checkpoint.MemoryStore
	mock        *testutil.MockLLMClient
}

type imageGenFunc func(ctx context.Context, prompt string) ([]byte, error)

func (f imageGenFunc) Generate(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

type videoGenFunc func(ctx context.Context, prompt, inputImage string) ([]byte, error)

func (f videoGenFunc) Generate(ctx context.Context, prompt, inputImage string) ([]byte, error) {
	return f(ctx, prompt, inputImage)
}

func newTestEnv(t *testing.T, mock *testutil.MockLLMClient, opts ...Option) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	projects := project.NewMemoryStore()
	checkpoints := checkpoint.NewMemoryStore()
	stages := newTestStages(mock, logger)

	opts = append([]Option{WithLogger(logger)}, opts...)
	srv, err := NewServer(projects, checkpoints, stages, opts...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testEnv{
		server:      srv,
		router:      srv.Router(),
		projects:    projects,
		checkpoints: checkpoints,
		mock:        mock,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v\nbody: %s", err, w.Body.String())
	}
	return resp
}

// sceneBlocks renders n scenes in the wire block format.
func sceneBlocks(n int, suffix string) string {
	blocks := make([]string, n)
	for i := range blocks {
		blocks[i] = fmt.Sprintf("**Scene %d: \"Title %d%s\"**\n{character} wanders through part %d%s of the city.", i+1, i+1, suffix, i+1, suffix)
	}
	return strings.Join(blocks, "\n\n")
}

func createProject(t *testing.T, e *testEnv, concept string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/projects", gin.H{
		"user_id":    "u1",
		"concept":    concept,
		"num_scenes": 3,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var data struct {
		Project project.Project `json:"project"`
	}
	resp := decodeEnvelope(t, w)
	raw, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return data.Project.ID
}

func TestCreateProject(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: sceneBlocks(3, ""), Model: "test-model"}},
	}
	e := newTestEnv(t, mock)

	id := createProject(t, e, "a lonely robot explores an abandoned city")

	p, err := e.projects.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("project not stored: %v", err)
	}
	if len(p.Scenes) != 3 {
		t.Fatalf("stored %d scenes, want 3", len(p.Scenes))
	}
	if p.Scenes[0].Title != "Title 1" {
		t.Errorf("scene 1 title = %q", p.Scenes[0].Title)
	}
	if p.ProjectType != "story" {
		t.Errorf("project_type = %q, want story", p.ProjectType)
	}

	if _, err := e.checkpoints.Get(context.Background(), threadID("u1", id)); err != nil {
		t.Errorf("expected checkpoint after suspension, got %v", err)
	}
}

func TestCreateProject_Validation(t *testing.T) {
	e := newTestEnv(t, &testutil.MockLLMClient{})

	w := e.do(t, http.MethodPost, "/api/projects", gin.H{"user_id": "u1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Status != "error" || resp.ErrorCode != "BAD_REQUEST" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestCreateProject_GenerationFailure(t *testing.T) {
	mock := &testutil.MockLLMClient{Err: errors.New("API Error 503")}
	e := newTestEnv(t, mock)

	w := e.do(t, http.MethodPost, "/api/projects", gin.H{
		"user_id": "u1",
		"concept": "a robot",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.ErrorCode != "GENERATION_FAILED" || !strings.Contains(resp.Message, "API Error 503") {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestAcceptScript(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: sceneBlocks(2, ""), Model: "test-model"},
			{Content: "a robot in a crumbling plaza, cinematic", Model: "test-model"},
			{Content: "a robot at a rusted gate, cinematic", Model: "test-model"},
		},
	}
	e := newTestEnv(t, mock)
	id := createProject(t, e, "a lonely robot explores an abandoned city")

	w := e.do(t, http.MethodPost, "/api/projects/"+id+"/accept", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body = %s", w.Code, w.Body.String())
	}

	p, _ := e.projects.Get(context.Background(), id)
	for _, sc := range p.Scenes {
		if sc.ImagePrompt == "" {
			t.Errorf("scene %d has no image prompt", sc.Number)
		}
	}

	// Run completed, so the checkpoint is gone.
	if _, err := e.checkpoints.Get(context.Background(), threadID("u1", id)); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("checkpoint err = %v, want ErrNotFound", err)
	}
}

func TestEditScene(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: sceneBlocks(3, ""), Model: "test-model"},
			{Content: "**Scene 2: \"Rewritten\"**\n{character} shelters from the rain.", Model: "test-model"},
			{Content: "**Scene 1: \"After\"**\n{character} steps back into the wet street.", Model: "test-model"},
		},
	}
	e := newTestEnv(t, mock)
	id := createProject(t, e, "a lonely robot explores an abandoned city")

	w := e.do(t, http.MethodPost, "/api/projects/"+id+"/scenes/2/edit", gin.H{
		"instructions": "make it rain",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", w.Code, w.Body.String())
	}

	p, _ := e.projects.Get(context.Background(), id)
	if got := p.Scene(2).Title; got != "Rewritten" {
		t.Errorf("scene 2 title = %q, want Rewritten", got)
	}
	if got := p.Scene(1).Title; got != "Title 1" {
		t.Errorf("scene 1 title = %q, earlier scene must not change", got)
	}

	// Still suspended: further edits or an accept may follow.
	if _, err := e.checkpoints.Get(context.Background(), threadID("u1", id)); err != nil {
		t.Errorf("expected checkpoint after edit, got %v", err)
	}
}

func TestEditScene_InvalidNumber(t *testing.T) {
	e := newTestEnv(t, &testutil.MockLLMClient{})
	seedProject(t, e, &project.Project{UserID: "u1", Concept: "c", Scenes: []project.StoredScene{{Number: 1, Title: "T", StoryContext: "s"}}})

	p, _ := e.projects.List(context.Background(), "u1")
	w := e.do(t, http.MethodPost, "/api/projects/"+p[0].ID+"/scenes/zero/edit", gin.H{"instructions": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAccept_RebuildsFromProjectWhenCheckpointMissing(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{
			{Content: "a robot by a fountain, cinematic", Model: "test-model"},
		},
	}
	e := newTestEnv(t, mock)
	id := seedProject(t, e, &project.Project{
		UserID:     "u1",
		Concept:    "a lonely robot",
		NumScenes:  1,
		Creativity: "balanced",
		Scenes: []project.StoredScene{
			{Number: 1, Title: "Fountain", StoryContext: "The robot pauses at a dry fountain."},
		},
	})

	w := e.do(t, http.MethodPost, "/api/projects/"+id+"/accept", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body = %s", w.Code, w.Body.String())
	}

	p, _ := e.projects.Get(context.Background(), id)
	if p.Scene(1).ImagePrompt == "" {
		t.Error("scene 1 has no image prompt after fallback resume")
	}
}

func TestAccept_NoCheckpointNoScenes(t *testing.T) {
	e := newTestEnv(t, &testutil.MockLLMClient{})
	id := seedProject(t, e, &project.Project{UserID: "u1", Concept: "c"})

	w := e.do(t, http.MethodPost, "/api/projects/"+id+"/accept", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.ErrorCode != "NO_ACTIVE_RUN" {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
}

func TestProjectStatus(t *testing.T) {
	mock := &testutil.MockLLMClient{
		Responses: []*llm.Response{{Content: sceneBlocks(2, ""), Model: "test-model"}},
	}
	e := newTestEnv(t, mock)
	id := createProject(t, e, "a lonely robot explores an abandoned city")

	w := e.do(t, http.MethodGet, "/api/projects/"+id+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var data struct {
		Step        string   `json:"step"`
		NextActions []string `json:"next_actions"`
	}
	resp := decodeEnvelope(t, w)
	raw, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Step != "awaiting_decision" {
		t.Errorf("step = %q, want awaiting_decision", data.Step)
	}
	if len(data.NextActions) != 3 {
		t.Errorf("next_actions = %v", data.NextActions)
	}
}

func TestGenerateImages(t *testing.T) {
	images := imageGenFunc(func(ctx context.Context, prompt string) ([]byte, error) {
		return []byte("png-bytes-for: " + prompt), nil
	})
	e := newTestEnv(t, &testutil.MockLLMClient{}, WithImageGenerator(images))
	id := seedProject(t, e, &project.Project{
		UserID:  "u1",
		Concept: "c",
		Scenes: []project.StoredScene{
			{Number: 1, Title: "A", ImagePrompt: "a robot, cinematic"},
			{Number: 2, Title: "B"}, // no prompt, skipped
		},
	})

	w := e.do(t, http.MethodPost, "/api/projects/"+id+"/images", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	p, _ := e.projects.Get(context.Background(), id)
	if !strings.HasPrefix(p.Scene(1).Image, "data:image/png;base64,") {
		t.Errorf("scene 1 image = %q", p.Scene(1).Image)
	}
	if p.Scene(2).Image != "" {
		t.Errorf("scene 2 image = %q, want empty", p.Scene(2).Image)
	}
}

func TestGenerateImages_NotConfigured(t *testing.T) {
	e := newTestEnv(t, &testutil.MockLLMClient{})
	id := seedProject(t, e, &project.Project{UserID: "u1", Concept: "c"})

	w := e.do(t, http.MethodPost, "/api/projects/"+id+"/images", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestGenerateVideos(t *testing.T) {
	var gotPrompt string
	videos := videoGenFunc(func(ctx context.Context, prompt, inputImage string) ([]byte, error) {
		gotPrompt = prompt
		return []byte("mp4-bytes"), nil
	})
	e := newTestEnv(t, &testutil.MockLLMClient{}, WithVideoGenerator(videos))
	id := seedProject(t, e, &project.Project{
		UserID:  "u1",
		Concept: "c",
		Scenes: []project.StoredScene{
			{Number: 1, Title: "A", ImagePrompt: "a robot, cinematic", Image: "data:image/png;base64,cGl4ZWxz"},
		},
	})

	w := e.do(t, http.MethodPost, "/api/projects/"+id+"/video", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	p, _ := e.projects.Get(context.Background(), id)
	if !strings.HasPrefix(p.Scene(1).Video, "data:video/mp4;base64,") {
		t.Errorf("scene 1 video = %q", p.Scene(1).Video)
	}
	if p.Video != p.Scene(1).Video {
		t.Error("single-scene project should carry the clip as its video")
	}
	if !strings.Contains(gotPrompt, "cinematic camera motion") {
		t.Errorf("video prompt = %q, want motion augmentation", gotPrompt)
	}
	if gotPrompt != imageprompt.VideoPrompt("a robot, cinematic") {
		t.Errorf("video prompt = %q", gotPrompt)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	e := newTestEnv(t, &testutil.MockLLMClient{})
	w := e.do(t, http.MethodGet, "/api/projects/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.ErrorCode != "PROJECT_NOT_FOUND" {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
}

func TestListProjects_FiltersByUser(t *testing.T) {
	e := newTestEnv(t, &testutil.MockLLMClient{})
	seedProject(t, e, &project.Project{UserID: "u1", Concept: "a"})
	seedProject(t, e, &project.Project{UserID: "u2", Concept: "b"})

	w := e.do(t, http.MethodGet, "/api/projects?user_id=u1", nil)
	var data struct {
		Projects []project.Project `json:"projects"`
	}
	resp := decodeEnvelope(t, w)
	raw, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Projects) != 1 || data.Projects[0].UserID != "u1" {
		t.Errorf("projects = %+v", data.Projects)
	}
}

func TestBearerAuth(t *testing.T) {
	e := newTestEnv(t, &testutil.MockLLMClient{}, WithAuthToken("sekrit"))

	w := e.do(t, http.MethodGet, "/api/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authorized status = %d, want 200", rec.Code)
	}

	// Health stays open.
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func seedProject(t *testing.T, e *testEnv, p *project.Project) string {
	t.Helper()
	if err := e.projects.Create(context.Background(), p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p.ID
}
