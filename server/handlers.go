package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/envisionhq/sceneflow/checkpoint"
	"github.com/envisionhq/sceneflow/imageprompt"
	"github.com/envisionhq/sceneflow/project"
	"github.com/envisionhq/sceneflow/script"
	"github.com/envisionhq/sceneflow/videogen"
	"github.com/envisionhq/sceneflow/workflow"
)

type createProjectRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Title       string `json:"title"`
	Concept     string `json:"concept" binding:"required"`
	NumScenes   int    `json:"num_scenes"`
	Creativity  string `json:"creativity_level"`
	TriggerWord string `json:"trigger_word"`
}

type editRequest struct {
	Instructions string `json:"instructions" binding:"required"`
	TriggerWord  string `json:"trigger_word"`
}

// decisionActions are what a suspended run accepts next.
var decisionActions = []string{"accept", "edit_scene", "edit_all"}

// createProject generates the initial script and suspends before the
// decision stage. The created project carries the generated scenes; the
// checkpoint carries the run.
func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	p := &project.Project{
		UserID:      req.UserID,
		Title:       req.Title,
		Concept:     req.Concept,
		NumScenes:   req.NumScenes,
		Creativity:  req.Creativity,
		TriggerWord: req.TriggerWord,
	}
	if err := s.projects.Create(c.Request.Context(), p); err != nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}

	tid := threadID(p.UserID, p.ID)
	unlock := s.locks.lock(tid)
	defer unlock()

	st := &workflow.State{
		Concept:      req.Concept,
		NumScenes:    req.NumScenes,
		Creativity:   req.Creativity,
		TriggerWord:  req.TriggerWord,
		ProjectID:    p.ID,
		ProjectTitle: p.Title,
		UserID:       p.UserID,
	}
	res, err := s.fresh.Invoke(c.Request.Context(), st,
		workflow.WithThreadID(tid),
		workflow.WithInterruptBefore(workflow.StageDecideRewrite),
	)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ENGINE_ERROR", err.Error())
		return
	}
	if res.State.Error != "" {
		respondError(c, http.StatusBadGateway, "GENERATION_FAILED", res.State.Error)
		return
	}

	s.materialize(c, p, res.State)
	respondOK(c, http.StatusCreated, "script generated", gin.H{
		"project":      p,
		"script":       res.State.Script,
		"interrupted":  res.Interrupted,
		"next_actions": decisionActions,
	})
}

// acceptScript resumes the suspended run with an accept decision, which
// carries it through image prompts to completion.
func (s *Server) acceptScript(c *gin.Context) {
	p, ok := s.loadProject(c)
	if !ok {
		return
	}

	tid := threadID(p.UserID, p.ID)
	unlock := s.locks.lock(tid)
	defer unlock()

	res, ok := s.runResume(c, tid, p, &workflow.Patch{Decision: workflow.DecisionAccept})
	if !ok {
		return
	}
	if res.State.Error != "" {
		respondError(c, http.StatusBadGateway, "GENERATION_FAILED", res.State.Error)
		return
	}

	s.materialize(c, p, res.State)
	respondOK(c, http.StatusOK, "script accepted", gin.H{
		"project":       p,
		"image_prompts": res.State.ImagePrompts,
	})
}

// editScene resumes with a single-scene rewrite. The run passes through
// the rewrite stage and suspends at the decision stage again, so further
// edits or an accept can follow.
func (s *Server) editScene(c *gin.Context) {
	p, ok := s.loadProject(c)
	if !ok {
		return
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		respondError(c, http.StatusBadRequest, "BAD_REQUEST", "scene number must be a positive integer")
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	s.runEdit(c, p, &workflow.Patch{
		Decision:            workflow.DecisionEdit,
		SceneToEdit:         n,
		RewriteInstructions: req.Instructions,
		TriggerWord:         req.TriggerWord,
	})
}

// editAllScenes resumes with an all-scenes rewrite.
func (s *Server) editAllScenes(c *gin.Context) {
	p, ok := s.loadProject(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	s.runEdit(c, p, &workflow.Patch{
		Decision:            workflow.DecisionEdit,
		EditAllScenes:       true,
		RewriteInstructions: req.Instructions,
		TriggerWord:         req.TriggerWord,
	})
}

func (s *Server) runEdit(c *gin.Context, p *project.Project, patch *workflow.Patch) {
	tid := threadID(p.UserID, p.ID)
	unlock := s.locks.lock(tid)
	defer unlock()

	res, ok := s.runResume(c, tid, p, patch,
		workflow.WithInterruptBefore(workflow.StageDecideRewrite))
	if !ok {
		return
	}
	if res.State.Error != "" {
		respondError(c, http.StatusUnprocessableEntity, "REWRITE_FAILED", res.State.Error)
		return
	}

	s.materialize(c, p, res.State)
	respondOK(c, http.StatusOK, "scenes updated", gin.H{
		"project":      p,
		"script":       res.State.Script,
		"next_actions": decisionActions,
	})
}

// runResume resumes the thread from its checkpoint. When the checkpoint
// is gone (expired, or the run already completed) the state is rebuilt
// from the stored project so edits remain possible.
func (s *Server) runResume(c *gin.Context, tid string, p *project.Project, patch *workflow.Patch, opts ...workflow.InvokeOption) (*workflow.Result, bool) {
	ctx := c.Request.Context()

	res, err := s.resume.Resume(ctx, tid, nil, patch, opts...)
	if errors.Is(err, checkpoint.ErrNotFound) {
		if len(p.Scenes) == 0 {
			respondError(c, http.StatusConflict, "NO_ACTIVE_RUN", "no checkpoint and no stored scenes to resume from")
			return nil, false
		}
		s.logger.Info("checkpoint missing, rebuilding from project", "thread_id", tid)
		res, err = s.resume.Resume(ctx, tid, stateFromProject(p), patch, opts...)
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ENGINE_ERROR", err.Error())
		return nil, false
	}
	return res, true
}

// generateImagePrompts runs the image prompt stage over the stored
// scenes, outside any suspended run.
func (s *Server) generateImagePrompts(c *gin.Context) {
	p, ok := s.loadProject(c)
	if !ok {
		return
	}
	if len(p.Scenes) == 0 {
		respondError(c, http.StatusUnprocessableEntity, "NO_SCENES", "project has no scenes")
		return
	}

	tid := threadID(p.UserID, p.ID)
	unlock := s.locks.lock(tid)
	defer unlock()

	res, err := s.media.Invoke(c.Request.Context(), stateFromProject(p))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ENGINE_ERROR", err.Error())
		return
	}
	if res.State.Error != "" {
		respondError(c, http.StatusBadGateway, "GENERATION_FAILED", res.State.Error)
		return
	}

	s.materialize(c, p, res.State)
	respondOK(c, http.StatusOK, "image prompts generated", gin.H{
		"project":       p,
		"image_prompts": res.State.ImagePrompts,
	})
}

// generateImages renders an image for every scene that has a prompt but
// no image yet. Failures are reported per scene; successful scenes are
// persisted regardless.
func (s *Server) generateImages(c *gin.Context) {
	if s.images == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_CONFIGURED", "image generation is not configured")
		return
	}
	p, ok := s.loadProject(c)
	if !ok {
		return
	}

	var generated, failed []int
	for i := range p.Scenes {
		sc := &p.Scenes[i]
		if sc.ImagePrompt == "" || sc.Image != "" {
			continue
		}
		img, err := s.images.Generate(c.Request.Context(), sc.ImagePrompt)
		if err != nil {
			s.logger.Error("image generation failed", "scene", sc.Number, "error", err)
			failed = append(failed, sc.Number)
			continue
		}
		sc.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
		generated = append(generated, sc.Number)
	}

	if len(generated) > 0 {
		if err := s.projects.Update(c.Request.Context(), p); err != nil {
			respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
			return
		}
	}
	respondOK(c, http.StatusOK, "image generation finished", gin.H{
		"project":   p,
		"generated": generated,
		"failed":    failed,
	})
}

// generateVideos animates every scene image. Single-scene projects get
// the clip as the project video; multi-scene assembly is downstream.
func (s *Server) generateVideos(c *gin.Context) {
	if s.videos == nil {
		respondError(c, http.StatusServiceUnavailable, "NOT_CONFIGURED", "video generation is not configured")
		return
	}
	p, ok := s.loadProject(c)
	if !ok {
		return
	}

	var generated, failed []int
	for i := range p.Scenes {
		sc := &p.Scenes[i]
		if sc.Image == "" || sc.Video != "" {
			continue
		}
		if sc.ImagePrompt == "" {
			failed = append(failed, sc.Number)
			continue
		}
		input, err := videogen.NormalizeBase64(sc.Image)
		if err != nil {
			s.logger.Error("scene image unusable", "scene", sc.Number, "error", err)
			failed = append(failed, sc.Number)
			continue
		}
		clip, err := s.videos.Generate(c.Request.Context(), imageprompt.VideoPrompt(sc.ImagePrompt), input)
		if err != nil {
			s.logger.Error("video generation failed", "scene", sc.Number, "error", err)
			failed = append(failed, sc.Number)
			continue
		}
		sc.Video = videogen.VideoDataURI(clip)
		generated = append(generated, sc.Number)
	}

	if len(p.Scenes) == 1 && p.Scenes[0].Video != "" {
		p.Video = p.Scenes[0].Video
	}
	if len(generated) > 0 {
		if err := s.projects.Update(c.Request.Context(), p); err != nil {
			respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
			return
		}
	}
	respondOK(c, http.StatusOK, "video generation finished", gin.H{
		"project":   p,
		"generated": generated,
		"failed":    failed,
	})
}

// projectStatus reports where in the pipeline a project is and what the
// client can do next.
func (s *Server) projectStatus(c *gin.Context) {
	p, ok := s.loadProject(c)
	if !ok {
		return
	}

	step := "created"
	var actions []string
	var version int

	snap, err := s.checkpoints.Get(c.Request.Context(), threadID(p.UserID, p.ID))
	switch {
	case err == nil:
		step = "awaiting_decision"
		actions = decisionActions
		version = snap.Version
	case !errors.Is(err, checkpoint.ErrNotFound):
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	case len(p.Scenes) > 0:
		step, actions = mediaStep(p)
	}

	respondOK(c, http.StatusOK, "", gin.H{
		"project_id":         p.ID,
		"step":               step,
		"checkpoint_version": version,
		"next_actions":       actions,
	})
}

// mediaStep classifies a project past script acceptance.
func mediaStep(p *project.Project) (string, []string) {
	videos, images, prompts := 0, 0, 0
	for _, sc := range p.Scenes {
		if sc.Video != "" {
			videos++
		}
		if sc.Image != "" {
			images++
		}
		if sc.ImagePrompt != "" {
			prompts++
		}
	}
	switch {
	case videos == len(p.Scenes):
		return "videos_generated", nil
	case images > 0:
		return "images_generated", []string{"generate_video"}
	case prompts > 0:
		return "image_prompts_generated", []string{"generate_images"}
	default:
		return "script_generated", []string{"generate_image_prompts"}
	}
}

func (s *Server) getProject(c *gin.Context) {
	p, ok := s.loadProject(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"project": p})
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.projects.List(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"projects": projects})
}

func (s *Server) loadProject(c *gin.Context) (*project.Project, bool) {
	p, err := s.projects.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, project.ErrNotFound) {
		respondError(c, http.StatusNotFound, "PROJECT_NOT_FOUND", "project not found")
		return nil, false
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error())
		return nil, false
	}
	return p, true
}

// materialize syncs the workflow state into the stored project. Media
// artifacts already attached to scenes survive script edits as long as
// the scene number still exists.
func (s *Server) materialize(c *gin.Context, p *project.Project, st *workflow.State) {
	existing := make(map[int]project.StoredScene, len(p.Scenes))
	for _, sc := range p.Scenes {
		existing[sc.Number] = sc
	}

	scenes := make([]project.StoredScene, 0, len(st.Scenes))
	for _, sc := range st.Scenes {
		// Stored scene text stays placeholder-stable so trigger words
		// can be substituted later.
		sc.Story = script.EnforcePlaceholder(sc.Story)
		stored := existing[sc.Number]
		stored.Number = sc.Number
		stored.Title = sc.Title
		stored.Script = sc.Block()
		stored.StoryContext = sc.Story
		scenes = append(scenes, stored)
	}
	for _, ip := range st.ImagePrompts {
		for i := range scenes {
			if scenes[i].Number == ip.SceneNumber {
				scenes[i].ImagePrompt = ip.ImagePrompt
			}
		}
	}

	p.Scenes = scenes
	p.NumScenes = st.NumScenes
	p.Creativity = st.Creativity
	if st.ProjectType != "" {
		p.ProjectType = st.ProjectType
	}
	if st.TriggerWord != "" {
		p.TriggerWord = st.TriggerWord
	}

	if err := s.projects.Update(c.Request.Context(), p); err != nil {
		s.logger.Error("project update failed", "project_id", p.ID, "error", err)
	}
}

// stateFromProject rebuilds a workflow state from stored scenes, for
// resuming after the checkpoint is gone.
func stateFromProject(p *project.Project) *workflow.State {
	st := &workflow.State{
		Concept:      p.Concept,
		NumScenes:    p.NumScenes,
		Creativity:   p.Creativity,
		TriggerWord:  p.TriggerWord,
		ProjectType:  p.ProjectType,
		Temperature:  script.TemperatureFor(script.NormalizeCreativity(p.Creativity)),
		ProjectID:    p.ID,
		ProjectTitle: p.Title,
		UserID:       p.UserID,
	}
	for _, sc := range p.Scenes {
		story := sc.StoryContext
		if story == "" {
			story = sc.Script
		}
		st.Scenes = append(st.Scenes, script.Scene{
			Number: sc.Number,
			Title:  sc.Title,
			Story:  story,
		})
	}
	st.RebuildScript()
	return st
}
