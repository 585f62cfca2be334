// Package server exposes the scene generation pipeline over HTTP. Each
// project maps to one workflow thread; the interrupt/resume cycle of the
// engine becomes a sequence of API calls, with the checkpoint store
// carrying state between them.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/envisionhq/sceneflow/checkpoint"
	"github.com/envisionhq/sceneflow/project"
	"github.com/envisionhq/sceneflow/workflow"
)

// ImageGenerator produces an image for a prompt. Satisfied by
// *imagegen.Client.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// VideoGenerator animates a scene image under a motion prompt.
// Satisfied by *videogen.Client.
type VideoGenerator interface {
	Generate(ctx context.Context, prompt, inputImage string) ([]byte, error)
}

// Server wires stores, the workflow engine and the media clients behind
// a gin router.
type Server struct {
	projects    project.Store
	checkpoints checkpoint.Store
	stages      *workflow.Stages
	images      ImageGenerator
	videos      VideoGenerator
	logger      *slog.Logger
	token       string

	fresh  *workflow.Runner // entry: generate_script
	resume *workflow.Runner // entry: decide_rewrite
	media  *workflow.Runner // entry: generate_image_prompts

	locks threadLocks
}

// Option configures a Server.
type Option func(*Server)

// WithImageGenerator enables the image generation route.
func WithImageGenerator(g ImageGenerator) Option {
	return func(s *Server) { s.images = g }
}

// WithVideoGenerator enables the video generation route.
func WithVideoGenerator(g VideoGenerator) Option {
	return func(s *Server) { s.videos = g }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithAuthToken requires a static bearer token on /api routes.
func WithAuthToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// NewServer compiles the pipeline graphs and assembles the server.
func NewServer(projects project.Store, checkpoints checkpoint.Store, stages *workflow.Stages, opts ...Option) (*Server, error) {
	s := &Server{
		projects:    projects,
		checkpoints: checkpoints,
		stages:      stages,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	runnerOpts := []workflow.RunnerOption{
		workflow.WithCheckpointStore(checkpoints),
		workflow.WithRunnerLogger(s.logger),
	}

	var err error
	if s.fresh, err = workflow.NewScriptGraph(stages, workflow.StageGenerateScript).Compile(runnerOpts...); err != nil {
		return nil, fmt.Errorf("compile fresh graph: %w", err)
	}
	if s.resume, err = workflow.NewScriptGraph(stages, workflow.StageDecideRewrite).Compile(runnerOpts...); err != nil {
		return nil, fmt.Errorf("compile resume graph: %w", err)
	}
	if s.media, err = workflow.NewScriptGraph(stages, workflow.StageImagePrompts).Compile(runnerOpts...); err != nil {
		return nil, fmt.Errorf("compile media graph: %w", err)
	}
	return s, nil
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if s.token != "" {
		api.Use(s.bearerAuth())
	}

	api.POST("/projects", s.createProject)
	api.GET("/projects", s.listProjects)
	api.GET("/projects/:id", s.getProject)
	api.GET("/projects/:id/status", s.projectStatus)
	api.POST("/projects/:id/accept", s.acceptScript)
	api.POST("/projects/:id/scenes/:n/edit", s.editScene)
	api.POST("/projects/:id/edit-all", s.editAllScenes)
	api.POST("/projects/:id/image-prompts", s.generateImagePrompts)
	api.POST("/projects/:id/images", s.generateImages)
	api.POST("/projects/:id/video", s.generateVideos)

	return r
}

// requestLogger logs one line per request at Info.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// bearerAuth rejects requests whose Authorization header does not carry
// the configured token.
func (s *Server) bearerAuth() gin.HandlerFunc {
	want := "Bearer " + s.token
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != want {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing bearer token")
			c.Abort()
			return
		}
		c.Next()
	}
}

// threadID names the workflow thread for a user's project. One project
// is exactly one thread.
func threadID(userID, projectID string) string {
	return fmt.Sprintf("user-%s-%s", userID, projectID)
}

// threadLocks serializes workflow runs per thread. Two concurrent
// resumes of the same thread would race on the checkpoint; the second
// caller waits instead.
type threadLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *threadLocks) lock(key string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	tm, ok := l.m[key]
	if !ok {
		tm = &sync.Mutex{}
		l.m[key] = tm
	}
	l.mu.Unlock()

	tm.Lock()
	return tm.Unlock
}
