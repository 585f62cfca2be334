package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/envisionhq/sceneflow/checkpoint"
	"github.com/envisionhq/sceneflow/config"
	"github.com/envisionhq/sceneflow/imagegen"
	"github.com/envisionhq/sceneflow/imageprompt"
	"github.com/envisionhq/sceneflow/llm"
	"github.com/envisionhq/sceneflow/project"
	apiserver "github.com/envisionhq/sceneflow/server"
	"github.com/envisionhq/sceneflow/videogen"
	"github.com/envisionhq/sceneflow/workflow"
)

// App wires the stores, the workflow engine and the API server.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	// Storage
	projects    *project.KVStore
	checkpoints *checkpoint.KVStore

	httpServer *http.Server
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Start initializes NATS, the stores and the HTTP server, and begins
// serving.
func (a *App) Start(ctx context.Context) error {
	if err := a.startNATS(ctx); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	projects, err := project.NewKVStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize project store: %w", err)
	}
	a.projects = projects

	checkpoints, err := checkpoint.NewKVStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize checkpoint store: %w", err)
	}
	a.checkpoints = checkpoints

	srv, err := a.buildServer()
	if err != nil {
		return err
	}

	a.httpServer = &http.Server{
		Addr:    a.cfg.HTTP.Addr,
		Handler: srv.Router(),
	}

	go func() {
		a.logger.Info("HTTP server listening", "addr", a.cfg.HTTP.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

// buildServer assembles the LLM client, the stage set and the API
// server from config.
func (a *App) buildServer() (*apiserver.Server, error) {
	client := llm.NewClient(llm.Endpoint{
		Provider: a.cfg.Model.Provider,
		URL:      a.cfg.Model.Endpoint,
		Model:    a.cfg.Model.Default,
	},
		llm.WithLogger(a.logger),
		llm.WithHTTPClient(&http.Client{Timeout: a.cfg.Model.Timeout}),
	)

	gen := imageprompt.NewGenerator(client, imageprompt.WithLogger(a.logger))
	stages := workflow.NewStages(client, gen, a.logger)

	opts := []apiserver.Option{apiserver.WithLogger(a.logger)}
	if a.cfg.HTTP.AuthToken != "" {
		opts = append(opts, apiserver.WithAuthToken(a.cfg.HTTP.AuthToken))
	}
	if a.cfg.Image.ComfyUIAddr != "" {
		opts = append(opts, apiserver.WithImageGenerator(
			imagegen.NewClient(a.cfg.Image.ComfyUIAddr, imagegen.WithLogger(a.logger))))
	}
	if a.cfg.Video.Endpoint != "" {
		opts = append(opts, apiserver.WithVideoGenerator(
			videogen.NewClient(a.cfg.Video.Endpoint, videoAPIKey(),
				videogen.WithModel(a.cfg.Video.Model),
				videogen.WithPolling(a.cfg.Video.PollInterval, a.cfg.Video.MaxPolls),
				videogen.WithLogger(a.logger))))
	}

	return apiserver.NewServer(a.projects, a.checkpoints, stages, opts...)
}

// videoAPIKey reads the serverless endpoint key from the environment,
// following the provider key convention.
func videoAPIKey() string {
	return os.Getenv("RUNPOD_API_KEY")
}

func (a *App) startNATS(ctx context.Context) error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		// Connect to external NATS
		a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		// Start embedded NATS server
		a.logger.Info("Starting embedded NATS server")
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		// Wait for server to be ready
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}

		a.embeddedServer = ns

		// Connect to embedded server
		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	// Get JetStream context
	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js

	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	a.logger.Info("Shutting down")

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("HTTP shutdown failed", "error", err)
		}
	}

	if a.natsConn != nil {
		a.natsConn.Drain()
		a.natsConn.Close()
	}

	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}

	a.logger.Info("Shutdown complete")
}

func serveCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(*logLevel)
			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}

			app := NewApp(cfg, logger)

			signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer signalCancel()

			if err := app.Start(signalCtx); err != nil {
				return err
			}

			<-signalCtx.Done()
			app.Shutdown(30 * time.Second)
			return nil
		},
	}
}
