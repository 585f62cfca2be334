// Package config provides configuration loading and management for
// Sceneflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Sceneflow configuration
type Config struct {
	Model ModelConfig `yaml:"model"`
	NATS  NATSConfig  `yaml:"nats"`
	HTTP  HTTPConfig  `yaml:"http"`
	Image ImageConfig `yaml:"image"`
	Video VideoConfig `yaml:"video"`
}

// ModelConfig configures the LLM settings. Provider API keys are read
// from the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY), not from
// this file.
type ModelConfig struct {
	// Provider selects the LLM provider ("ollama", "openai", "anthropic")
	Provider string `yaml:"provider"`
	// Default is the default model to use (e.g., "llama3.1:8b")
	Default string `yaml:"default"`
	// Endpoint is the provider base URL (empty = provider default)
	Endpoint string `yaml:"endpoint"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// NATSConfig configures the NATS connection backing the checkpoint and
// project stores
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr"`
	// AuthToken, when set, is required as a bearer token on /api routes
	AuthToken string `yaml:"auth_token"`
}

// ImageConfig configures image generation
type ImageConfig struct {
	// ComfyUIAddr is the host:port of the ComfyUI server (empty = disabled)
	ComfyUIAddr string `yaml:"comfyui_addr"`
}

// VideoConfig configures video generation. The API key is read from the
// RUNPOD_API_KEY environment variable.
type VideoConfig struct {
	// Endpoint is the serverless endpoint base URL (empty = disabled)
	Endpoint string `yaml:"endpoint"`
	// Model is the generation model identifier
	Model string `yaml:"model"`
	// PollInterval is the delay between job status polls
	PollInterval time.Duration `yaml:"poll_interval"`
	// MaxPolls bounds how many status polls to attempt
	MaxPolls int `yaml:"max_polls"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider: "ollama",
			Default:  "llama3.1:8b",
			Endpoint: "http://localhost:11434",
			Timeout:  5 * time.Minute,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Image: ImageConfig{
			ComfyUIAddr: "",
		},
		Video: VideoConfig{
			Endpoint:     "",
			Model:        "wan22",
			PollInterval: 5 * time.Second,
			MaxPolls:     200,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Default == "" {
		return fmt.Errorf("model.default is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Video.Endpoint != "" {
		if c.Video.PollInterval <= 0 {
			return fmt.Errorf("video.poll_interval must be positive")
		}
		if c.Video.MaxPolls <= 0 {
			return fmt.Errorf("video.max_polls must be positive")
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Default != "" {
		c.Model.Default = other.Model.Default
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}
	if other.HTTP.AuthToken != "" {
		c.HTTP.AuthToken = other.HTTP.AuthToken
	}

	// Image
	if other.Image.ComfyUIAddr != "" {
		c.Image.ComfyUIAddr = other.Image.ComfyUIAddr
	}

	// Video
	if other.Video.Endpoint != "" {
		c.Video.Endpoint = other.Video.Endpoint
	}
	if other.Video.Model != "" {
		c.Video.Model = other.Video.Model
	}
	if other.Video.PollInterval != 0 {
		c.Video.PollInterval = other.Video.PollInterval
	}
	if other.Video.MaxPolls != 0 {
		c.Video.MaxPolls = other.Video.MaxPolls
	}
}
