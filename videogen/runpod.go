// Package videogen turns a scene image plus a motion prompt into a
// short video clip through a RunPod-style serverless endpoint: submit a
// job, poll its status until it completes, download the output.
package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Job status values reported by the endpoint.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

const (
	defaultModel        = "wan22"
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 200
)

// Client talks to one video generation endpoint.
type Client struct {
	baseURL      string // e.g. https://api.runpod.ai/v2/<endpoint-id>
	apiKey       string
	model        string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel overrides the generation model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithPolling overrides the status poll interval and retry budget.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.maxPolls = maxPolls
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a video generation client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		model:        defaultModel,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	Input submitInput `json:"input"`
}

type submitInput struct {
	GenerationType string `json:"generation_type"`
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	InputImage     string `json:"input_image"`
}

type jobResponse struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
}

// Generate submits a text-plus-image to video job, waits for it to
// complete and returns the downloaded video bytes.
func (c *Client) Generate(ctx context.Context, prompt, inputImage string) ([]byte, error) {
	jobID, err := c.submit(ctx, prompt, inputImage)
	if err != nil {
		return nil, err
	}
	c.logger.Info("video job submitted", "job_id", jobID)

	videoURL, err := c.pollUntilComplete(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return c.download(ctx, videoURL)
}

// submit queues the job and returns its ID.
func (c *Client) submit(ctx context.Context, prompt, inputImage string) (string, error) {
	body, err := json.Marshal(submitRequest{Input: submitInput{
		GenerationType: "textImage_to_video",
		Model:          c.model,
		Prompt:         prompt,
		InputImage:     inputImage,
	}})
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	var job jobResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/run", body, &job); err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("submit job: response missing id")
	}
	return job.ID, nil
}

// pollUntilComplete polls job status until COMPLETED and returns the
// first output URL. FAILED and CANCELLED are terminal errors; running
// out of the retry budget is a timeout.
func (c *Client) pollUntilComplete(ctx context.Context, jobID string) (string, error) {
	statusURL := c.baseURL + "/status/" + jobID

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		var job jobResponse
		if err := c.doJSON(ctx, http.MethodGet, statusURL, nil, &job); err != nil {
			c.logger.Warn("status poll failed", "job_id", jobID, "error", err)
		} else {
			switch job.Status {
			case StatusCompleted:
				if len(job.Output) == 0 || job.Output[0] == "" {
					return "", fmt.Errorf("job %s completed without output", jobID)
				}
				return job.Output[0], nil
			case StatusFailed, StatusCancelled:
				return "", fmt.Errorf("job %s ended with status %s", jobID, job.Status)
			default:
				c.logger.Debug("job in progress", "job_id", jobID, "status", job.Status)
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("poll job %s: %w", jobID, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}

	return "", fmt.Errorf("job %s did not complete within %d polls", jobID, c.maxPolls)
}

// download fetches the finished video.
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download video: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// doJSON issues an authenticated request and decodes a JSON response.
func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
