// Package imagegen generates images through a ComfyUI server. A prompt
// is queued over HTTP and the rendered image arrives as a binary frame
// on the server's websocket, emitted by the SaveImageWebsocket node.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const saveImageNode = "SaveImageWebsocket"

// Binary frames carry an event type and format header before the image
// payload.
const binaryHeaderLen = 8

// Client talks to one ComfyUI server.
type Client struct {
	addr       string // host:port
	httpClient *http.Client
	dialer     *websocket.Dialer
	clientID   string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for queueing prompts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a ComfyUI client for the given host:port address.
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		addr:       addr,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     websocket.DefaultDialer,
		clientID:   uuid.New().String(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// queueResponse is ComfyUI's reply to POST /prompt.
type queueResponse struct {
	PromptID string `json:"prompt_id"`
}

// executingMessage is the websocket progress event we care about. Node
// is nil when execution has finished.
type executingMessage struct {
	Type string `json:"type"`
	Data struct {
		PromptID string  `json:"prompt_id"`
		Node     *string `json:"node"`
	} `json:"data"`
}

// Generate renders one image for the prompt and returns the raw image
// bytes. Any non-success from the server is an opaque failure.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	workflow, err := buildWorkflow(prompt)
	if err != nil {
		return nil, fmt.Errorf("build workflow: %w", err)
	}

	wsURL := fmt.Sprintf("ws://%s/ws?clientId=%s", c.addr, c.clientID)
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to comfyui: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	promptID, err := c.queuePrompt(ctx, workflow)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("prompt queued", "prompt_id", promptID)

	var image []byte
	currentNode := ""
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read from comfyui: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			var msg executingMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type != "executing" || msg.Data.PromptID != promptID {
				continue
			}
			if msg.Data.Node == nil {
				// Execution is done
				if image == nil {
					return nil, fmt.Errorf("comfyui finished without producing an image")
				}
				return image, nil
			}
			currentNode = workflow.classType(*msg.Data.Node)

		case websocket.BinaryMessage:
			if currentNode == saveImageNode && len(data) > binaryHeaderLen {
				image = data[binaryHeaderLen:]
			}
		}
	}
}

// queuePrompt submits the workflow and returns the prompt ID.
func (c *Client) queuePrompt(ctx context.Context, wf workflow) (string, error) {
	body, err := json.Marshal(map[string]any{
		"prompt":    wf,
		"client_id": c.clientID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	url := fmt.Sprintf("http://%s/prompt", c.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("queue prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("queue prompt: status %d: %s", resp.StatusCode, msg)
	}

	var qr queueResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return "", fmt.Errorf("decode queue response: %w", err)
	}
	if qr.PromptID == "" {
		return "", fmt.Errorf("queue response missing prompt_id")
	}
	return qr.PromptID, nil
}
