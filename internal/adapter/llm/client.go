package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/Herutriana44/kangtani.ai/internal/config"
	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

const listTimeout = 10 * time.Second

// ErrInvalidResponse is returned when the response envelope carries no text.
var ErrInvalidResponse = errors.New("invalid response format from model server")

// Client talks to an Ollama server.
type Client struct {
	api           *ollama.Client
	baseURL       string
	model         string
	options       config.ModelOptions
	timeout       time.Duration
	healthTimeout time.Duration
}

// NewClient creates a new Ollama client. Per-call deadlines come from
// timeout (chat/generate) and healthTimeout (Ping).
func NewClient(baseURL, model string, opts config.ModelOptions, timeout, healthTimeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid model server URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid model server URL %q: scheme and host required", baseURL)
	}

	return &Client{
		api:           ollama.NewClient(u, &http.Client{Transport: statusTransport{base: http.DefaultTransport}}),
		baseURL:       baseURL,
		model:         model,
		options:       opts,
		timeout:       timeout,
		healthTimeout: healthTimeout,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a chat completion request (non-streaming).
func (c *Client) Chat(ctx context.Context, message string) (*Reply, error) {
	return c.chat(ctx, message, false, nil)
}

// ChatStream sends a streaming chat request.
func (c *Client) ChatStream(ctx context.Context, message string, fn DeltaFunc) (*Reply, error) {
	return c.chat(ctx, message, true, fn)
}

func (c *Client) chat(ctx context.Context, message string, stream bool, fn DeltaFunc) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &ollama.ChatRequest{
		Model: c.model,
		Messages: []ollama.Message{
			{Role: "system", Content: c.options.SystemPrompt},
			{Role: "user", Content: message},
		},
		Stream:  &stream,
		Options: c.optionsMap(),
	}

	var (
		text  strings.Builder
		reply Reply
	)
	err := c.api.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		if resp.Message.Content != "" {
			text.WriteString(resp.Message.Content)
			if fn != nil {
				if err := fn(resp.Message.Content); err != nil {
					return err
				}
			}
		}
		if resp.Done {
			reply.Model = resp.Model
			reply.DoneReason = resp.DoneReason
			reply.EvalCount = resp.EvalCount
			reply.TotalDuration = resp.TotalDuration
		}
		return nil
	})
	if err != nil {
		return nil, c.wrapError(err, c.timeout)
	}

	reply.Content = text.String()
	if reply.Content == "" {
		return nil, ErrInvalidResponse
	}
	if reply.Model == "" {
		reply.Model = c.model
	}
	return &reply, nil
}

// Generate sends a prompt to the generate endpoint (non-streaming).
func (c *Client) Generate(ctx context.Context, prompt string) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := false
	req := &ollama.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: c.optionsMap(),
	}

	var (
		text  strings.Builder
		reply Reply
	)
	err := c.api.Generate(ctx, req, func(resp ollama.GenerateResponse) error {
		text.WriteString(resp.Response)
		if resp.Done {
			reply.Model = resp.Model
			reply.DoneReason = resp.DoneReason
			reply.EvalCount = resp.EvalCount
			reply.TotalDuration = resp.TotalDuration
		}
		return nil
	})
	if err != nil {
		return nil, c.wrapError(err, c.timeout)
	}

	reply.Content = text.String()
	if reply.Content == "" {
		return nil, ErrInvalidResponse
	}
	if reply.Model == "" {
		reply.Model = c.model
	}
	return &reply, nil
}

// ListModels retrieves the list of installed models.
func (c *Client) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, c.wrapError(err, listTimeout)
	}

	models := make([]domain.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, domain.ModelInfo{
			Name:       m.Name,
			Size:       m.Size,
			Digest:     m.Digest,
			ModifiedAt: m.ModifiedAt,
		})
	}
	return models, nil
}

// Ping lists models with the health timeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	if _, err := c.api.List(ctx); err != nil {
		return fmt.Errorf("cannot connect to model server at %s: %w", c.baseURL, c.wrapError(err, c.healthTimeout))
	}
	return nil
}

func (c *Client) optionsMap() map[string]any {
	return map[string]any{
		"temperature": c.options.Temperature,
		"top_p":       c.options.TopP,
		"num_predict": c.options.NumPredict,
	}
}

func (c *Client) wrapError(err error, timeout time.Duration) error {
	var statusErr ollama.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("model server error: %d: %w", statusErr.StatusCode, err)
	}
	if isTimeout(err) {
		return fmt.Errorf("request to model server timed out after %s: %w", timeout, err)
	}
	return fmt.Errorf("failed to communicate with model server: %w", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// statusTransport turns an error status with an empty body into a
// StatusError; the api client only reports statuses that carry a body.
type statusTransport struct {
	base http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ollama.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
