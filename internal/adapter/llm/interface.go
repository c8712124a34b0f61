// Package llm provides an abstraction over the model server.
package llm

import (
	"context"
	"time"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

// LLMClient defines the operations the gateway needs from the model server.
type LLMClient interface {
	// Chat sends the system prompt and one user message (non-streaming).
	Chat(ctx context.Context, message string) (*Reply, error)

	// ChatStream sends the same payload as Chat with streaming enabled.
	// fn is called for every non-empty delta.
	ChatStream(ctx context.Context, message string, fn DeltaFunc) (*Reply, error)

	// Generate sends a bare prompt to the generate endpoint.
	Generate(ctx context.Context, prompt string) (*Reply, error)

	// ListModels retrieves the models installed on the server.
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)

	// Ping checks that the server answers.
	Ping(ctx context.Context) error

	// Model is the configured model name.
	Model() string
}

// DeltaFunc receives streamed reply fragments.
type DeltaFunc func(delta string) error

// Reply is the text extracted from a model response envelope.
type Reply struct {
	Content       string
	Model         string
	DoneReason    string
	EvalCount     int
	TotalDuration time.Duration
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
