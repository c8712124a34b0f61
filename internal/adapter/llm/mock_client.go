package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

// MockClient is a mock implementation of LLMClient for running without a model server.
type MockClient struct {
	model string
}

// NewMockClient creates a new mock LLM client.
func NewMockClient(model string) *MockClient {
	if model == "" {
		model = "mock-model"
	}
	return &MockClient{model: model}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// Model returns the mock model name.
func (m *MockClient) Model() string {
	return m.model
}

// Chat returns a mock reply echoing the message.
func (m *MockClient) Chat(ctx context.Context, message string) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.reply(m.generateMockResponse(message)), nil
}

// ChatStream simulates a streaming reply.
func (m *MockClient) ChatStream(ctx context.Context, message string, fn DeltaFunc) (*Reply, error) {
	content := m.generateMockResponse(message)
	for _, chunk := range splitIntoChunks(content, 10) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := fn(chunk); err != nil {
			return nil, err
		}
	}
	return m.reply(content), nil
}

// Generate returns a mock completion.
func (m *MockClient) Generate(ctx context.Context, prompt string) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.reply(m.generateMockResponse(prompt)), nil
}

// ListModels returns the mock model.
func (m *MockClient) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	return []domain.ModelInfo{{Name: m.model, ModifiedAt: time.Now()}}, nil
}

// Ping always succeeds.
func (m *MockClient) Ping(ctx context.Context) error {
	return nil
}

func (m *MockClient) reply(content string) *Reply {
	return &Reply{
		Content:    content,
		Model:      m.model,
		DoneReason: "stop",
		EvalCount:  len(content) / 4,
	}
}

func (m *MockClient) generateMockResponse(message string) string {
	if message == "" {
		return "[MOCK] This is a mock response from the model client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(message, 100))
}

// splitIntoChunks splits a string into chunks of approximately the given
// number of runes.
func splitIntoChunks(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}

	runes := []rune(s)
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// truncate truncates a string to maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
