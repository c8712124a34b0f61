package helpers

import (
	"context"
	"strings"
	"sync"

	"github.com/Herutriana44/kangtani.ai/internal/adapter/llm"
	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

// FakeLLM is a scripted llm.LLMClient that records the messages it receives.
type FakeLLM struct {
	mu sync.Mutex

	Reply   string
	Deltas  []string
	Err     error
	PingErr error
	Models  []domain.ModelInfo

	Messages []string
	Prompts  []string
}

var _ llm.LLMClient = (*FakeLLM)(nil)

// NewFakeLLM returns a client that always answers reply.
func NewFakeLLM(reply string) *FakeLLM {
	return &FakeLLM{Reply: reply}
}

func (f *FakeLLM) Model() string { return "fake-model" }

func (f *FakeLLM) Chat(ctx context.Context, message string) (*llm.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, message)
	if f.Err != nil {
		return nil, f.Err
	}
	return &llm.Reply{Content: f.Reply, Model: "fake-model", DoneReason: "stop"}, nil
}

func (f *FakeLLM) ChatStream(ctx context.Context, message string, fn llm.DeltaFunc) (*llm.Reply, error) {
	f.mu.Lock()
	f.Messages = append(f.Messages, message)
	deltas, err := f.Deltas, f.Err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(deltas) == 0 {
		deltas = []string{f.Reply}
	}
	for _, d := range deltas {
		if err := fn(d); err != nil {
			return nil, err
		}
	}
	return &llm.Reply{Content: strings.Join(deltas, ""), Model: "fake-model", DoneReason: "stop"}, nil
}

func (f *FakeLLM) Generate(ctx context.Context, prompt string) (*llm.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return nil, f.Err
	}
	return &llm.Reply{Content: f.Reply, Model: "fake-model"}, nil
}

func (f *FakeLLM) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Models, nil
}

func (f *FakeLLM) Ping(ctx context.Context) error {
	return f.PingErr
}

// LastMessage returns the most recent chat message sent to the model.
func (f *FakeLLM) LastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Messages) == 0 {
		return ""
	}
	return f.Messages[len(f.Messages)-1]
}

// Fail makes every later call return err.
func (f *FakeLLM) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}
