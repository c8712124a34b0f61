package llm

import (
	"log"
	"strings"

	"github.com/Herutriana44/kangtani.ai/internal/config"
)

// ModeMock indicates mock mode should be used.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client based on cfg.Mode.
// If the mode is MOCK, returns a MockClient; otherwise returns an Ollama Client.
func NewLLMClient(cfg *config.Config) (LLMClient, error) {
	if strings.EqualFold(cfg.Mode, ModeMock) {
		log.Println("KANGTANI_MODE=MOCK detected, using mock model client")
		return NewMockClient(cfg.Model), nil
	}

	return NewClient(cfg.OllamaURL, cfg.Model, cfg.ModelOptions, cfg.ModelTimeout, cfg.HealthTimeout)
}
