package service

import (
	"time"

	"github.com/Herutriana44/kangtani.ai/internal/adapter/llm"
	"github.com/Herutriana44/kangtani.ai/internal/config"
	"github.com/Herutriana44/kangtani.ai/internal/preprocess/audio"
	"github.com/Herutriana44/kangtani.ai/internal/preprocess/document"
	"github.com/Herutriana44/kangtani.ai/internal/repository"
	"github.com/Herutriana44/kangtani.ai/policy"
)

// Version is reported by /debug.
const Version = "1.0.0"

type Service struct {
	store        store.Store
	llmClient    llm.LLMClient
	audio        *audio.Processor
	documents    *document.Parser
	config       *config.Config
	policyEngine *policy.Engine
	startedAt    time.Time
}

// New creates the gateway service. store and policyEngine may be nil.
func New(store store.Store, llmClient llm.LLMClient, audioProcessor *audio.Processor, documents *document.Parser, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		llmClient:    llmClient,
		audio:        audioProcessor,
		documents:    documents,
		config:       cfg,
		policyEngine: policyEngine,
		startedAt:    time.Now(),
	}
}
