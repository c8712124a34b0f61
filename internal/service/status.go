package service

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

// Debug listing bounds.
const (
	DefaultDebugLimit = 20
	MaxDebugLimit     = 200
)

// Health probes the model server. It never fails; an unreachable server is
// reported in the body.
func (s *Service) Health(ctx context.Context) *domain.HealthStatus {
	if err := s.llmClient.Ping(ctx); err != nil {
		log.Printf("WARN: health check failed: %v", err)
		return &domain.HealthStatus{
			Status: "unhealthy",
			Ollama: "disconnected",
			Error:  err.Error(),
		}
	}
	return &domain.HealthStatus{Status: "healthy", Ollama: "connected"}
}

// Debug reports service configuration and the most recent ledger records.
func (s *Service) Debug(ctx context.Context, limit int) (*domain.DebugInfo, error) {
	if limit <= 0 {
		limit = DefaultDebugLimit
	}
	if limit > MaxDebugLimit {
		limit = MaxDebugLimit
	}

	info := &domain.DebugInfo{
		Service:            "Kangtani.ai Backend API",
		Version:            Version,
		GoVersion:          runtime.Version(),
		UptimeSeconds:      time.Since(s.startedAt).Seconds(),
		Model:              s.llmClient.Model(),
		ModelURL:           s.config.OllamaURL,
		Transcriber:        s.audio.BackendName(),
		TranscriberReady:   s.audio.Available(),
		SupportedFileTypes: s.documents.SupportedExtensions(),
		MaxUploadMB:        s.config.MaxUploadMB,
		RecentRequests:     []domain.RequestRecord{},
	}
	if s.store == nil {
		return info, nil
	}

	stats, err := s.store.GetRequestStats(ctx)
	if err != nil {
		return nil, err
	}
	info.Stats = *stats

	recent, err := s.store.ListRecentRequests(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent requests: %w", err)
	}
	info.RecentRequests = recent
	return info, nil
}

// GetRequest returns one ledger record by request id.
func (s *Service) GetRequest(ctx context.Context, requestID string) (*domain.RequestRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	rec, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	return rec, nil
}

// ListModels returns the models installed on the model server.
func (s *Service) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	models, err := s.llmClient.ListModels(ctx)
	if err != nil {
		log.Printf("ERROR: failed to list models: %v", err)
		return nil, err
	}
	return models, nil
}
