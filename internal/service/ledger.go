package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

func (s *Service) record(ctx context.Context, rec *domain.RequestRecord) {
	if s.store == nil || rec.RequestID == "" {
		return
	}
	// the client may already be gone; the row is still written
	if err := s.store.RecordRequest(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("WARN: failed to record request %s: %v", rec.RequestID, err)
	}
}

func (s *Service) recordFailure(ctx context.Context, requestID string, endpoint domain.Endpoint, start time.Time, p prompt, err error) {
	status := domain.RequestStatusError
	var rejected *domain.UploadRejectedError
	if errors.Is(err, domain.ErrInvalidRequest) || errors.As(err, &rejected) {
		status = domain.RequestStatusRejected
	}
	s.record(ctx, &domain.RequestRecord{
		RequestID:   requestID,
		Endpoint:    endpoint,
		Status:      status,
		StatusCode:  domain.HTTPStatus(err),
		LatencyMs:   time.Since(start).Milliseconds(),
		PromptChars: len(p.text),
		HasAudio:    p.hasAudio,
		HasFile:     p.hasFile,
		Error:       err.Error(),
	})
}
