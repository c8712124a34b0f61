package store

import (
	"context"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

// Store persists request ledger records.
type Store interface {
	RecordRequest(ctx context.Context, rec *domain.RequestRecord) error
	GetRequest(ctx context.Context, requestID string) (*domain.RequestRecord, error)
	ListRecentRequests(ctx context.Context, limit int) ([]domain.RequestRecord, error)
	GetRequestStats(ctx context.Context) (*domain.RequestStats, error)
	Close() error
}
