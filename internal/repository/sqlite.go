package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			request_id TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL,
			status TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			prompt_chars INTEGER NOT NULL DEFAULT 0,
			reply_chars INTEGER NOT NULL DEFAULT 0,
			has_audio INTEGER NOT NULL DEFAULT 0,
			has_file INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRequest inserts a ledger record. A repeated request id replaces the
// earlier row, so a client-supplied X-Request-ID never fails a request.
func (s *SQLiteStore) RecordRequest(ctx context.Context, rec *domain.RequestRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	var errText sql.NullString
	if rec.Error != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO requests
			(request_id, endpoint, status, status_code, latency_ms, prompt_chars, reply_chars, has_audio, has_file, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, string(rec.Endpoint), string(rec.Status), rec.StatusCode, rec.LatencyMs,
		rec.PromptChars, rec.ReplyChars, rec.HasAudio, rec.HasFile, errText, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

const requestColumns = `request_id, endpoint, status, status_code, latency_ms, prompt_chars, reply_chars, has_audio, has_file, error, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*domain.RequestRecord, error) {
	var rec domain.RequestRecord
	var endpoint, status string
	var errText sql.NullString
	if err := row.Scan(&rec.RequestID, &endpoint, &status, &rec.StatusCode, &rec.LatencyMs,
		&rec.PromptChars, &rec.ReplyChars, &rec.HasAudio, &rec.HasFile, &errText, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Endpoint = domain.Endpoint(endpoint)
	rec.Status = domain.RequestStatus(status)
	if errText.Valid {
		rec.Error = errText.String
	}
	return &rec, nil
}

// GetRequest retrieves a ledger record by id. It returns nil when not found.
func (s *SQLiteStore) GetRequest(ctx context.Context, requestID string) (*domain.RequestRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE request_id = ?`, requestID)
	rec, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecentRequests returns up to limit records, newest first.
func (s *SQLiteStore) ListRecentRequests(ctx context.Context, limit int) ([]domain.RequestRecord, error) {
	query := `SELECT ` + requestColumns + ` FROM requests ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.RequestRecord{}
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetRequestStats aggregates the whole ledger.
func (s *SQLiteStore) GetRequestStats(ctx context.Context) (*domain.RequestStats, error) {
	var stats domain.RequestStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(latency_ms), 0),
			COALESCE(MAX(latency_ms), 0)
		FROM requests`,
		string(domain.RequestStatusSuccess), string(domain.RequestStatusError), string(domain.RequestStatusRejected),
	).Scan(&stats.Total, &stats.Success, &stats.Errors, &stats.Rejected, &stats.AvgLatencyMs, &stats.MaxLatencyMs)
	if err != nil {
		return nil, fmt.Errorf("failed to read request stats: %w", err)
	}
	return &stats, nil
}
