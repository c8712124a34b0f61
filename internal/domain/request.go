package domain

import "time"

// RequestRecord is one row of the request ledger. It carries sizes and timings
// only; message, file and reply contents are never stored.
type RequestRecord struct {
	RequestID   string        `json:"request_id"`
	Endpoint    Endpoint      `json:"endpoint"`
	Status      RequestStatus `json:"status"`
	StatusCode  int           `json:"status_code"`
	LatencyMs   int64         `json:"latency_ms"`
	PromptChars int           `json:"prompt_chars"`
	ReplyChars  int           `json:"reply_chars"`
	HasAudio    bool          `json:"has_audio"`
	HasFile     bool          `json:"has_file"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RequestStats aggregates the ledger for /debug.
type RequestStats struct {
	Total        int64   `json:"total"`
	Success      int64   `json:"success"`
	Errors       int64   `json:"errors"`
	Rejected     int64   `json:"rejected"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs int64   `json:"max_latency_ms"`
}

// ModelInfo describes a model available on the model server.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string `json:"status"`
	Ollama string `json:"ollama"`
	Error  string `json:"error,omitempty"`
}

// DebugInfo is the body of GET /debug.
type DebugInfo struct {
	Service            string          `json:"service"`
	Version            string          `json:"version"`
	GoVersion          string          `json:"go_version"`
	UptimeSeconds      float64         `json:"uptime_seconds"`
	Model              string          `json:"model"`
	ModelURL           string          `json:"model_url"`
	Transcriber        string          `json:"transcriber"`
	TranscriberReady   bool            `json:"transcriber_available"`
	SupportedFileTypes []string        `json:"supported_file_types"`
	MaxUploadMB        int             `json:"max_upload_mb"`
	Stats              RequestStats    `json:"stats"`
	RecentRequests     []RequestRecord `json:"recent_requests"`
}
