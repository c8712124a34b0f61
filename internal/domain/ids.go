package domain

import "github.com/google/uuid"

// NewRequestID returns a short request id such as "req_1a2b3c4d".
func NewRequestID() string {
	return "req_" + uuid.New().String()[:8]
}
