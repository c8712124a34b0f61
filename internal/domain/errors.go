package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidRequest marks client input errors.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound marks lookups of unknown ledger records.
var ErrNotFound = errors.New("not found")

// UploadRejectedError is returned when the upload policy blocks a file.
type UploadRejectedError struct {
	Filename string
	Reason   string
}

func (e *UploadRejectedError) Error() string {
	if e.Filename == "" {
		return "upload rejected: " + e.Reason
	}
	if e.Reason == "" {
		return fmt.Sprintf("upload %q rejected by policy", e.Filename)
	}
	return fmt.Sprintf("upload %q rejected by policy: %s", e.Filename, e.Reason)
}

// Invalid wraps ErrInvalidRequest with a message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

// HTTPStatus maps an error returned by the service layer to an HTTP status code.
func HTTPStatus(err error) int {
	var rejected *UploadRejectedError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &rejected):
		if rejected.Reason == ReasonTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
