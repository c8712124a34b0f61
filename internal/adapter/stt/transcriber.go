// Package stt provides speech-to-text backends for the audio pre-processor.
package stt

import (
	"context"
	"fmt"

	"github.com/Herutriana44/kangtani.ai/internal/config"
)

// Backend names accepted in STT_BACKEND.
const (
	BackendNone    = "none"
	BackendWhisper = "whisper"
)

// Transcriber turns an audio file on disk into text.
type Transcriber interface {
	// Name identifies the backend in /debug.
	Name() string
	// Transcribe reads the audio file at path and returns its text.
	Transcribe(ctx context.Context, path string) (string, error)
}

// NewTranscriber returns the backend selected by cfg.STTBackend.
// It returns nil for "none", meaning callers fall back to a placeholder.
func NewTranscriber(cfg *config.Config) (Transcriber, error) {
	switch cfg.STTBackend {
	case "", BackendNone:
		return nil, nil
	case BackendWhisper:
		w, err := NewWhisperTranscriber(cfg.WhisperURL, cfg.WhisperAPIKey, cfg.WhisperModel)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown transcription backend: %q", cfg.STTBackend)
	}
}
