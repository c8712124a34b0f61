package stt

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// WhisperTranscriber calls an OpenAI-compatible /audio/transcriptions endpoint,
// e.g. a local whisper.cpp server or the OpenAI API.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a transcriber for baseURL (including the /v1 prefix).
// apiKey may be empty for local servers.
func NewWhisperTranscriber(baseURL, apiKey, model string) (*WhisperTranscriber, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("whisper base URL is required")
	}
	if model == "" {
		model = openai.Whisper1
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Name identifies the backend.
func (w *WhisperTranscriber) Name() string {
	return "whisper:" + w.model
}

// Transcribe uploads the file and returns the trimmed transcript.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
