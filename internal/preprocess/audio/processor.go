// Package audio converts uploaded audio into text for the prompt.
package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"github.com/Herutriana44/kangtani.ai/internal/adapter/stt"
)

// Markers returned instead of errors.
const (
	MarkerTranscriptionFailed = "[Audio transcription failed]"
	MarkerWhisperFailed       = "[Whisper transcription failed]"
	MarkerValidationFailed    = "[Audio file validation failed]"
)

var audioExtensions = map[string]struct{}{
	".wav": {}, ".mp3": {}, ".m4a": {}, ".flac": {}, ".ogg": {}, ".aac": {}, ".wma": {},
}

// Processor turns audio bytes into prompt text. With a transcriber it returns
// the transcript; without one it returns a placeholder with the clip duration.
type Processor struct {
	transcriber stt.Transcriber
	tempDir     string
}

// NewProcessor creates a processor. t may be nil.
func NewProcessor(t stt.Transcriber) *Processor {
	return &Processor{transcriber: t}
}

// Available reports whether a transcription backend is configured.
func (p *Processor) Available() bool {
	return p.transcriber != nil
}

// BackendName names the transcription backend for /debug.
func (p *Processor) BackendName() string {
	if p.transcriber == nil {
		return stt.BackendNone
	}
	return p.transcriber.Name()
}

// TranscribeBase64 decodes b64 and transcribes it as a .wav clip.
func (p *Processor) TranscribeBase64(ctx context.Context, b64 string) string {
	data, err := DecodeBase64(b64)
	if err != nil {
		log.Printf("ERROR: audio transcription failed: %v", err)
		return MarkerTranscriptionFailed
	}
	return p.TranscribeBytes(ctx, data, "audio.wav")
}

// TranscribeBytes writes data to a temporary file named after filename's
// extension and transcribes it. The file is always removed.
func (p *Processor) TranscribeBytes(ctx context.Context, data []byte, filename string) string {
	path, err := p.writeTemp(data, filename)
	if err != nil {
		log.Printf("ERROR: audio transcription failed: %v", err)
		return MarkerTranscriptionFailed
	}
	defer os.Remove(path)

	if p.transcriber != nil {
		text, err := p.transcriber.Transcribe(ctx, path)
		if err != nil {
			log.Printf("ERROR: %s transcription failed: %v", p.transcriber.Name(), err)
			return MarkerWhisperFailed
		}
		return text
	}
	return validateWAV(path)
}

// Duration returns the length in seconds of a base64 encoded WAV clip.
func (p *Processor) Duration(b64 string) (float64, error) {
	data, err := DecodeBase64(b64)
	if err != nil {
		return 0, err
	}
	path, err := p.writeTemp(data, "audio.wav")
	if err != nil {
		return 0, err
	}
	defer os.Remove(path)

	return wavDuration(path)
}

func (p *Processor) writeTemp(data []byte, filename string) (string, error) {
	f, err := os.CreateTemp(p.tempDir, "kangtani-audio-*"+suffixFor(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}

func validateWAV(path string) string {
	seconds, err := wavDuration(path)
	if err != nil {
		log.Printf("ERROR: audio validation failed: %v", err)
		return MarkerValidationFailed
	}
	log.Printf("Audio file validated: %.2fs duration", seconds)
	return fmt.Sprintf("[Audio file received: %.2fs duration]", seconds)
}

func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, errors.New("not a valid WAV file")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, err
	}
	return dur.Seconds(), nil
}

// IsAudioFile reports whether filename has a known audio extension.
func IsAudioFile(filename string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func suffixFor(filename string) string {
	if IsAudioFile(filename) {
		return strings.ToLower(filepath.Ext(filename))
	}
	return ".wav"
}

// DecodeBase64 accepts standard, URL-safe and unpadded encodings, with or
// without a data URL prefix.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, errors.New("empty audio payload")
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to decode base64 audio: %w", lastErr)
}
