package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Herutriana44/kangtani.ai/internal/adapter/llm"
	"github.com/Herutriana44/kangtani.ai/internal/domain"
	"github.com/Herutriana44/kangtani.ai/internal/preprocess/document"
	"github.com/Herutriana44/kangtani.ai/policy"
)

// Separators used when composing the prompt.
const (
	audioPrefix   = " [Audio: "
	audioSuffix   = "]"
	fileSeparator = "\n\nFile Context:\n"
)

// prompt is a composed user message plus what went into it.
type prompt struct {
	text     string
	hasAudio bool
	hasFile  bool
}

func withAudio(message, audioText string) string {
	return message + audioPrefix + audioText + audioSuffix
}

func withFile(message, fileText string) string {
	return message + fileSeparator + fileText
}

// Chat handles POST /chat: optional inline audio and file content are folded
// into the message before a single model call.
func (s *Service) Chat(ctx context.Context, requestID string, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	start := time.Now()
	if req == nil || !req.HasInput() {
		err := domain.Invalid("message, audio_base64 or file_content is required")
		s.recordFailure(ctx, requestID, domain.EndpointChat, start, prompt{}, err)
		return nil, err
	}

	p := s.composeChat(ctx, requestID, req)
	return s.complete(ctx, requestID, domain.EndpointChat, start, p)
}

// ChatStream composes the prompt like Chat and streams the reply through fn.
func (s *Service) ChatStream(ctx context.Context, requestID string, req *domain.ChatRequest, fn llm.DeltaFunc) (*domain.ChatResponse, error) {
	start := time.Now()
	if req == nil || !req.HasInput() {
		err := domain.Invalid("message, audio_base64 or file_content is required")
		s.recordFailure(ctx, requestID, domain.EndpointChatWS, start, prompt{}, err)
		return nil, err
	}

	p := s.composeChat(ctx, requestID, req)
	s.logPrompt(requestID, p.text)

	reply, err := s.llmClient.ChatStream(ctx, p.text, fn)
	if err != nil {
		log.Printf("ERROR: [%s] streaming chat failed: %v", requestID, err)
		s.recordFailure(ctx, requestID, domain.EndpointChatWS, start, p, err)
		return nil, err
	}
	return s.finish(ctx, requestID, domain.EndpointChatWS, start, p, reply), nil
}

// ChatWithFile handles POST /chat/file. The parser output, marker or text,
// is always appended to the message.
func (s *Service) ChatWithFile(ctx context.Context, requestID, message string, upload *domain.Upload) (*domain.ChatResponse, error) {
	start := time.Now()
	p := prompt{text: message, hasFile: true}
	if err := s.admit(ctx, domain.EndpointChatFile, domain.UploadKindFile, upload); err != nil {
		s.recordFailure(ctx, requestID, domain.EndpointChatFile, start, p, err)
		return nil, err
	}

	log.Printf("[%s] parsing file %s (%.2f MB)", requestID, upload.Filename, document.SizeMB(upload.Data))
	fileText := s.documents.ParseFile(upload.Filename, upload.Data)
	p.text = withFile(message, fileText)

	return s.complete(ctx, requestID, domain.EndpointChatFile, start, p)
}

// ChatWithAudio handles POST /chat/audio. The transcript or marker is always
// appended to the message.
func (s *Service) ChatWithAudio(ctx context.Context, requestID, message string, upload *domain.Upload) (*domain.ChatResponse, error) {
	start := time.Now()
	p := prompt{text: message, hasAudio: true}
	if err := s.admit(ctx, domain.EndpointChatAudio, domain.UploadKindAudio, upload); err != nil {
		s.recordFailure(ctx, requestID, domain.EndpointChatAudio, start, p, err)
		return nil, err
	}

	audioText := s.audio.TranscribeBytes(ctx, upload.Data, upload.Filename)
	log.Printf("[%s] audio processed: %s", requestID, preview(audioText))
	p.text = withAudio(message, audioText)

	return s.complete(ctx, requestID, domain.EndpointChatAudio, start, p)
}

// Generate handles POST /generate: a bare prompt without the system prompt.
func (s *Service) Generate(ctx context.Context, requestID string, req *domain.GenerateRequest) (*domain.ChatResponse, error) {
	start := time.Now()
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		err := domain.Invalid("prompt is required")
		s.recordFailure(ctx, requestID, domain.EndpointGenerate, start, prompt{}, err)
		return nil, err
	}

	p := prompt{text: req.Prompt}
	s.logPrompt(requestID, p.text)

	reply, err := s.llmClient.Generate(ctx, p.text)
	if err != nil {
		log.Printf("ERROR: [%s] generate failed: %v", requestID, err)
		s.recordFailure(ctx, requestID, domain.EndpointGenerate, start, p, err)
		return nil, err
	}
	return s.finish(ctx, requestID, domain.EndpointGenerate, start, p, reply), nil
}

// composeChat applies audio first, then inline file content. Pre-processing
// that yields nothing leaves the message unchanged.
func (s *Service) composeChat(ctx context.Context, requestID string, req *domain.ChatRequest) prompt {
	p := prompt{text: req.Message}

	if req.AudioBase64 != "" {
		p.hasAudio = true
		if audioText := s.audio.TranscribeBase64(ctx, req.AudioBase64); audioText != "" {
			p.text = withAudio(p.text, audioText)
			log.Printf("[%s] audio transcribed: %s", requestID, preview(audioText))
		} else {
			log.Printf("WARN: [%s] audio produced no text, keeping original message", requestID)
		}
	}

	if req.FileContent != "" {
		p.hasFile = true
		if parsed := s.documents.ParseContent(req.FileContent); parsed != "" {
			p.text = withFile(p.text, parsed)
			log.Printf("[%s] file content added: %d chars", requestID, len(parsed))
		} else {
			log.Printf("WARN: [%s] file content was blank, keeping original message", requestID)
		}
	}

	return p
}

func (s *Service) complete(ctx context.Context, requestID string, endpoint domain.Endpoint, start time.Time, p prompt) (*domain.ChatResponse, error) {
	s.logPrompt(requestID, p.text)

	reply, err := s.llmClient.Chat(ctx, p.text)
	if err != nil {
		log.Printf("ERROR: [%s] %s failed: %v", requestID, endpoint, err)
		s.recordFailure(ctx, requestID, endpoint, start, p, err)
		return nil, err
	}
	return s.finish(ctx, requestID, endpoint, start, p, reply), nil
}

func (s *Service) finish(ctx context.Context, requestID string, endpoint domain.Endpoint, start time.Time, p prompt, reply *llm.Reply) *domain.ChatResponse {
	elapsed := time.Since(start)
	model := reply.Model
	if model == "" {
		model = s.llmClient.Model()
	}
	if s.config.Debug() {
		log.Printf("DEBUG: [%s] reply: %s", requestID, preview(reply.Content))
	}
	log.Printf("[%s] %s completed in %.2fs (%d chars)", requestID, endpoint, elapsed.Seconds(), len(reply.Content))

	s.record(ctx, &domain.RequestRecord{
		RequestID:   requestID,
		Endpoint:    endpoint,
		Status:      domain.RequestStatusSuccess,
		StatusCode:  domain.HTTPStatus(nil),
		LatencyMs:   elapsed.Milliseconds(),
		PromptChars: len(p.text),
		ReplyChars:  len(reply.Content),
		HasAudio:    p.hasAudio,
		HasFile:     p.hasFile,
	})

	return &domain.ChatResponse{
		Response:       reply.Content,
		Status:         string(domain.RequestStatusSuccess),
		RequestID:      requestID,
		ProcessingTime: elapsed.Seconds(),
		Model:          model,
	}
}

// admit runs the upload policy. A nil engine admits everything.
func (s *Service) admit(ctx context.Context, endpoint domain.Endpoint, kind domain.UploadKind, upload *domain.Upload) error {
	if upload == nil {
		return domain.Invalid(fmt.Sprintf("%s upload is required", kind))
	}
	if s.policyEngine == nil {
		return nil
	}

	decision, reason, err := s.policyEngine.Evaluate(ctx, policy.UploadInput{
		Kind:      string(kind),
		Filename:  upload.Filename,
		Extension: document.Extension(upload.Filename),
		SizeBytes: int64(len(upload.Data)),
		MaxBytes:  s.config.MaxUploadBytes(),
		Endpoint:  string(endpoint),
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate upload policy: %w", err)
	}
	if decision == domain.DecisionBlock {
		log.Printf("WARN: upload %s blocked by policy: %s", upload.Filename, reason)
		return &domain.UploadRejectedError{Filename: upload.Filename, Reason: reason}
	}
	return nil
}

func (s *Service) logPrompt(requestID, text string) {
	if s.config.Debug() {
		log.Printf("DEBUG: [%s] prompt: %s", requestID, preview(text))
	}
}

func preview(s string) string {
	const previewLen = 100
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
