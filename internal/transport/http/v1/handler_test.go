package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Herutriana44/kangtani.ai/internal/config"
	"github.com/Herutriana44/kangtani.ai/internal/domain"
	"github.com/Herutriana44/kangtani.ai/internal/preprocess/audio"
	"github.com/Herutriana44/kangtani.ai/internal/preprocess/document"
	"github.com/Herutriana44/kangtani.ai/internal/repository"
	"github.com/Herutriana44/kangtani.ai/internal/service"
	"github.com/Herutriana44/kangtani.ai/policy"
	"github.com/Herutriana44/kangtani.ai/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *helpers.FakeLLM, store.Store) {
	t.Helper()
	cfg := &config.Config{OllamaURL: "http://localhost:11434", MaxUploadMB: 1}
	db := helpers.NewTestSQLiteStore(t)
	llmClient := helpers.NewFakeLLM("Rotate your crops every season.")
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(db, llmClient, audio.NewProcessor(nil), document.NewParser(), cfg, policyEngine)
	return NewHandler(svc), llmClient, db
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path, field, filename string, data []byte, message string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if message != "" {
		if err := w.WriteField("message", message); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart close failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
}

func TestRoot(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.Root(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var body map[string]string
	decode(t, rec, &body)
	if body["message"] != "Kangtani.ai Backend API" || body["status"] != "running" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHealthAlwaysOK(t *testing.T) {
	e := echo.New()
	h, llmClient, _ := newTestHandler(t)
	llmClient.PingErr = errors.New("cannot connect to model server")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	if err := h.Health(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body domain.HealthStatus
	decode(t, rec, &body)
	if body.Status != "unhealthy" || body.Ollama != "disconnected" || body.Error == "" {
		t.Fatalf("unexpected health: %+v", body)
	}
}

func TestChatSuccess(t *testing.T) {
	e := echo.New()
	h, llmClient, db := newTestHandler(t)

	req := jsonRequest(http.MethodPost, "/chat", `{"message":"How do I improve clay soil?"}`)
	req.Header.Set(echo.HeaderXRequestID, "req_client1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.ChatResponse
	decode(t, rec, &resp)
	if resp.Response != "Rotate your crops every season." || resp.Status != "success" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID != "req_client1" {
		t.Fatalf("expected client request id, got %q", resp.RequestID)
	}
	if rec.Header().Get(echo.HeaderXRequestID) != "req_client1" {
		t.Fatalf("expected X-Request-ID header to be echoed")
	}
	if llmClient.LastMessage() != "How do I improve clay soil?" {
		t.Fatalf("unexpected model message: %q", llmClient.LastMessage())
	}

	rows, err := db.ListRecentRequests(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentRequests failed: %v", err)
	}
	if len(rows) != 1 || rows[0].RequestID != "req_client1" {
		t.Fatalf("unexpected ledger rows: %+v", rows)
	}
}

func TestChatValidation(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	cases := map[string]string{
		"malformed JSON": `{"message":`,
		"empty request":  `{"message":""}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(jsonRequest(http.MethodPost, "/chat", body), rec)
			if err := h.Chat(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var resp domain.ErrorResponse
			decode(t, rec, &resp)
			if resp.Status != "error" || resp.Detail == "" || !strings.HasPrefix(resp.RequestID, "req_") {
				t.Fatalf("unexpected error body: %+v", resp)
			}
		})
	}
}

func TestChatModelFailure(t *testing.T) {
	e := echo.New()
	h, llmClient, _ := newTestHandler(t)
	llmClient.Err = errors.New("request to model server timed out after 10m0s")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/chat", `{"message":"hi"}`), rec)
	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp domain.ErrorResponse
	decode(t, rec, &resp)
	if !strings.Contains(resp.Detail, "timed out") {
		t.Fatalf("unexpected detail: %q", resp.Detail)
	}
}

func TestChatFile(t *testing.T) {
	e := echo.New()
	h, llmClient, _ := newTestHandler(t)

	req := multipartRequest(t, "/chat/file", "file", "notes.txt", []byte("Plant maize in rows 75cm apart.\n"), "Summarize")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ChatFile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := "Summarize\n\nFile Context:\nPlant maize in rows 75cm apart."
	if llmClient.LastMessage() != want {
		t.Fatalf("unexpected model message: %q", llmClient.LastMessage())
	}
}

func TestChatFileErrors(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	cases := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"missing file part", multipartRequest(t, "/chat/file", "", "", nil, "hi"), http.StatusBadRequest},
		{"not multipart", jsonRequest(http.MethodPost, "/chat/file", `{"message":"hi"}`), http.StatusBadRequest},
		{"too large", multipartRequest(t, "/chat/file", "file", "big.txt", make([]byte, 2<<20), "hi"), http.StatusRequestEntityTooLarge},
		{"executable", multipartRequest(t, "/chat/file", "file", "run.exe", []byte("MZ"), "hi"), http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(tc.req, rec)
			if err := h.ChatFile(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestChatAudio(t *testing.T) {
	e := echo.New()
	h, llmClient, _ := newTestHandler(t)

	req := multipartRequest(t, "/chat/audio", "audio", "voice.wav", helpers.WAV(2), "Transcribe")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ChatAudio(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := "Transcribe [Audio: [Audio file received: 2.00s duration]]"
	if llmClient.LastMessage() != want {
		t.Fatalf("unexpected model message: %q", llmClient.LastMessage())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(multipartRequest(t, "/chat/audio", "file", "voice.wav", helpers.WAV(1), "x"), rec)
	if err := h.ChatAudio(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing audio part, got %d", rec.Code)
	}
}

func TestGenerate(t *testing.T) {
	e := echo.New()
	h, llmClient, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/generate", `{"prompt":"List drought tolerant crops"}`), rec)
	if err := h.Generate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(llmClient.Prompts) != 1 || llmClient.Prompts[0] != "List drought tolerant crops" {
		t.Fatalf("unexpected prompts: %v", llmClient.Prompts)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/generate", `{"prompt":""}`), rec)
	if err := h.Generate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDebug(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	for i := 0; i < 3; i++ {
		c := e.NewContext(jsonRequest(http.MethodPost, "/chat", `{"message":"hi"}`), httptest.NewRecorder())
		if err := h.Chat(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/debug?limit=2", nil), rec)
	if err := h.Debug(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var info domain.DebugInfo
	decode(t, rec, &info)
	if info.Stats.Total != 3 || len(info.RecentRequests) != 2 {
		t.Fatalf("unexpected debug info: total=%d recent=%d", info.Stats.Total, len(info.RecentRequests))
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/debug?limit=abc", nil), rec)
	if err := h.Debug(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDebugRequest(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/chat", `{"message":"hi"}`), rec)
	if err := h.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var chat domain.ChatResponse
	decode(t, rec, &chat)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/debug/requests/"+chat.RequestID, nil), rec)
	c.SetParamNames("request_id")
	c.SetParamValues(chat.RequestID)
	if err := h.DebugRequest(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got domain.RequestRecord
	decode(t, rec, &got)
	if got.RequestID != chat.RequestID || got.Endpoint != domain.EndpointChat || got.ReplyChars == 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/debug/requests/req_missing", nil), rec)
	c.SetParamNames("request_id")
	c.SetParamValues("req_missing")
	if err := h.DebugRequest(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestModels(t *testing.T) {
	e := echo.New()
	h, llmClient, _ := newTestHandler(t)
	llmClient.Models = []domain.ModelInfo{{Name: "gemma3n:e2b", Size: 5600000000}}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/models", nil), rec)
	if err := h.Models(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var body struct {
		Models []domain.ModelInfo `json:"models"`
	}
	decode(t, rec, &body)
	if len(body.Models) != 1 || body.Models[0].Name != "gemma3n:e2b" {
		t.Fatalf("unexpected models: %+v", body.Models)
	}

	llmClient.Err = errors.New("failed to communicate with model server")
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/models", nil), rec)
	if err := h.Models(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}
