package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/Herutriana44/kangtani.ai/internal/config"
)

func newTestClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(url, "gemma3n:e2b", config.DefaultModelOptions(), timeout, time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestClientChat(t *testing.T) {
	var gotReq ollama.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"gemma3n:e2b","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"Rotate your crops."},"done":true,"done_reason":"stop","eval_count":5}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	reply, err := client.Chat(context.Background(), "How do I keep soil healthy?")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply.Content != "Rotate your crops." {
		t.Fatalf("unexpected content: %q", reply.Content)
	}
	if reply.Model != "gemma3n:e2b" || reply.EvalCount != 5 || reply.DoneReason != "stop" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	if gotReq.Model != "gemma3n:e2b" {
		t.Fatalf("unexpected model: %s", gotReq.Model)
	}
	if gotReq.Stream == nil || *gotReq.Stream {
		t.Fatalf("expected stream=false")
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != config.DefaultSystemPrompt {
		t.Fatalf("unexpected system message: %+v", gotReq.Messages[0])
	}
	if gotReq.Messages[1].Role != "user" || gotReq.Messages[1].Content != "How do I keep soil healthy?" {
		t.Fatalf("unexpected user message: %+v", gotReq.Messages[1])
	}
	if gotReq.Options["temperature"] != 0.7 || gotReq.Options["top_p"] != 0.9 || gotReq.Options["num_predict"] != float64(2048) {
		t.Fatalf("unexpected options: %+v", gotReq.Options)
	}
}

func TestClientChatStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"model not loaded"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	_, err := client.Chat(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model server error: 500") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientChatStatusEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	_, err := client.Chat(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model server error: 502") {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Generate(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "model server error: 502") {
		t.Fatalf("unexpected generate error: %v", err)
	}
}

func TestClientChatEmptyEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"gemma3n:e2b","message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	_, err := client.Chat(context.Background(), "hello")
	if err != ErrInvalidResponse {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestClientChatTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 50*time.Millisecond)
	_, err := client.Chat(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestClientChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollama.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream == nil || !*req.Stream {
			t.Fatalf("expected stream=true")
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"model":"m","message":{"role":"assistant","content":"Water "},"done":false}`)
		fmt.Fprintln(w, `{"model":"m","message":{"role":"assistant","content":"early."},"done":false}`)
		fmt.Fprintln(w, `{"model":"m","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	var deltas []string
	reply, err := client.ChatStream(context.Background(), "when to water?", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if reply.Content != "Water early." || reply.Model != "m" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req ollama.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Prompt != "List three legumes." {
			t.Fatalf("unexpected prompt: %q", req.Prompt)
		}
		fmt.Fprint(w, `{"model":"gemma3n:e2b","response":"Beans, peas, lentils.","done":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	reply, err := client.Generate(context.Background(), "List three legumes.")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if reply.Content != "Beans, peas, lentils." {
		t.Fatalf("unexpected content: %q", reply.Content)
	}
}

func TestClientListModelsAndPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"models":[{"name":"gemma3n:e2b","model":"gemma3n:e2b","modified_at":"2024-01-01T00:00:00Z","size":42,"digest":"abc"}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0].Name != "gemma3n:e2b" || models[0].Size != 42 {
		t.Fatalf("unexpected models: %+v", models)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestClientPingUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url, time.Second)
	err := client.Ping(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "cannot connect to model server") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientPingTimeoutReportsHealthDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "gemma3n:e2b", config.DefaultModelOptions(), 10*time.Minute, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	err = client.Ping(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "timed out after 50ms") {
		t.Fatalf("expected health deadline in error, got %v", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("localhost", "m", config.DefaultModelOptions(), time.Second, time.Second); err == nil {
		t.Fatalf("expected error for URL without scheme")
	}
}
