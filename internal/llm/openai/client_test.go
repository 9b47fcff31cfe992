package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"docsense-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "llama", model: "llama-3.3-70b-versatile", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

type recordingServer struct {
	mu     sync.Mutex
	bodies []map[string]any
	paths  []string
	auth   []string
}

func (rs *recordingServer) record(t *testing.T, r *http.Request) int {
	t.Helper()
	defer r.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Errorf("decode request: %v", err)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.bodies = append(rs.bodies, payload)
	rs.paths = append(rs.paths, r.URL.Path)
	rs.auth = append(rs.auth, r.Header.Get("Authorization"))
	return len(rs.bodies)
}

func TestCompleteSendsSettingsAndMessages(t *testing.T) {
	rs := &recordingServer{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  a summary  "}}],"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "test-key", Model: "llama-3.3-70b-versatile", BaseURL: server.URL + "/openai/v1/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	out, err := client.Complete(context.Background(), llm.Request{
		Task:     "summary",
		System:   "sys",
		User:     "usr",
		Settings: llm.Settings{Temperature: 0.5, MaxTokens: 2000},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "a summary" {
		t.Fatalf("expected trimmed content, got %q", out)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.paths[0] != "/openai/v1/chat/completions" {
		t.Fatalf("unexpected path %q", rs.paths[0])
	}
	if rs.auth[0] != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", rs.auth[0])
	}
	body := rs.bodies[0]
	if body["temperature"] != 0.5 {
		t.Fatalf("expected temperature 0.5, got %v", body["temperature"])
	}
	if body["max_tokens"] != float64(2000) {
		t.Fatalf("expected max_tokens 2000, got %v", body["max_tokens"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", body["messages"])
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "sys" {
		t.Fatalf("unexpected system message %v", first)
	}
}

func TestCompleteOmitsTemperatureForDenylist(t *testing.T) {
	rs := &recordingServer{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.record(t, r)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "k", Model: "o3-mini", BaseURL: server.URL, NoTemperatureModels: []string{" O3-MINI "}})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), llm.Request{Settings: llm.Settings{Temperature: 0.3}}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.bodies[0]["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted for denylisted model")
	}
}

func TestCompleteUsesMaxCompletionTokensForGPT5(t *testing.T) {
	rs := &recordingServer{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.record(t, r)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "k", Model: "gpt-5-mini", BaseURL: server.URL})
	if _, err := client.Complete(context.Background(), llm.Request{Settings: llm.Settings{Temperature: 0.3, MaxTokens: 500}}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	body := rs.bodies[0]
	if _, ok := body["temperature"]; ok {
		t.Fatalf("expected no temperature for gpt-5")
	}
	if _, ok := body["max_tokens"]; ok {
		t.Fatalf("expected max_tokens to be omitted for gpt-5")
	}
	if body["max_completion_tokens"] != float64(500) {
		t.Fatalf("expected max_completion_tokens 500, got %v", body["max_completion_tokens"])
	}
}

func TestCompleteRetriesWithoutTemperature(t *testing.T) {
	rs := &recordingServer{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := rs.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported value: 'temperature' does not support 0.5 with this model.","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "k", Model: "gpt-4o-mini", BaseURL: server.URL})
	if _, err := client.Complete(context.Background(), llm.Request{Settings: llm.Settings{Temperature: 0.5}}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(rs.bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(rs.bodies))
	}
	if _, ok := rs.bodies[0]["temperature"]; !ok {
		t.Fatalf("expected first request to include temperature")
	}
	if _, ok := rs.bodies[1]["temperature"]; ok {
		t.Fatalf("expected retry request to omit temperature")
	}
}

func TestCompleteSurfacesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`upstream unavailable`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "k", Model: "gpt-4o-mini", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), llm.Request{})
	if err == nil || !strings.Contains(err.Error(), "http status 503") {
		t.Fatalf("expected http status error, got %v", err)
	}
	if !llm.ShouldRetry(err) {
		t.Fatalf("expected 503 to be retryable")
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
	if _, err := NewClient(Options{Model: "m"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
