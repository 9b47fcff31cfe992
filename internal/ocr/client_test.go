package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecognizeURLPostsFormAndJoinsResults(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		_, _ = w.Write([]byte(`{"ParsedResults":[{"ParsedText":"first page"},{"ParsedText":"second page \n"}],"IsErroredOnProcessing":false}`))
	}))
	defer server.Close()

	client := New(Options{APIKey: "secret", Endpoint: server.URL})
	text, err := client.RecognizeURL(context.Background(), "https://cdn.example.com/scan.png")
	if err != nil {
		t.Fatalf("RecognizeURL: %v", err)
	}
	if text != "first page\nsecond page" {
		t.Fatalf("unexpected text %q", text)
	}
	want := map[string]string{
		"apikey":            "secret",
		"language":          "eng",
		"isOverlayRequired": "false",
		"detectOrientation": "true",
		"url":               "https://cdn.example.com/scan.png",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestRecognizeURLProcessingError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "message list", body: `{"IsErroredOnProcessing":true,"ErrorMessage":["Unable to recognize the file type"]}`, want: "Unable to recognize the file type"},
		{name: "message string", body: `{"IsErroredOnProcessing":true,"ErrorMessage":"Timed out"}`, want: "Timed out"},
		{name: "details only", body: `{"IsErroredOnProcessing":true,"ErrorDetails":"bad url"}`, want: "bad url"},
		{name: "nothing", body: `{"IsErroredOnProcessing":true}`, want: "OCR processing failed"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(Options{APIKey: "k", Endpoint: server.URL}).RecognizeURL(context.Background(), "u")
			if err == nil || err.Error() != tt.want {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRecognizeURLRequiresKey(t *testing.T) {
	_, err := New(Options{}).RecognizeURL(context.Background(), "u")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("gateway"))
	}))
	defer server.Close()

	client := New(Options{APIKey: "k", Endpoint: server.URL})
	for i := 0; i < 5; i++ {
		_, err := client.RecognizeURL(context.Background(), "u")
		if err == nil || !strings.Contains(err.Error(), "ocr http status 502") {
			t.Fatalf("attempt %d: expected http error, got %v", i, err)
		}
	}
	_, err := client.RecognizeURL(context.Background(), "u")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable once the breaker opens, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected 5 upstream calls, got %d", calls)
	}
}
