package textinsights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docsense-backend/internal/summarize"
)

type stubGenerator struct {
	err      error
	lastText string
}

func (s *stubGenerator) Generate(ctx context.Context, kind summarize.Kind, text string) (string, error) {
	s.lastText = text
	if s.err != nil {
		return "", s.err
	}
	return string(kind) + " result", nil
}

func (s *stubGenerator) Summarize(ctx context.Context, text string) (summarize.Set, error) {
	s.lastText = text
	if s.err != nil {
		return summarize.Set{}, s.err
	}
	return summarize.Set{Summary: "s", KeyPoints: "k", ExecutiveSummary: "e", Analysis: "a"}, nil
}

func newRouter(gen Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(gen).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func post(r http.Handler, path, document string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"document": document})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

var longText = "  This report covers the quarterly results in detail.   It also lists risks.  "

func TestSummarizeEndpointCleansAndReturnsMetadata(t *testing.T) {
	gen := &stubGenerator{}
	rec := post(newRouter(gen), "/api/v1/text/summarize", longText)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gen.lastText != "This report covers the quarterly results in detail. It also lists risks." {
		t.Fatalf("unexpected cleaned text %q", gen.lastText)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Summary  string `json:"summary"`
			Metadata Stats  `json:"metadata"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.Summary != "summary result" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Data.Metadata.SentenceCount != 2 {
		t.Fatalf("expected 2 sentences, got %d", resp.Data.Metadata.SentenceCount)
	}
}

func TestTextEndpointsRejectShortDocuments(t *testing.T) {
	r := newRouter(&stubGenerator{})
	for _, path := range []string{"/summarize", "/executive-summary", "/key-points", "/analyze", "/process-full"} {
		rec := post(r, "/api/v1/text"+path, "short")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "at least 50 characters") {
			t.Fatalf("%s: unexpected body %s", path, rec.Body.String())
		}
	}
}

func TestProcessFullReturnsAllParts(t *testing.T) {
	rec := post(newRouter(&stubGenerator{}), "/api/v1/text/process-full", longText)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"summary", "keyPoints", "executiveSummary", "analysis", "metadata"} {
		if _, ok := resp.Data[key]; !ok {
			t.Fatalf("missing %s in %v", key, resp.Data)
		}
	}
}

func TestGenerationFailureReturns500(t *testing.T) {
	rec := post(newRouter(&stubGenerator{err: errors.New("provider down")}), "/api/v1/text/analyze", longText)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "provider down") {
		t.Fatalf("expected underlying error in body, got %s", rec.Body.String())
	}
}
