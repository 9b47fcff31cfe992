package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docsense-backend/internal/services/health"
	"docsense-backend/internal/shared/config"
	"docsense-backend/internal/shared/server/middleware"
)

type echoRoutes struct{}

func (echoRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", func(c *gin.Context) { c.Status(http.StatusCreated) })
	rg.GET("/documents", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func TestHealthReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := health.NewService()
	svc.Register("database", func(ctx context.Context) error { return errors.New("connection refused") })

	r := NewRouter(RouterDeps{Health: svc})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "connection refused") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	NewRouter(RouterDeps{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 without checks, got %d", resp.Code)
	}
}

func TestUploadsShareIngestBucket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterDeps{
		Config:   config.Config{UploadRatePerMinute: 60, UploadBurst: 1},
		Handlers: []RouteRegistrar{echoRoutes{}},
		Limiter:  middleware.NewRateLimiter(nil),
	})

	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("X-User-Id", "u1")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := do(http.MethodPost, "/api/v1/documents/upload"); code != http.StatusCreated {
		t.Fatalf("first upload expected 201, got %d", code)
	}
	if code := do(http.MethodPost, "/api/v1/documents/upload"); code != http.StatusTooManyRequests {
		t.Fatalf("second upload expected 429, got %d", code)
	}
	if code := do(http.MethodGet, "/api/v1/documents"); code != http.StatusOK {
		t.Fatalf("reads must not share the upload bucket, got %d", code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
