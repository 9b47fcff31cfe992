package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"docsense-backend/internal/shared/metrics"
	"docsense-backend/internal/shared/telemetry"
)

var retryBaseDelay = 300 * time.Millisecond

type retrying struct {
	base Client
}

// WithRetry retries transient provider failures up to req.Settings.Retries
// times, waiting attempt*retryBaseDelay between tries, and records every call
// outcome.
func WithRetry(base Client) Client {
	if base == nil {
		return nil
	}
	return retrying{base: base}
}

func (r retrying) Complete(ctx context.Context, req Request) (string, error) {
	attempts := req.Settings.Retries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := r.base.Complete(ctx, req)
		if err == nil {
			metrics.IncLLMCall(req.Task, "ok")
			return out, nil
		}
		lastErr = err
		if attempt == attempts || !ShouldRetry(err) {
			break
		}
		metrics.IncLLMCall(req.Task, "retry")
		telemetry.Warn("llm.retry", map[string]any{
			"task":    req.Task,
			"attempt": attempt,
			"error":   err.Error(),
		})
		select {
		case <-time.After(time.Duration(attempt) * retryBaseDelay):
		case <-ctx.Done():
			metrics.IncLLMCall(req.Task, "error")
			return "", ctx.Err()
		}
	}
	metrics.IncLLMCall(req.Task, "error")
	return "", lastErr
}

// ShouldRetry reports whether err looks like a transient provider failure.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "http status 429") || strings.Contains(msg, "rate limit") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
