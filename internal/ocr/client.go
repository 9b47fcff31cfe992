// Package ocr talks to an OCR.space compatible image text recognition API.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"docsense-backend/internal/shared/metrics"
	"docsense-backend/internal/shared/telemetry"
)

const (
	DefaultEndpoint = "https://api.ocr.space/parse/image"
	DefaultLanguage = "eng"
	defaultTimeout  = 120 * time.Second
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("OCR API key is not configured")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("OCR provider temporarily unavailable")
)

// Options configure a Client.
type Options struct {
	APIKey   string
	Endpoint string
	Language string
	Timeout  time.Duration
}

// Client recognizes text in images referenced by URL.
type Client struct {
	apiKey     string
	endpoint   string
	language   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func New(opts Options) *Client {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ocr",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Warn("ocr.breaker_state", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		endpoint:   endpoint,
		language:   lang,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
	ErrorDetails          json.RawMessage `json:"ErrorDetails"`
}

// RecognizeURL returns the text found in the image at imageURL. Parsed text of
// every result is joined with newlines and trimmed.
func (c *Client) RecognizeURL(ctx context.Context, imageURL string) (string, error) {
	if c == nil || c.apiKey == "" {
		return "", ErrNotConfigured
	}
	out, err := c.breaker.Execute(func() (any, error) {
		return c.recognize(ctx, imageURL)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.IncOCR("rejected")
		return "", ErrUnavailable
	}
	if err != nil {
		metrics.IncOCR("error")
		return "", err
	}
	metrics.IncOCR("ok")
	return out.(string), nil
}

func (c *Client) recognize(ctx context.Context, imageURL string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := []struct{ k, v string }{
		{"apikey", c.apiKey},
		{"language", c.language},
		{"isOverlayRequired", "false"},
		{"detectOrientation", "true"},
		{"url", imageURL},
	}
	for _, f := range fields {
		if err := form.WriteField(f.k, f.v); err != nil {
			return "", err
		}
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var parsed parseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("ocr http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return "", fmt.Errorf("ocr response parse: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		msg := firstMessage(parsed.ErrorMessage)
		if msg == "" {
			msg = firstMessage(parsed.ErrorDetails)
		}
		if msg == "" {
			msg = "OCR processing failed"
		}
		return "", errors.New(msg)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ocr http status %d", resp.StatusCode)
	}

	texts := make([]string, 0, len(parsed.ParsedResults))
	for _, r := range parsed.ParsedResults {
		texts = append(texts, r.ParsedText)
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

// firstMessage accepts either a JSON string or an array of strings.
func firstMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "; "))
	}
	return ""
}
