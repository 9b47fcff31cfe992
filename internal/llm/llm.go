package llm

import (
	"context"
	"errors"
)

// Client abstracts chat-completion providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Settings are chosen per call site. Retries counts attempts after the first.
type Settings struct {
	Temperature float64
	MaxTokens   int
	Retries     int
}

// Request is one system+user exchange. Task labels metrics and logs.
type Request struct {
	Task     string
	System   string
	User     string
	Settings Settings
}

// ErrNotConfigured is returned when no provider credentials were supplied.
var ErrNotConfigured = errors.New("LLM provider not configured")

// Unconfigured fails every call with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}
