// Package langchain adapts langchaingo chat models to llm.Client.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"docsense-backend/internal/llm"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// Config configures the OpenAI-compatible langchaingo backend.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client wraps any langchaingo llms.Model.
type Client struct {
	model llms.Model
}

// New builds a Client on langchaingo's OpenAI-compatible model.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Model),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, lcopenai.WithBaseURL(base))
	}
	model, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return &Client{model: model}, nil
}

// NewWithModel wraps an existing model.
func NewWithModel(model llms.Model) *Client {
	return &Client{model: model}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}
	callOpts := []llms.CallOption{llms.WithTemperature(req.Settings.Temperature)}
	if req.Settings.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.Settings.MaxTokens))
	}

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("llm response missing choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Content)
	if out == "" {
		return "", fmt.Errorf("llm response empty content")
	}
	return out, nil
}

var _ llm.Client = (*Client)(nil)
