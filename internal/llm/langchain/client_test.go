package langchain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"docsense-backend/internal/llm"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestCompleteMapsRequest(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: " key points "}}}}
	client := NewWithModel(model)

	out, err := client.Complete(context.Background(), llm.Request{
		System:   "sys",
		User:     "usr",
		Settings: llm.Settings{Temperature: 0.3, MaxTokens: 500},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "key points" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(model.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(model.messages))
	}
	if model.messages[0].Role != llms.ChatMessageTypeSystem || model.messages[1].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("unexpected roles %v, %v", model.messages[0].Role, model.messages[1].Role)
	}
	if model.opts.Temperature != 0.3 || model.opts.MaxTokens != 500 {
		t.Fatalf("unexpected options %+v", model.opts)
	}
}

func TestCompleteWrapsErrors(t *testing.T) {
	boom := errors.New("http status 500")
	client := NewWithModel(&fakeModel{err: boom})
	_, err := client.Complete(context.Background(), llm.Request{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	client := NewWithModel(&fakeModel{resp: &llms.ContentResponse{}})
	_, err := client.Complete(context.Background(), llm.Request{})
	if err == nil || !strings.Contains(err.Error(), "missing choices") {
		t.Fatalf("expected missing choices error, got %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Model: "m"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
