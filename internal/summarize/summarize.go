// Package summarize produces the four derived texts for a document.
package summarize

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docsense-backend/internal/llm"
)

// ErrSummarization wraps any failure of the summary set.
var ErrSummarization = errors.New("summarization failed")

// DefaultSettings are the LLM settings for summarization calls.
var DefaultSettings = llm.Settings{Temperature: 0.5, MaxTokens: 2000, Retries: 2}

// Kind names one of the derived texts.
type Kind string

const (
	KindSummary          Kind = "summary"
	KindKeyPoints        Kind = "keyPoints"
	KindExecutiveSummary Kind = "executiveSummary"
	KindAnalysis         Kind = "analysis"
)

// Kinds lists every derived text.
var Kinds = []Kind{KindSummary, KindKeyPoints, KindExecutiveSummary, KindAnalysis}

// Set holds all four derived texts; it is only returned complete.
type Set struct {
	Summary          string `json:"summary"`
	KeyPoints        string `json:"keyPoints"`
	ExecutiveSummary string `json:"executiveSummary"`
	Analysis         string `json:"analysis"`
}

// Service issues the summarization prompts.
type Service struct {
	client   llm.Client
	prompts  map[Kind]llm.Prompt
	settings llm.Settings
}

// New builds a Service. client should already carry retry behaviour.
func New(client llm.Client) *Service {
	prompts := make(map[Kind]llm.Prompt, len(Kinds))
	for _, k := range Kinds {
		prompts[k] = llm.MustPrompt(string(k))
	}
	return &Service{client: client, prompts: prompts, settings: DefaultSettings}
}

// Generate runs a single prompt kind on text.
func (s *Service) Generate(ctx context.Context, kind Kind, text string) (string, error) {
	p, ok := s.prompts[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrSummarization, kind)
	}
	if s.client == nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSummarization, kind, llm.ErrNotConfigured)
	}
	out, err := s.client.Complete(ctx, llm.Request{
		Task:     string(kind),
		System:   p.System,
		User:     p.Render(text),
		Settings: s.settings,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSummarization, kind, err)
	}
	return out, nil
}

// Summarize issues all four prompts concurrently. The first failure cancels
// the remaining calls and no partial set is returned.
func (s *Service) Summarize(ctx context.Context, text string) (Set, error) {
	var set Set
	g, gctx := errgroup.WithContext(ctx)
	targets := map[Kind]*string{
		KindSummary:          &set.Summary,
		KindKeyPoints:        &set.KeyPoints,
		KindExecutiveSummary: &set.ExecutiveSummary,
		KindAnalysis:         &set.Analysis,
	}
	for _, k := range Kinds {
		k := k
		dst := targets[k]
		g.Go(func() error {
			out, err := s.Generate(gctx, k, text)
			if err != nil {
				return err
			}
			*dst = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Set{}, err
	}
	return set, nil
}
