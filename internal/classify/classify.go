// Package classify assigns a document type from a closed set using an LLM.
// Every failure degrades to Other with zero confidence; callers never see an
// error from Classify.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"docsense-backend/internal/llm"
	"docsense-backend/internal/shared/telemetry"
)

// DocumentType is one of the closed classification labels.
type DocumentType string

const (
	Contract               DocumentType = "Contract"
	Invoice                DocumentType = "Invoice"
	Report                 DocumentType = "Report"
	Letter                 DocumentType = "Letter"
	Resume                 DocumentType = "Resume"
	LegalDocument          DocumentType = "Legal Document"
	TechnicalDocumentation DocumentType = "Technical Documentation"
	Presentation           DocumentType = "Presentation"
	Spreadsheet            DocumentType = "Spreadsheet"
	Form                   DocumentType = "Form"
	Other                  DocumentType = "Other"
)

// Types lists every label in prompt order.
var Types = []DocumentType{
	Contract, Invoice, Report, Letter, Resume, LegalDocument,
	TechnicalDocumentation, Presentation, Spreadsheet, Form, Other,
}

const (
	maxInputChars      = 3000
	defaultConfidence  = 0.5
	failedReasoning    = "Classification failed"
	defaultConcurrency = 4
)

// DefaultSettings are the LLM settings for classification calls.
var DefaultSettings = llm.Settings{Temperature: 0.3, MaxTokens: 500, Retries: 2}

// Result is a classification outcome. Degraded marks the fallback result, with
// Err carrying the cause.
type Result struct {
	DocumentType DocumentType `json:"documentType"`
	Confidence   float64      `json:"confidence"`
	Reasoning    string       `json:"reasoning"`
	Degraded     bool         `json:"-"`
	Err          error        `json:"-"`
}

// Input is one document for ClassifyBatch.
type Input struct {
	ID   string
	Text string
}

// BatchResult pairs an input id with its result.
type BatchResult struct {
	ID string `json:"id"`
	Result
}

// Classifier calls the LLM with the classification prompt.
type Classifier struct {
	client      llm.Client
	prompt      llm.Prompt
	settings    llm.Settings
	concurrency int
}

// New builds a Classifier. client should already carry retry behaviour.
func New(client llm.Client) *Classifier {
	return &Classifier{
		client:      client,
		prompt:      llm.MustPrompt(llm.PromptClassify),
		settings:    DefaultSettings,
		concurrency: defaultConcurrency,
	}
}

// Classify never returns an error; failures yield a degraded Other result.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if c == nil || c.client == nil {
		return degraded(llm.ErrNotConfigured)
	}
	raw, err := c.client.Complete(ctx, llm.Request{
		Task:     "classify",
		System:   c.prompt.System,
		User:     c.prompt.Render(truncate(text, maxInputChars)),
		Settings: c.settings,
	})
	if err != nil {
		telemetry.Warn("classify.failed", map[string]any{"error": err.Error()})
		return degraded(err)
	}
	res, err := parse(raw)
	if err != nil {
		telemetry.Warn("classify.parse_failed", map[string]any{"error": err.Error()})
		return degraded(err)
	}
	return res
}

// ClassifyBatch classifies inputs concurrently and returns results in input order.
func (c *Classifier) ClassifyBatch(ctx context.Context, inputs []Input) []BatchResult {
	out := make([]BatchResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	limit := defaultConcurrency
	if c != nil && c.concurrency > 0 {
		limit = c.concurrency
	}
	g.SetLimit(limit)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			out[i] = BatchResult{ID: in.ID, Result: c.Classify(gctx, in.Text)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

type wireResult struct {
	DocumentType string   `json:"documentType"`
	Confidence   *float64 `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
}

func parse(raw string) (Result, error) {
	var w wireResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &w); err != nil {
		return Result{}, fmt.Errorf("classification response parse: %w", err)
	}
	conf := defaultConfidence
	if w.Confidence != nil {
		conf = clamp(*w.Confidence)
	}
	return Result{
		DocumentType: Normalize(w.DocumentType),
		Confidence:   conf,
		Reasoning:    strings.TrimSpace(w.Reasoning),
	}, nil
}

// Normalize maps a label onto the closed set, case-insensitively, else Other.
func Normalize(label string) DocumentType {
	label = strings.TrimSpace(label)
	for _, t := range Types {
		if strings.EqualFold(label, string(t)) {
			return t
		}
	}
	return Other
}

// stripFences extracts the body of a ```json or ``` fenced block when present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, open := range []string{"```json", "```"} {
		idx := strings.Index(s, open)
		if idx < 0 {
			continue
		}
		rest := s[idx+len(open):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return s
}

func clamp(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func degraded(err error) Result {
	return Result{
		DocumentType: Other,
		Confidence:   0,
		Reasoning:    failedReasoning,
		Degraded:     true,
		Err:          err,
	}
}
