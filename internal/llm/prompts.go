package llm

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Prompt names in prompts.yaml.
const (
	PromptSummary          = "summary"
	PromptKeyPoints        = "keyPoints"
	PromptExecutiveSummary = "executiveSummary"
	PromptAnalysis         = "analysis"
	PromptClassify         = "classify"
)

const documentPlaceholder = "{{DOCUMENT}}"

//go:embed prompts.yaml
var promptsYAML []byte

// Prompt is a system message plus a user template containing {{DOCUMENT}}.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Render substitutes the document text into the user template.
func (p Prompt) Render(document string) string {
	return strings.ReplaceAll(p.User, documentPlaceholder, document)
}

var (
	promptsOnce sync.Once
	prompts     map[string]Prompt
	promptsErr  error
)

func loadPrompts() (map[string]Prompt, error) {
	promptsOnce.Do(func() {
		var parsed map[string]Prompt
		if err := yaml.Unmarshal(promptsYAML, &parsed); err != nil {
			promptsErr = fmt.Errorf("parse prompts.yaml: %w", err)
			return
		}
		prompts = parsed
	})
	return prompts, promptsErr
}

// LookupPrompt returns the named prompt from the embedded catalogue.
func LookupPrompt(name string) (Prompt, error) {
	all, err := loadPrompts()
	if err != nil {
		return Prompt{}, err
	}
	p, ok := all[name]
	if !ok || strings.TrimSpace(p.System) == "" || !strings.Contains(p.User, documentPlaceholder) {
		return Prompt{}, fmt.Errorf("prompt %q not found", name)
	}
	return p, nil
}

// MustPrompt is LookupPrompt for package-level initialisation.
func MustPrompt(name string) Prompt {
	p, err := LookupPrompt(name)
	if err != nil {
		panic(err)
	}
	return p
}
