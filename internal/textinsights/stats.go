// Package textinsights computes simple statistics over plain text and serves
// the stateless text endpoints.
package textinsights

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	wordsPerMinute = 200
	minTextChars   = 50
)

// ErrTooShort is returned by Validate for text under the minimum length.
var ErrTooShort = errors.New("document must contain at least 50 characters")

var (
	sentencePattern  = regexp.MustCompile(`[^.!?]+[.!?]+`)
	paragraphPattern = regexp.MustCompile(`\n\s*\n\s*`)
	spacePattern     = regexp.MustCompile(`[^\S\n]+`)
	newlinePattern   = regexp.MustCompile(` ?\n ?`)
	breakPattern     = regexp.MustCompile(`\n{3,}`)
)

// Stats describes a text.
type Stats struct {
	WordCount            int    `json:"wordCount"`
	CharacterCount       int    `json:"characterCount"`
	SentenceCount        int    `json:"sentenceCount"`
	ParagraphCount       int    `json:"paragraphCount"`
	EstimatedReadingTime int    `json:"estimatedReadingTime"`
	Language             string `json:"language"`
}

// Analyze computes Stats for text. Reading time is in whole minutes at 200
// words per minute.
func Analyze(text string) Stats {
	words := len(strings.Fields(text))
	paragraphs := 0
	if strings.TrimSpace(text) != "" {
		paragraphs = len(paragraphPattern.Split(strings.TrimSpace(text), -1))
	}
	return Stats{
		WordCount:            words,
		CharacterCount:       utf8.RuneCountInString(text),
		SentenceCount:        len(sentencePattern.FindAllString(text, -1)),
		ParagraphCount:       paragraphs,
		EstimatedReadingTime: int(math.Ceil(float64(words) / wordsPerMinute)),
		Language:             "en",
	}
}

// Clean trims text, collapses runs of spaces and tabs, and keeps at most one
// blank line between paragraphs.
func Clean(text string) string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	text = spacePattern.ReplaceAllString(text, " ")
	text = newlinePattern.ReplaceAllString(text, "\n")
	return breakPattern.ReplaceAllString(text, "\n\n")
}

// Validate rejects text shorter than 50 characters after trimming.
func Validate(text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextChars {
		return ErrTooShort
	}
	return nil
}
