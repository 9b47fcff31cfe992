package textinsights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	text := "First sentence here. Second one!\n\nA new paragraph? Yes."
	s := Analyze(text)

	assert.Equal(t, 9, s.WordCount)
	assert.Equal(t, len(text), s.CharacterCount)
	assert.Equal(t, 4, s.SentenceCount)
	assert.Equal(t, 2, s.ParagraphCount)
	assert.Equal(t, 1, s.EstimatedReadingTime)
	assert.Equal(t, "en", s.Language)
}

func TestAnalyzeReadingTimeRoundsUp(t *testing.T) {
	text := strings.Repeat("word ", 401)
	assert.Equal(t, 3, Analyze(text).EstimatedReadingTime)
	assert.Equal(t, 2, Analyze(strings.Repeat("word ", 400)).EstimatedReadingTime)
}

func TestAnalyzeEmpty(t *testing.T) {
	s := Analyze("   ")
	assert.Zero(t, s.WordCount)
	assert.Zero(t, s.ParagraphCount)
	assert.Zero(t, s.EstimatedReadingTime)
}

func TestClean(t *testing.T) {
	cases := map[string]string{
		"  hello   world  ":           "hello world",
		"a\t\tb":                      "a b",
		"one\n\n\n\ntwo":              "one\n\ntwo",
		"line one  \n  line two":      "line one\nline two",
		"windows\r\n\r\nline endings": "windows\n\nline endings",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), "input %q", in)
	}
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate("too short"), ErrTooShort)
	assert.ErrorIs(t, Validate("   "+strings.Repeat("x", 49)+"   "), ErrTooShort)
	assert.NoError(t, Validate(strings.Repeat("x", 50)))
}
