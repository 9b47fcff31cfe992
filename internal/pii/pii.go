// Package pii detects and masks personal data in extracted document text.
//
// Detection always runs every pattern. Masking only rewrites the categories
// enabled in Options and records a category as masked when it matched the
// original text.
package pii

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category names a class of sensitive data.
type Category string

const (
	Email      Category = "email"
	Phone      Category = "phone"
	SSN        Category = "ssn"
	CreditCard Category = "creditCard"
	ZipCode    Category = "zipCode"
	IPAddress  Category = "ipAddress"
	URL        Category = "url"
	Date       Category = "date"
)

// Categories lists every category in reporting order.
var Categories = []Category{Email, Phone, SSN, CreditCard, ZipCode, IPAddress, URL, Date}

var patterns = map[Category]*regexp.Regexp{
	Email:      regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
	Phone:      regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	SSN:        regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	CreditCard: regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
	ZipCode:    regexp.MustCompile(`\b\d{5}(-\d{4})?\b`),
	IPAddress:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	URL:        regexp.MustCompile(`https?://(www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)`),
	Date:       regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`),
}

var cardSeparators = strings.NewReplacer("-", "", " ", "", "\t", "", "\n", "", "\r", "")

// Detection summarizes which categories occur in a text.
type Detection struct {
	HasSensitiveData bool
	Categories       []Category
	Counts           map[Category]int
}

// Options selects the categories to mask and the mask character.
type Options struct {
	Email      bool
	Phone      bool
	SSN        bool
	CreditCard bool
	ZipCode    bool
	IPAddress  bool
	URL        bool
	Date       bool
	MaskChar   string
}

// DefaultOptions masks email, phone, SSN and credit card numbers with '*'.
func DefaultOptions() Options {
	return Options{
		Email:      true,
		Phone:      true,
		SSN:        true,
		CreditCard: true,
		MaskChar:   "*",
	}
}

func (o Options) enabled(c Category) bool {
	switch c {
	case Email:
		return o.Email
	case Phone:
		return o.Phone
	case SSN:
		return o.SSN
	case CreditCard:
		return o.CreditCard
	case ZipCode:
		return o.ZipCode
	case IPAddress:
		return o.IPAddress
	case URL:
		return o.URL
	case Date:
		return o.Date
	}
	return false
}

// MaskResult is the output of Mask.
type MaskResult struct {
	MaskedText   string
	MaskedFields []Category
	Detection    Detection
}

// Outcome is what the ingestion pipeline records. Failed means masking
// panicked and MaskedText holds the original text.
type Outcome struct {
	MaskResult
	Failed bool
	Err    string
}

// Detect counts non-overlapping matches for every category.
func Detect(text string) Detection {
	d := Detection{Counts: map[Category]int{}}
	if text == "" {
		return d
	}
	for _, c := range Categories {
		if n := len(patterns[c].FindAllStringIndex(text, -1)); n > 0 {
			d.Counts[c] = n
			d.Categories = append(d.Categories, c)
		}
	}
	d.HasSensitiveData = len(d.Categories) > 0
	return d
}

// maskPriority decides which category owns text matched by several patterns.
// A bare 16-digit card number also satisfies the phone pattern, so card and
// SSN claim their spans before phone and zip do.
var maskPriority = []Category{Email, URL, IPAddress, CreditCard, SSN, Date, Phone, ZipCode}

type span struct {
	start, end int
	category   Category
}

// Mask rewrites enabled categories. Matches are taken from the original text;
// where two patterns overlap the category earlier in maskPriority wins, so
// the result does not depend on replacement order. MaskedFields lists, in
// Categories order, the categories that masked at least one span.
func Mask(text string, opts Options) MaskResult {
	mc := opts.MaskChar
	if mc == "" {
		mc = "*"
	}

	var spans []span
	hit := make(map[Category]bool)
	for _, c := range maskPriority {
		if !opts.enabled(c) {
			continue
		}
		for _, loc := range patterns[c].FindAllStringIndex(text, -1) {
			if overlapsAny(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, span{start: loc[0], end: loc[1], category: c})
			hit[c] = true
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(text[last:sp.start])
		b.WriteString(replacer(sp.category, mc)(text[sp.start:sp.end]))
		last = sp.end
	}
	b.WriteString(text[last:])

	var fields []Category
	for _, c := range Categories {
		if hit[c] {
			fields = append(fields, c)
		}
	}

	return MaskResult{
		MaskedText:   b.String(),
		MaskedFields: fields,
		Detection:    Detect(text),
	}
}

func overlapsAny(spans []span, start, end int) bool {
	for _, sp := range spans {
		if start < sp.end && sp.start < end {
			return true
		}
	}
	return false
}

// Process masks text with DefaultOptions and never panics.
func Process(text string) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{
				MaskResult: MaskResult{MaskedText: text, Detection: Detection{Counts: map[Category]int{}}},
				Failed:     true,
				Err:        fmt.Sprint(rec),
			}
		}
	}()
	return Outcome{MaskResult: Mask(text, DefaultOptions())}
}

func replacer(c Category, mc string) func(string) string {
	switch c {
	case Email:
		return func(m string) string {
			at := strings.IndexByte(m, '@')
			if at <= 0 {
				return m
			}
			local := m[:at]
			return local[:1] + strings.Repeat(mc, len(local)-1) + m[at:]
		}
	case Phone:
		return constant(strings.Repeat(mc, 3) + "-" + strings.Repeat(mc, 3) + "-" + strings.Repeat(mc, 4))
	case SSN:
		return constant(strings.Repeat(mc, 3) + "-" + strings.Repeat(mc, 2) + "-" + strings.Repeat(mc, 4))
	case CreditCard:
		return func(m string) string {
			digits := cardSeparators.Replace(m)
			return strings.Repeat(mc, 12) + digits[len(digits)-4:]
		}
	case ZipCode:
		return constant(strings.Repeat(mc, 5))
	case IPAddress:
		return func(m string) string {
			parts := strings.Split(m, ".")
			return parts[0] + "." + parts[1] + "." + strings.Repeat(mc, 3) + "." + strings.Repeat(mc, 3)
		}
	case URL:
		return constant("[URL REDACTED]")
	case Date:
		return constant("[DATE REDACTED]")
	}
	return func(m string) string { return m }
}

func constant(s string) func(string) string {
	return func(string) string { return s }
}
