package pii

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskContactDetails(t *testing.T) {
	res := Mask("Contact me at alice@example.com or 555-123-4567.", DefaultOptions())

	assert.Contains(t, res.MaskedText, "a****@example.com")
	assert.Contains(t, res.MaskedText, "***-***-****")
	assert.NotContains(t, res.MaskedText, "alice@")
	assert.NotContains(t, res.MaskedText, "4567")
	assert.True(t, res.Detection.HasSensitiveData)
	assert.ElementsMatch(t, []Category{Email, Phone}, res.MaskedFields)
}

func TestMaskPerCategoryRules(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		opts  Options
		want  string
		field Category
	}{
		{
			name:  "ssn",
			in:    "SSN 123-45-6789 on file",
			opts:  DefaultOptions(),
			want:  "SSN ***-**-**** on file",
			field: SSN,
		},
		{
			name:  "credit card keeps last four",
			in:    "card 4111-1111-1111-1234 charged",
			opts:  DefaultOptions(),
			want:  "card ************1234 charged",
			field: CreditCard,
		},
		{
			name:  "credit card without separators",
			in:    "card 4111111111111111 end",
			opts:  DefaultOptions(),
			want:  "card ************1111 end",
			field: CreditCard,
		},
		{
			name:  "zip when enabled",
			in:    "Springfield 62704",
			opts:  Options{ZipCode: true},
			want:  "Springfield *****",
			field: ZipCode,
		},
		{
			name:  "ip keeps first two octets",
			in:    "host 192.168.10.20 down",
			opts:  Options{IPAddress: true, MaskChar: "#"},
			want:  "host 192.168.###.### down",
			field: IPAddress,
		},
		{
			name:  "url",
			in:    "see https://www.example.com/path?q=1 now",
			opts:  Options{URL: true},
			want:  "see [URL REDACTED] now",
			field: URL,
		},
		{
			name:  "date",
			in:    "signed 12/31/2024.",
			opts:  Options{Date: true},
			want:  "signed [DATE REDACTED].",
			field: Date,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res := Mask(tt.in, tt.opts)
			assert.Equal(t, tt.want, res.MaskedText)
			assert.Contains(t, res.MaskedFields, tt.field)
		})
	}
}

func TestMaskOverlapGoesToHigherPriorityCategory(t *testing.T) {
	res := Mask("card 4111111111111111 end", DefaultOptions())
	assert.Equal(t, []Category{CreditCard}, res.MaskedFields)

	all := Options{Email: true, Phone: true, SSN: true, CreditCard: true, ZipCode: true, IPAddress: true, URL: true, Date: true}
	res = Mask("call 555-123-4567 from 62704, card 4111 1111 1111 9876", all)
	assert.Equal(t, "call ***-***-**** from *****, card ************9876", res.MaskedText)
	assert.Equal(t, []Category{Phone, CreditCard, ZipCode}, res.MaskedFields)
}

func TestDefaultOptionsLeaveOptionalCategories(t *testing.T) {
	in := "Visit https://example.com from 10.0.0.1 before 01/02/2025 in 90210"
	res := Mask(in, DefaultOptions())

	assert.Equal(t, in, res.MaskedText)
	assert.Empty(t, res.MaskedFields)
	assert.True(t, res.Detection.HasSensitiveData)
	for _, c := range []Category{URL, IPAddress, Date, ZipCode} {
		assert.Contains(t, res.Detection.Categories, c)
	}
}

func TestMaskIsIdempotentForDefaults(t *testing.T) {
	inputs := []string{
		"Contact me at alice@example.com or 555-123-4567.",
		"SSN 123-45-6789, card 4111 1111 1111 1234, mail b@c.io",
		"Reach +1 (555) 123-4567 or bob.smith+tag@mail.example.org today",
		"nothing sensitive here",
		"",
	}
	for _, in := range inputs {
		once := Mask(in, DefaultOptions()).MaskedText
		twice := Mask(once, DefaultOptions()).MaskedText
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestDetectCounts(t *testing.T) {
	text := "a@b.co, c@d.co and e@f.co; call 555-123-4567"
	d := Detect(text)

	assert.True(t, d.HasSensitiveData)
	assert.Equal(t, 3, d.Counts[Email])
	assert.Equal(t, 1, d.Counts[Phone])
	_, hasSSN := d.Counts[SSN]
	assert.False(t, hasSSN)

	for _, c := range Categories {
		want := len(patterns[c].FindAllString(text, -1))
		assert.Equal(t, want, d.Counts[c], "category %s", c)
	}
}

func TestDetectEmpty(t *testing.T) {
	d := Detect("")
	assert.False(t, d.HasSensitiveData)
	assert.Empty(t, d.Categories)
}

func TestMaskedFieldRequiresMatchInOriginal(t *testing.T) {
	res := Mask("plain prose with no identifiers", DefaultOptions())
	assert.Empty(t, res.MaskedFields)
}

func TestProcessUsesDefaults(t *testing.T) {
	out := Process("write to carol@example.com")
	require.False(t, out.Failed)
	assert.Equal(t, "write to c****@example.com", out.MaskedText)
	assert.Equal(t, []Category{Email}, out.MaskedFields)
	assert.False(t, strings.Contains(out.MaskedText, "carol"))
}
