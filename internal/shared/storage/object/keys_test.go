package object

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHashUserKey(t *testing.T) {
	id := "guest:12345"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "separators", in: "a/b\\c.txt", want: "a_b_c.txt"},
		{name: "traversal", in: "../etc/passwd", wantErr: true},
		{name: "windows traversal", in: "..\\secret.txt", wantErr: true},
		{name: "dots inside name", in: "report..v2.pdf", want: "report..v2.pdf"},
		{name: "control characters", in: "scan\x00\n.png", want: "scan.png"},
		{name: "only dots", in: "...", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Fatalf("expected ErrInvalidName, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestSanitizeFileNameCapsLengthKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 100) + ".docx")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if len(got) > maxNameBytes {
		t.Fatalf("expected at most %d bytes, got %d", maxNameBytes, len(got))
	}
	if !strings.HasSuffix(got, ".docx") || !utf8.ValidString(got) {
		t.Fatalf("unexpected truncated name %q", got)
	}
}

func TestNewKeyIsUniquePerCall(t *testing.T) {
	k1, err := NewKey("u-1", "scan.png")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	k2, _ := NewKey("u-1", "scan.png")
	if k1 == k2 {
		t.Fatalf("expected distinct keys, got %s twice", k1)
	}
	if !strings.HasPrefix(k1, HashUserKey("u-1")+"/") || !strings.HasSuffix(k1, "_scan.png") {
		t.Fatalf("unexpected key layout: %s", k1)
	}
}
