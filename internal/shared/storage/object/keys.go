package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for file names that cannot be stored safely.
var ErrInvalidName = errors.New("invalid file name")

const maxNameBytes = 120

// SanitizeFileName flattens separators into underscores, drops control
// characters and caps the length while keeping the extension. Names that try
// to climb out of their directory are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	for _, seg := range strings.FieldsFunc(s, isSeparator) {
		if seg == ".." {
			return "", ErrInvalidName
		}
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case isSeparator(r):
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = strings.Trim(s, ". ")
	if s == "" {
		return "", ErrInvalidName
	}
	return truncateName(s, maxNameBytes), nil
}

func isSeparator(r rune) bool { return r == '/' || r == '\\' }

func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := path.Ext(name)
	if len(ext) > limit/2 {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	cut := limit - len(ext)
	for cut > 0 && !isRuneStart(base[cut]) {
		cut--
	}
	return base[:cut] + ext
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// HashUserKey returns a path-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewKey builds "<user hash>/<random>_<name>" for a fresh upload.
func NewKey(userID, fileName string) (string, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return path.Join(HashUserKey(userID), id+"_"+name), nil
}
