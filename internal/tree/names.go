package tree

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	// MaxNameLen is the longest name a one-byte length prefix can frame.
	MaxNameLen = 0xff
	// MaxContentLen is the largest file a one-byte length prefix can frame.
	MaxContentLen = 0xff
	// MaxDirectoryContentLen bounds the encoded children of one directory.
	MaxDirectoryContentLen = 0xffff
)

const forbiddenNameChars = `\/:*?"<>|`

// ValidateName reports whether name may be used for a non-root resource.
// The returned error wraps ErrInvalidName.
func ValidateName(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	}
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if n > MaxNameLen {
		return fmt.Errorf("%w: %d characters, limit is %d", ErrInvalidName, n, MaxNameLen)
	}

	blank := true
	for _, r := range name {
		switch {
		case r > 0xff:
			return fmt.Errorf("%w: character %q is outside the single-byte range", ErrInvalidName, r)
		case r < 0x20 || r == 0x7f:
			return fmt.Errorf("%w: control character %#x", ErrInvalidName, r)
		case strings.ContainsRune(forbiddenNameChars, r):
			return fmt.Errorf("%w: forbidden character %q", ErrInvalidName, r)
		}
		if !unicode.IsSpace(r) {
			blank = false
		}
	}
	if blank {
		return fmt.Errorf("%w: only whitespace", ErrInvalidName)
	}
	if strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: ends with '.'", ErrInvalidName)
	}
	return nil
}

// EncodeString converts s to its one-byte-per-character wire form.
func EncodeString(s string) ([]byte, error) {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedEncoding, err)
	}
	return b, nil
}

// DecodeString is the inverse of EncodeString. Every byte maps to a character.
func DecodeString(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// ISO-8859-1 assigns every byte value
		panic(err)
	}
	return string(s)
}
