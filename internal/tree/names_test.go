package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "file.txt", false},
		{"latin-1", "résumé", false},
		{"inner space", "my file", false},
		{"dot file", ".hidden", false},
		{"max length", strings.Repeat("a", MaxNameLen), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxNameLen+1), true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"colon", "a:b", true},
		{"star", "a*", true},
		{"question", "a?", true},
		{"quote", `a"b`, true},
		{"angle", "<a>", true},
		{"pipe", "a|b", true},
		{"control", "a\x01b", true},
		{"delete", "a\x7fb", true},
		{"blank", "   ", true},
		{"trailing dot", "name.", true},
		{"dot", ".", true},
		{"wide rune", "日本", true},
		{"bad utf-8", "a\xffb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringEncoding(t *testing.T) {
	b, err := EncodeString("Ünïcødé")
	assert.NoError(t, err)
	assert.Len(t, b, 7)
	assert.Equal(t, "Ünïcødé", DecodeString(b))

	_, err = EncodeString("€")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	back, err := EncodeString(DecodeString(all))
	assert.NoError(t, err)
	assert.Equal(t, all, back)
}
