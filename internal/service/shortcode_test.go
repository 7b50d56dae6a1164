package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michel-pi/shortly/internal/util"
)

func TestNewShortCodeGenerator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     util.ShortCodeConfig
		wantErr bool
	}{
		{name: "default configuration", cfg: util.ShortCodeConfig{Alphabet: "0123456789abcdefghijklmnopqrstuvwxyz", Length: 8}},
		{name: "minimal alphabet", cfg: util.ShortCodeConfig{Alphabet: "abcdef", Length: 6}},
		{name: "maximal length", cfg: util.ShortCodeConfig{Alphabet: "abcdef", Length: 32}},
		{name: "alphabet too small", cfg: util.ShortCodeConfig{Alphabet: "abcde", Length: 8}, wantErr: true},
		{name: "duplicate characters", cfg: util.ShortCodeConfig{Alphabet: "abcdea", Length: 8}, wantErr: true},
		{name: "length too short", cfg: util.ShortCodeConfig{Alphabet: "abcdef", Length: 5}, wantErr: true},
		{name: "length too long", cfg: util.ShortCodeConfig{Alphabet: "abcdef", Length: 33}, wantErr: true},
		{name: "empty alphabet", cfg: util.ShortCodeConfig{Alphabet: "", Length: 8}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewShortCodeGenerator(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, gen)
		})
	}
}

func TestShortCodeGenerator_Generate(t *testing.T) {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	gen, err := NewShortCodeGenerator(&util.ShortCodeConfig{Alphabet: alphabet, Length: 8})
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code := gen.Generate()

		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(alphabet, r), "unexpected character %q in %q", r, code)
		}
		seen[code] = struct{}{}
	}

	// With 36^8 possible codes a duplicate inside 1000 draws would mean
	// the generator is not drawing uniformly.
	assert.Len(t, seen, 1000)
}

func TestShortCodeGenerator_GenerateMultiByteAlphabet(t *testing.T) {
	const alphabet = "äöüßéñ"

	gen, err := NewShortCodeGenerator(&util.ShortCodeConfig{Alphabet: alphabet, Length: 6})
	require.NoError(t, err)

	code := gen.Generate()
	runes := []rune(code)
	assert.Len(t, runes, 6)
	for _, r := range runes {
		assert.True(t, strings.ContainsRune(alphabet, r))
	}
}
