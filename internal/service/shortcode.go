package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/michel-pi/shortly/internal/util"
)

const (
	minAlphabetSize = 6
	minCodeLength   = 6
	maxCodeLength   = 32
)

// ShortCodeGenerator produces short URL codes from a configured alphabet.
// Generate is pure; persistence and collision retries belong to the caller.
type ShortCodeGenerator struct {
	alphabet []rune
	length   int
}

func NewShortCodeGenerator(cfg *util.ShortCodeConfig) (*ShortCodeGenerator, error) {
	alphabet, err := validateAlphabet(cfg.Alphabet)
	if err != nil {
		return nil, err
	}
	if cfg.Length < minCodeLength || cfg.Length > maxCodeLength {
		return nil, fmt.Errorf("short code length must be between %d and %d, got %d", minCodeLength, maxCodeLength, cfg.Length)
	}

	return &ShortCodeGenerator{
		alphabet: alphabet,
		length:   cfg.Length,
	}, nil
}

// Generate returns a code of exactly the configured length with every
// character drawn from the configured alphabet.
func (g *ShortCodeGenerator) Generate() string {
	alphabetSize := big.NewInt(int64(len(g.alphabet)))

	code := make([]rune, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the platform randomness source
			// is broken; nothing sensible can continue from there.
			panic(fmt.Sprintf("short code randomness unavailable: %v", err))
		}
		code[i] = g.alphabet[n.Int64()]
	}
	return string(code)
}

func validateAlphabet(alphabet string) ([]rune, error) {
	runes := []rune(alphabet)
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("short code alphabet contains duplicate character %q", r)
		}
		seen[r] = struct{}{}
	}
	if len(runes) < minAlphabetSize {
		return nil, fmt.Errorf("short code alphabet needs at least %d distinct characters, got %d", minAlphabetSize, len(runes))
	}
	return runes, nil
}
