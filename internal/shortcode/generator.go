// Package shortcode generates and validates short codes.
package shortcode

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"regexp"
)

const (
	// Alphabet is the character set for generated codes.
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Length of generated codes.
	Length = 6

	// MaxAttempts bounds collision retries.
	MaxAttempts = 1000
)

// ErrGenerationExhausted is returned when no free code was found within MaxAttempts.
var ErrGenerationExhausted = errors.New("short code generation exhausted")

// pattern matches both generated and custom codes: 3-20 chars of [A-Za-z0-9_-].
var pattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// Generator produces random short codes.
type Generator struct {
	rand        io.Reader
	maxAttempts int
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the randomness source.
func WithRand(r io.Reader) Option {
	return func(g *Generator) { g.rand = r }
}

// WithMaxAttempts overrides the collision retry cap.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator creates a Generator backed by crypto/rand.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rand:        rand.Reader,
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a code that is not in existing.
func (g *Generator) Generate(existing func(code string) bool) (string, error) {
	for i := 0; i < g.maxAttempts; i++ {
		code, err := g.random()
		if err != nil {
			return "", err
		}
		if existing == nil || !existing(code) {
			return code, nil
		}
	}
	return "", ErrGenerationExhausted
}

// random builds one code of Length characters.
func (g *Generator) random() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}

// ValidateCustom reports whether code is an acceptable user-supplied code.
func ValidateCustom(code string) bool {
	return pattern.MatchString(code)
}

// LooksLikeCode reports whether a path segment has short code syntax.
func LooksLikeCode(segment string) bool {
	return pattern.MatchString(segment)
}

// reserved are exact paths the HTTP router serves itself. /api is not
// one of them; only routes below it are.
var reserved = map[string]bool{
	"healthz": true,
	"readyz":  true,
	"metrics": true,
}

// IsReserved reports whether code would be shadowed by a fixed route.
func IsReserved(code string) bool {
	return reserved[code]
}
