package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Token format: snp_{secret}
// Example: snp_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	TokenPrefix    = "snp_"
	TokenSecretLen = 32 // hex encoded 16 bytes
)

var (
	// ErrInvalidTokenFormat indicates the token format is invalid.
	ErrInvalidTokenFormat = errors.New("invalid session token format")

	tokenFormatRegex = regexp.MustCompile(`^snp_[a-f0-9]{32}$`)
)

// GeneratedToken is a freshly minted session token.
type GeneratedToken struct {
	Plaintext string // returned to the client once
	Hash      string // Argon2id hash for storage
}

// GenerateToken creates a new session token and its hash.
func GenerateToken() (*GeneratedToken, error) {
	secret := make([]byte, TokenSecretLen/2)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	plaintext := TokenPrefix + hex.EncodeToString(secret)

	hash, err := HashToken(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{Plaintext: plaintext, Hash: hash}, nil
}

// ValidateTokenFormat checks if the token matches the expected format.
func ValidateTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}
