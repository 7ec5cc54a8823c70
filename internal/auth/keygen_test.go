package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/snapurl/snapurl/internal/model"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if !strings.HasPrefix(tok.Plaintext, TokenPrefix) {
		t.Errorf("Token should start with %s, got: %s", TokenPrefix, tok.Plaintext)
	}
	if len(tok.Plaintext) != len(TokenPrefix)+TokenSecretLen {
		t.Errorf("Token length = %d, want %d", len(tok.Plaintext), len(TokenPrefix)+TokenSecretLen)
	}
	if !ValidateTokenFormat(tok.Plaintext) {
		t.Errorf("Generated token should pass format validation: %s", tok.Plaintext)
	}

	ok, err := VerifyToken(tok.Plaintext, tok.Hash)
	if err != nil || !ok {
		t.Errorf("Hash should verify the plaintext: ok=%v err=%v", ok, err)
	}
}

func TestValidateTokenFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  bool
	}{
		{"snp_0123456789abcdef0123456789abcdef", true},
		{"snp_0123456789ABCDEF0123456789ABCDEF", false},
		{"snp_0123", false},
		{"pk_live_abc123_0123456789abcdef0123456789abcdef", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidateTokenFormat(tt.token); got != tt.want {
			t.Errorf("ValidateTokenFormat(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestAuthContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if AuthFromContext(ctx) != nil {
		t.Error("empty context should carry no auth")
	}
	if SessionIDFromContext(ctx) != "" {
		t.Error("empty context should have no session ID")
	}

	ctx = ContextWithAuth(ctx, &model.AuthContext{SessionID: "sess-1"})
	if got := SessionIDFromContext(ctx); got != "sess-1" {
		t.Errorf("SessionIDFromContext() = %q, want sess-1", got)
	}
}
