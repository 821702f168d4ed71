package auth

import (
	"testing"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/config"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "agridirect",
		Audience:  "agridirect",
	}

	token, expiresAt, err := GenerateAccessToken(cfg, "u-1", "farmer", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "u-1" {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if claims.Role != "farmer" {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret-a", Issuer: "agridirect"}

	token, _, err := GenerateAccessToken(cfg, "u-1", "buyer", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	cfg.JWTSecret = "secret-b"
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}

func TestGenerateAccessTokenEmptySubject(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "test-secret"}
	if _, _, err := GenerateAccessToken(cfg, "", "buyer", time.Hour); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
