package user

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}

	hash, err := HashPassword("s3cret", salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !VerifyPassword("s3cret", salt, hash) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	salt, _ := GenerateSaltHex()
	if _, err := HashPassword("", salt); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
