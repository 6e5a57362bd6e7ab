package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "secret1" || hash == "" {
		t.Fatalf("hash must not equal or be empty: %q", hash)
	}
	// bcrypt hashes are self-describing: version, cost and salt are
	// embedded in the string itself.
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt formatted hash, got %q", hash)
	}

	if !VerifyPassword(hash, "secret1") {
		t.Fatalf("correct password did not verify")
	}
	if VerifyPassword(hash, "secret2") {
		t.Fatalf("wrong password verified")
	}
	if VerifyPassword("", "secret1") {
		t.Fatalf("empty hash verified")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	h2, err := HashPassword("same-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("two hashes of the same password must differ (random salt)")
	}
}
