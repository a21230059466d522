package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Correct-Horse1")
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	if hash == "" {
		t.Fatal("HashPassword() returned empty string")
	}

	// Verify PHC format: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("HashPassword() expected 6 parts, got %d: %q", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("HashPassword() algorithm = %q, want %q", parts[1], "argon2id")
	}
	if parts[2] != "v=19" {
		t.Errorf("HashPassword() version = %q, want %q", parts[2], "v=19")
	}
	if parts[3] != "m=65536,t=3,p=2" {
		t.Errorf("HashPassword() params = %q, want %q", parts[3], "m=65536,t=3,p=2")
	}
	if strings.Contains(hash, "Correct-Horse1") {
		t.Error("HashPassword() leaked the plaintext into the encoded hash")
	}
}

func TestVerifyPasswordCorrect(t *testing.T) {
	password := "My-secure-password"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	if !VerifyPassword(password, hash) {
		t.Error("VerifyPassword() returned false for correct password")
	}
}

func TestVerifyPasswordWrong(t *testing.T) {
	hash, err := HashPassword("Correct-password")
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	for _, candidate := range []string{"Wrong-password", "correct-password", "Correct-password ", ""} {
		if VerifyPassword(candidate, hash) {
			t.Errorf("VerifyPassword(%q) returned true for wrong password", candidate)
		}
	}
}

func TestHashPasswordProducesDifferentHashes(t *testing.T) {
	password := "Same-password"

	hash1, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	if hash1 == hash2 {
		t.Error("HashPassword() produced identical hashes for same password (salt should differ)")
	}
}

func TestVerifyPasswordMalformedHashFailsClosed(t *testing.T) {
	malformed := []string{
		"",
		"invalid-hash-format",
		"$argon2id$v=19$m=65536,t=3,p=2$onlysalt",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=65536,t=0,p=2$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
		"$2b$10$short",
	}
	for _, h := range malformed {
		if VerifyPassword("password", h) {
			t.Errorf("VerifyPassword() accepted malformed hash %q", h)
		}
	}
}

func TestVerifyPasswordLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("Legacy-pass1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() unexpected error: %v", err)
	}

	if !VerifyPassword("Legacy-pass1", string(legacy)) {
		t.Error("VerifyPassword() rejected a valid legacy bcrypt hash")
	}
	if VerifyPassword("Legacy-pass2", string(legacy)) {
		t.Error("VerifyPassword() accepted a wrong password against a legacy hash")
	}
	if !NeedsRehash(string(legacy)) {
		t.Error("NeedsRehash() = false for a bcrypt hash, want true")
	}
}

func TestNeedsRehash(t *testing.T) {
	current, err := HashPassword("Fresh-pass1")
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}
	if NeedsRehash(current) {
		t.Error("NeedsRehash() = true for a hash with current parameters")
	}

	weaker := strings.Replace(current, "m=65536,t=3,p=2", "m=32768,t=2,p=1", 1)
	if !NeedsRehash(weaker) {
		t.Error("NeedsRehash() = false for weaker parameters")
	}
}
