package auth

import (
	"testing"

	"sonar/internal/sonarerr"
)

func TestHashAndVerifyPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Errorf("VerifyPassword() = false for the hashed password, want true")
	}
}

func TestVerifyPasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if VerifyPassword(hash, "wrong password") {
		t.Errorf("VerifyPassword() = true for a wrong password, want false")
	}
}

func TestVerifyPasswordRejectsMalformedStoredHash(t *testing.T) {
	tests := []string{
		"",
		"not-a-scrypt-hash",
		"$scrypt$bad$8$1$aabb$ccdd",
	}
	for _, stored := range tests {
		if VerifyPassword(stored, "anything") {
			t.Errorf("VerifyPassword(%q, ...) = true, want false", stored)
		}
	}
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	h2, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if h1 == h2 {
		t.Errorf("two HashPassword() calls for the same password produced identical output")
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(&Claims{IsAdmin: true}); err != nil {
		t.Errorf("RequireAdmin(admin) = %v, want nil", err)
	}
	err := RequireAdmin(&Claims{IsAdmin: false})
	if !sonarerr.Is(err, sonarerr.KindPermissionDenied) {
		t.Errorf("RequireAdmin(non-admin) = %v, want KindPermissionDenied", err)
	}
}

func TestNormalizeUsernameCaseFolds(t *testing.T) {
	if got := normalizeUsername("Alice"); got != "alice" {
		t.Errorf("normalizeUsername(%q) = %q, want %q", "Alice", got, "alice")
	}
}
