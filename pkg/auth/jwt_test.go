package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	m := NewJWTManager("test-secret", time.Minute)

	signed, err := m.Issue("user-1", "student@campus.edu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := m.Parse(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("expected user id user-1, got %s", claims.UserID)
	}
	if claims.Email != "student@campus.edu" {
		t.Errorf("expected email student@campus.edu, got %s", claims.Email)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := NewJWTManager("secret-a", time.Minute).Issue("user-1", "a@b.c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Minute).Parse(signed); err == nil {
		t.Error("expected parse to fail with a different secret")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	signed, err := m.Issue("user-1", "a@b.c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Parse(signed); err == nil {
		t.Error("expected parse to fail for expired token")
	}
}

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher()

	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := h.Compare(hash, "secret123"); err != nil {
		t.Errorf("expected matching password to compare clean, got %v", err)
	}
	if err := h.Compare(hash, "wrong-password"); err == nil {
		t.Error("expected mismatched password to fail")
	}
}
