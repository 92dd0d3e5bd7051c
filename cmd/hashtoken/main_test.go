package main

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean command", "hash", "hash"},
		{"with hyphen", "do-thing", "do-thing"},
		{"shell metacharacters", "hash; rm -rf /", "hash__rm_-rf__"},
		{"newline injection", "hash\nfake", "hash_fake"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeCommand(tt.input); got != tt.want {
				t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenValidationLogic(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		confirm   string
		wantValid bool
	}{
		{"valid token", "supersecret1", "supersecret1", true},
		{"minimum length", "12345678", "12345678", true},
		{"too short", "1234567", "1234567", false},
		{"empty", "", "", false},
		{"mismatch", "supersecret1", "supersecret2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenBytes := []byte(tt.token)
			confirmBytes := []byte(tt.confirm)

			valid := len(tokenBytes) >= minTokenLength && bytes.Equal(tokenBytes, confirmBytes)
			if valid != tt.wantValid {
				t.Errorf("validation = %v, want %v", valid, tt.wantValid)
			}
		})
	}
}

func TestHashRoundTrip(t *testing.T) {
	token := []byte("correct-horse-battery")

	hash, err := bcrypt.GenerateFromPassword(token, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword failed: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, token); err != nil {
		t.Errorf("hash does not verify its own token: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte("wrong-token")); err == nil {
		t.Error("hash verified a different token")
	}
}
