package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestNewChallenge(t *testing.T) {
	t.Run("uses the S256 method", func(t *testing.T) {
		c := NewChallenge()
		if c.Method != "S256" {
			t.Errorf("expected S256, got %s", c.Method)
		}
	})

	t.Run("challenge is the base64url SHA-256 of the verifier", func(t *testing.T) {
		c := NewChallenge()
		sum := sha256.Sum256([]byte(c.Verifier))
		want := base64.RawURLEncoding.EncodeToString(sum[:])
		if c.Challenge != want {
			t.Errorf("challenge does not match verifier digest")
		}
	})

	t.Run("verifiers are unique per flow", func(t *testing.T) {
		a := NewChallenge()
		b := NewChallenge()
		if a.Verifier == b.Verifier {
			t.Error("expected distinct verifiers")
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}

	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("expected distinct state tokens")
	}
}
