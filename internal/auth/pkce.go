package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/oauth2"
)

// Challenge is a PKCE code verifier/challenge pair.
type Challenge struct {
	Verifier  string
	Challenge string
	Method    string
}

// NewChallenge generates a fresh PKCE pair using the S256 method.
func NewChallenge() Challenge {
	verifier := oauth2.GenerateVerifier()
	return Challenge{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Method:    "S256",
	}
}

// GenerateState creates a cryptographically random CSRF state token.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
