package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// ChallengeMethod is the only code challenge method this client sends.
const ChallengeMethod = "S256"

// PKCE is the per-attempt proof key pair. The verifier is revealed only at code exchange.
type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCE returns a fresh verifier (32 random bytes, base64url, 43 chars) and its S256 challenge.
func GeneratePKCE() PKCE {
	verifier := oauth2.GenerateVerifier()
	return PKCE{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Method:    ChallengeMethod,
	}
}

// GenerateState returns a random anti-forgery state token carrying 32 bytes of entropy.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
