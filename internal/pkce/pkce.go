// Package pkce implements the Proof Key for Code Exchange helpers (RFC 7636)
// used by the authorization-code flow.
package pkce

import (
	"fmt"

	"golang.org/x/oauth2"
)

// MethodS256 is the only challenge method this package produces.
const MethodS256 = "S256"

// Pair holds a code verifier and the challenge derived from it.
// A pair lives for a single redirect round-trip.
type Pair struct {
	Verifier  string
	Challenge string
}

// GenerateVerifier returns 32 bytes from crypto/rand encoded as unpadded
// base64url, which yields a 43 character verifier.
func GenerateVerifier() (verifier string, err error) {
	// oauth2.GenerateVerifier panics if the system random source fails
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to generate code verifier: %v", r)
		}
	}()
	return oauth2.GenerateVerifier(), nil
}

// ChallengeFromVerifier returns base64url(SHA-256(verifier)) without padding.
func ChallengeFromVerifier(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// NewPair generates a fresh verifier and its S256 challenge.
func NewPair() (*Pair, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, err
	}
	return &Pair{
		Verifier:  verifier,
		Challenge: ChallengeFromVerifier(verifier),
	}, nil
}
