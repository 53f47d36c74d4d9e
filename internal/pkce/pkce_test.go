package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPKCEGeneration(t *testing.T) {
	tests := []struct {
		test func(t *testing.T)
		name string
	}{
		{
			name: "GenerateVerifier creates valid verifier",
			test: func(t *testing.T) {
				verifier, err := GenerateVerifier()
				require.NoError(t, err)

				assert.Len(t, verifier, 43)
				assert.NotContains(t, verifier, "=")
				assert.NotContains(t, verifier, "+")
				assert.NotContains(t, verifier, "/")
				assert.Equal(t, url.QueryEscape(verifier), verifier)
			},
		},
		{
			name: "GenerateVerifier creates unique values",
			test: func(t *testing.T) {
				verifiers := make(map[string]bool)
				for i := 0; i < 1000; i++ {
					v, err := GenerateVerifier()
					require.NoError(t, err)
					assert.False(t, verifiers[v], "Generated duplicate code verifier")
					verifiers[v] = true
				}
			},
		},
		{
			name: "ChallengeFromVerifier matches RFC 7636 appendix B",
			test: func(t *testing.T) {
				verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
				assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", ChallengeFromVerifier(verifier))
			},
		},
		{
			name: "ChallengeFromVerifier is deterministic",
			test: func(t *testing.T) {
				v, err := GenerateVerifier()
				require.NoError(t, err)
				assert.Equal(t, ChallengeFromVerifier(v), ChallengeFromVerifier(v))
			},
		},
		{
			name: "ChallengeFromVerifier handles empty verifier",
			test: func(t *testing.T) {
				h := sha256.Sum256([]byte(""))
				assert.Equal(t, base64.RawURLEncoding.EncodeToString(h[:]), ChallengeFromVerifier(""))
			},
		},
		{
			name: "NewPair links verifier and challenge",
			test: func(t *testing.T) {
				pair, err := NewPair()
				require.NoError(t, err)
				assert.Equal(t, ChallengeFromVerifier(pair.Verifier), pair.Challenge)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.test(t)
		})
	}
}
