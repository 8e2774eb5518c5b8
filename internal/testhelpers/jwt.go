package testhelpers

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// SigningKey is an RSA key pair for signing test JWTs, with the JWKS document
// that validates them.
type SigningKey struct {
	Key   *rsa.PrivateKey
	KeyID string
}

// GenerateSigningKey generates an RSA 2048-bit key pair for JWT
// signing/verification.
func GenerateSigningKey(t *testing.T) SigningKey {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate private key")

	return SigningKey{Key: privateKey, KeyID: "test-kid"}
}

// JWKS returns the JSON key set document for the public half of the key,
// suitable for static JWKS configuration.
func (k SigningKey) JWKS(t *testing.T) string {
	t.Helper()

	set := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       &k.Key.PublicKey,
				KeyID:     k.KeyID,
				Algorithm: string(jose.RS256),
				Use:       "sig",
			},
		},
	}

	doc, err := json.Marshal(set)
	require.NoError(t, err, "failed to marshal JWKS")

	return string(doc)
}

// SignToken signs a JWT with the key, combining registered and custom claims.
func SignToken(t *testing.T, k SigningKey, claims jwt.Claims, custom any) string {
	t.Helper()

	signer, err := jose.NewSigner(
		jose.SigningKey{
			Algorithm: jose.RS256,
			Key:       jose.JSONWebKey{Key: k.Key, KeyID: k.KeyID},
		},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err, "failed to create signer")

	builder := jwt.Signed(signer).Claims(claims)
	if custom != nil {
		builder = builder.Claims(custom)
	}

	signed, err := builder.Serialize()
	require.NoError(t, err, "failed to sign JWT")

	return signed
}

// ValidClaims returns registered claims with valid timing fields. The token
// is valid from 1 minute ago until 1 minute from now.
func ValidClaims(issuer, subject, audience string) jwt.Claims {
	now := time.Now().UTC()

	return jwt.Claims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.Audience{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
		Expiry:    jwt.NewNumericDate(now.Add(1 * time.Minute)),
	}
}
