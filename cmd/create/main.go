// This command is only used for local testing: it mints a locally-signed admin
// JWT for exercising the /admin routes against a local server configured with
// the matching static JWKS.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Audience string `env:"UTIL_AUDIENCE, default=storefront-admin"`
	Subject  string `env:"UTIL_SUBJECT, default=test-admin"`
	Issuer   string `env:"UTIL_ISSUER, default=https://local.testing"`
	Role     string `env:"UTIL_ROLE, default=admin"`
	Email    string `env:"UTIL_EMAIL, default=admin@local.testing"`
	Name     string `env:"UTIL_NAME, default=Local Admin"`
	KeyPath  string `env:"UTIL_KEY_PATH, default=.development/keys/jwk-sig-testing-priv.json"`
}

func main() {
	cfg := Config{}
	err := envconfig.Process(context.Background(), &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		os.Exit(1)
	}

	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading signing key: %v\n", err)
		os.Exit(1)
	}

	var key jose.JSONWebKey
	if err := json.Unmarshal(keyBytes, &key); err != nil {
		fmt.Fprintf(os.Stderr, "error loading signing key: %v\n", err)
		os.Exit(1)
	}

	tokenStr, err := createJWT(key, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating JWT: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s", tokenStr)
}

func createJWT(key jose.JSONWebKey, cfg Config) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()

	claims := jwt.Claims{
		Audience:  jwt.Audience{cfg.Audience},
		Subject:   cfg.Subject,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
		Expiry:    jwt.NewNumericDate(now.Add(1 * time.Hour)),
	}

	custom := map[string]string{
		"role":  cfg.Role,
		"email": cfg.Email,
		"name":  cfg.Name,
	}

	return jwt.Signed(signer).Claims(claims).Claims(custom).Serialize()
}
