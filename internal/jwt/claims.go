package jwt

import (
	"context"
	"fmt"
	"strings"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// RoleAdmin is the role claim value required for the admin surface.
const RoleAdmin = "admin"

// registeredClaimsValidator ensures that the basic claims that we rely on are
// part of the supplied claims. It also ensures that the token has a valid
// time period. The core validation takes care of enforcing the active and
// expiry dates: this simply ensures that they're present.
func registeredClaimsValidator(next jwtmiddleware.ValidateToken) jwtmiddleware.ValidateToken {
	return func(ctx context.Context, token string) (interface{}, error) {

		claims, err := next(ctx, token)
		if err != nil {
			return nil, err
		}

		validatedClaims, ok := claims.(*validator.ValidatedClaims)
		if !ok {
			return nil, fmt.Errorf("could not cast claims to validator.ValidatedClaims")
		}

		reg := validatedClaims.RegisteredClaims

		if len(reg.Audience) == 0 {
			return nil, fmt.Errorf("audience claim not present")
		}

		if reg.Issuer == "" {
			return nil, fmt.Errorf("issuer claim not present")
		}

		if reg.Subject == "" {
			return nil, fmt.Errorf("subject claim not present")
		}

		if reg.NotBefore == 0 || reg.Expiry == 0 {
			return nil, fmt.Errorf("token has no validity period")
		}

		return claims, nil
	}
}

// StorefrontClaims define the additional claims that the commerce backend
// includes in the tokens it issues.
type StorefrontClaims struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate ensures that the expected identity claims are present in the
// token.
func (c *StorefrontClaims) Validate(ctx context.Context) error {
	missing := []string{}

	if c.Role == "" {
		missing = append(missing, "role")
	}
	if c.Email == "" {
		missing = append(missing, "email")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing expected claim(s): %s", strings.Join(missing, ", "))
	}

	return nil
}

// Admin reports whether the claims grant access to the admin surface.
func (c *StorefrontClaims) Admin() bool {
	return c.Role == RoleAdmin
}

// storefrontCustomClaims sets up the custom claims for a backend-issued JWT.
func storefrontCustomClaims() validator.CustomClaims {
	return &StorefrontClaims{}
}
