package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/justinas/alice"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	jose "gopkg.in/go-jose/go-jose.v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/velora/storefront-bridge/internal/audit"
	"github.com/velora/storefront-bridge/internal/config"
)

// Middleware returns HTTP middleware that verifies the JWT and enforces the
// validity claims. The retrieved claims are set on the request context and
// can be retrieved by calling jwt.ClaimsFromContext(ctx).
func Middleware(cfg config.AuthorizationConfig, options ...jwtmiddleware.Option) (func(http.Handler) http.Handler, error) {
	// allow for static configuration when testing
	jwksConfig := remoteJWKS
	if cfg.ConfigurationStatic != "" {
		jwksConfig = staticJWKS
	}

	issuerURL, keyFunc, err := jwksConfig(cfg)
	if err != nil {
		return nil, err
	}

	// the validator is used by the middleware to check the JWT signature and claims
	jwtValidator, err := validator.New(
		keyFunc,
		validator.RS256, // the backend only issues RSA-signed tokens at present
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithCustomClaims(storefrontCustomClaims),
		validator.WithAllowedClockSkew(5*time.Second), // this could be configurable
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the validator: %w", err)
	}

	// Auditing of the validation process uses a combination of the error
	// handler and the audit middleware. The first ensures that validation
	// errors are marked in the audit log, while the second ensures that the
	// claims are logged when the token is valid.
	options = append(options, jwtmiddleware.WithErrorHandler(auditErrorHandler()))

	middleware := jwtmiddleware.New(
		registeredClaimsValidator(jwtValidator.ValidateToken),
		options...,
	)

	subChain := alice.New(middleware.CheckJWT, auditClaimsMiddleware()).Then

	return subChain, nil
}

// ContextWithClaims returns a new context.Context with the provided validated
// claims added to it. This is primarily for test usage.
func ContextWithClaims(ctx context.Context, claims *validator.ValidatedClaims) context.Context {
	return context.WithValue(ctx, jwtmiddleware.ContextKey{}, claims)
}

// ContextWithStorefrontClaims creates a context with StorefrontClaims for
// testing. This is a convenience helper for tests that need to set up
// claim-based contexts.
func ContextWithStorefrontClaims(ctx context.Context, claims *StorefrontClaims) context.Context {
	return ContextWithClaims(ctx, &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{},
		CustomClaims:     claims,
	})
}

// ClaimsFromContext returns the validated claims from the context as set by
// the JWT middleware. This will return nil if the context data is not set.
// This should be regarded as an error for handlers that expect the claims to
// be present.
func ClaimsFromContext(ctx context.Context) *validator.ValidatedClaims {
	claims, _ := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	return claims
}

// StorefrontClaimsFromContext gets the custom storefront claims from the
// context, as added by the JWT middleware. This will return nil if the claims
// are not present.
func StorefrontClaimsFromContext(ctx context.Context) *StorefrontClaims {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return nil
	}

	sfClaims, _ := claims.CustomClaims.(*StorefrontClaims)

	return sfClaims
}

func RequireStorefrontClaimsFromContext(ctx context.Context) StorefrontClaims {
	c := StorefrontClaimsFromContext(ctx)
	if c == nil {
		panic("storefront claims not present in context, likely used outside of the JWT middleware")
	}

	return *c
}

// RequireAdmin rejects requests whose validated claims lack the admin role.
// It must run inside the JWT middleware chain.
func RequireAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := StorefrontClaimsFromContext(r.Context())
			if claims == nil || !claims.Admin() {
				entry := audit.Log(r.Context())
				entry.Error = "admin role required"

				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func auditClaimsMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := audit.Log(r.Context())
			claims := ClaimsFromContext(r.Context())

			if claims == nil {
				entry.Error = "JWT claims missing from context"
			} else {
				reg := claims.RegisteredClaims
				entry.Authorized = true
				entry.AuthSubject = reg.Subject
				entry.AuthIssuer = reg.Issuer
				entry.AuthAudience = reg.Audience
				entry.AuthExpirySecs = reg.Expiry

				// Populate identity fields from custom claims
				sfClaims := StorefrontClaimsFromContext(r.Context())
				if sfClaims != nil {
					entry.Role = sfClaims.Role
					entry.Name = sfClaims.Name
					entry.Email = sfClaims.Email

					// Set span attributes for observability
					span := trace.SpanFromContext(r.Context())
					span.SetAttributes(
						attribute.String("user.subject", reg.Subject),
						attribute.String("user.role", sfClaims.Role),
					)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func auditErrorHandler() jwtmiddleware.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		entry := audit.Log(r.Context())
		entry.Error = fmt.Sprintf("JWT authorization failure: %s", err.Error())

		// The default error handler will write the appropriate response status
		// code. The status code is recorded centrally by the audit middleware.
		jwtmiddleware.DefaultErrorHandler(w, r, err)
	}
}

type KeyFunc = func(ctx context.Context) (any, error)

func remoteJWKS(cfg config.AuthorizationConfig) (url.URL, KeyFunc, error) {
	issuerURL, err := url.Parse(cfg.IssuerURL)
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("failed to parse the issuer URL: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	return *issuerURL, provider.KeyFunc, nil
}

func staticJWKS(cfg config.AuthorizationConfig) (url.URL, KeyFunc, error) {
	issuerURL, err := url.Parse(cfg.IssuerURL)
	if err != nil {
		return url.URL{}, nil, fmt.Errorf("failed to parse the issuer URL: %w", err)
	}

	var keySet jose.JSONWebKeySet
	if err := json.Unmarshal([]byte(cfg.ConfigurationStatic), &keySet); err != nil {
		return url.URL{}, nil, fmt.Errorf("could not decode jwks: %w", err)
	}

	keyFunc := func(_ context.Context) (any, error) { return &keySet, nil }

	return *issuerURL, keyFunc, nil
}
