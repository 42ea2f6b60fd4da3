// Package jwt provides a resolver for HMAC-signed session tokens carrying
// role and tenant claims.
//
// It exists to prove the token scheme is pluggable: the gate only ever sees
// the auth.Resolver interface, so a deployment can swap the static table
// for signed tokens issued by an external credential service without
// touching any caller.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/kweidner/pforte/pkg/auth"
)

// Config holds the JWT resolver configuration.
type Config struct {
	// Secret is the HMAC signing key shared with the token issuer.
	Secret []byte

	// Issuer is the expected iss claim. If empty, issuer is not validated.
	Issuer string

	// Audience is the expected aud claim. If empty, audience is not validated.
	Audience string

	// RoleClaim is the claim carrying the role name. Default: "role".
	RoleClaim string

	// TenantClaim is the claim carrying the tenant id. Default: "tenant_id".
	TenantClaim string

	// Leeway tolerated when validating time-based claims. Default: 30s.
	Leeway time.Duration
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.RoleClaim == "" {
		c.RoleClaim = "role"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.Leeway == 0 {
		c.Leeway = 30 * time.Second
	}
}

// Resolver validates HMAC-signed JWTs and extracts an identity from their
// claims.
type Resolver struct {
	config Config
}

// Ensure Resolver implements auth.Resolver at compile time.
var _ auth.Resolver = (*Resolver)(nil)

// New creates a JWT resolver with the given configuration.
func New(cfg Config) (*Resolver, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("jwt resolver requires a signing secret")
	}
	cfg.applyDefaults()
	return &Resolver{config: cfg}, nil
}

// Resolve validates the token signature and time claims, then builds an
// identity from the role and tenant claims.
//
// Errors:
//   - auth.ErrCredentialExpired for tokens past their exp claim
//   - auth.ErrInvalidCredential for everything else that fails validation
func (r *Resolver) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	if token == "" {
		return nil, auth.ErrInvalidCredential
	}

	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.config.Secret, nil
	}, r.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %s", auth.ErrCredentialExpired, err)
		}
		return nil, fmt.Errorf("%w: %s", auth.ErrInvalidCredential, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, auth.ErrInvalidCredential
	}

	role, err := auth.ParseRole(claimString(claims, r.config.RoleClaim))
	if err != nil {
		return nil, fmt.Errorf("%w: %s claim: %s", auth.ErrInvalidCredential, r.config.RoleClaim, err)
	}

	tenantID := claimString(claims, r.config.TenantClaim)
	if tenantID == "" {
		return nil, fmt.Errorf("%w: missing %s claim", auth.ErrInvalidCredential, r.config.TenantClaim)
	}

	return &auth.Identity{Role: role, TenantID: tenantID}, nil
}

// parserOptions builds JWT parser options based on the configuration.
func (r *Resolver) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwtlib.WithLeeway(r.config.Leeway),
	}

	if r.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(r.config.Issuer))
	}

	if r.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(r.config.Audience))
	}

	return opts
}

// claimString extracts a string value from JWT claims.
// Returns empty string if the claim is missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	val, ok := claims[key]
	if !ok {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return s
}
