package auth

import (
	"context"
	"errors"
	"fmt"
)

// Role is the privilege level of an identity within its tenant.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// ParseRole validates a role name from configuration or claims.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Identity is the resolved (role, tenant) pair for a request. It is
// recomputed per request and never persisted.
type Identity struct {
	// Role is the privilege level within the tenant.
	Role Role

	// TenantID is the tenant the identity belongs to. Always non-empty
	// for an identity returned by a Resolver.
	TenantID string
}

// Sentinel errors.
var (
	// ErrInvalidCredential is returned for empty or unknown tokens.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrCredentialExpired is returned for tokens that were once valid.
	// Callers must treat any resolve error as a denial (errors.Is against
	// either sentinel), so resolvers can start returning this without
	// changing call sites.
	ErrCredentialExpired = errors.New("credential expired")
)

// Resolver maps an opaque session token to an identity.
type Resolver interface {
	// Resolve performs the lookup. It returns ErrInvalidCredential (or
	// ErrCredentialExpired) when the token does not map to an identity.
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// identityKey is a private type for the identity context key, preventing
// collisions with other packages.
type identityKey struct{}

// ContextWithIdentity injects an admitted identity into the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the admitted identity from the context.
// Returns nil if no identity is set.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}
