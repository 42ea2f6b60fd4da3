// Package statictable provides a credential-table resolver that maps
// session tokens to identities using SHA-256 hashing and constant-time
// comparison. The token text is never inspected beyond the exact-match
// lookup, so the token scheme stays opaque to the rest of the system.
package statictable

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/kweidner/pforte/pkg/auth"
)

// Credential maps a token hash to an identity.
type Credential struct {
	TokenHash [32]byte
	Identity  auth.Identity
}

// RawCredential is the configuration format for table entries.
type RawCredential struct {
	Token    string
	Identity auth.Identity
}

// Resolver resolves tokens against a static credential table.
type Resolver struct {
	credentials []Credential
}

// Ensure Resolver implements auth.Resolver at compile time.
var _ auth.Resolver = (*Resolver)(nil)

// New creates a table resolver from raw token/identity pairs.
// Tokens are hashed immediately; plaintext tokens are not stored.
func New(entries []RawCredential) *Resolver {
	r := &Resolver{}
	for _, e := range entries {
		r.credentials = append(r.credentials, Credential{
			TokenHash: sha256.Sum256([]byte(e.Token)),
			Identity:  e.Identity,
		})
	}
	return r
}

// Resolve performs an exact-match lookup of the token. Empty and unknown
// tokens resolve to auth.ErrInvalidCredential.
func (r *Resolver) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	if token == "" {
		return nil, auth.ErrInvalidCredential
	}

	tokenHash := sha256.Sum256([]byte(token))

	for _, cred := range r.credentials {
		if subtle.ConstantTimeCompare(tokenHash[:], cred.TokenHash[:]) == 1 {
			// Copy identity to avoid shared state.
			id := cred.Identity
			return &id, nil
		}
	}

	return nil, auth.ErrInvalidCredential
}
