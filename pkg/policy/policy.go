// Package policy maps route patterns to the roles allowed to access them.
//
// Matching is by exact normalized path template ("/dashboard", "/users");
// the gate strips the tenant segment before lookup. A pattern with no entry
// has an empty allowed set: access is denied unless explicitly enumerated.
package policy

import (
	"fmt"
	"strings"

	"github.com/kweidner/pforte/pkg/auth"
)

// RoleSet is the set of roles permitted on a route.
type RoleSet map[auth.Role]struct{}

// Contains reports whether the role is in the set.
func (s RoleSet) Contains(r auth.Role) bool {
	_, ok := s[r]
	return ok
}

// Policy holds the route pattern to allowed-roles mapping. It is built
// once at startup and read-only afterwards.
type Policy struct {
	routes map[string]RoleSet
}

// New builds a policy from a route pattern to role-name mapping, as it
// appears in configuration. Role names are validated; route patterns are
// normalized to a leading-slash template.
func New(routes map[string][]string) (*Policy, error) {
	p := &Policy{routes: make(map[string]RoleSet, len(routes))}
	for pattern, roleNames := range routes {
		set := make(RoleSet, len(roleNames))
		for _, name := range roleNames {
			role, err := auth.ParseRole(name)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", pattern, err)
			}
			set[role] = struct{}{}
		}
		p.routes[Normalize(pattern)] = set
	}
	return p, nil
}

// AllowedRoles returns the set of roles permitted on the route pattern.
// Unknown patterns yield an empty set, never nil-panics and never an
// implicit allow.
func (p *Policy) AllowedRoles(pattern string) RoleSet {
	if set, ok := p.routes[Normalize(pattern)]; ok {
		return set
	}
	return RoleSet{}
}

// Normalize canonicalizes a route pattern: leading slash, no trailing
// slash, so "/settings", "settings" and "/settings/" all address the same
// entry.
func Normalize(pattern string) string {
	pattern = strings.TrimSuffix(pattern, "/")
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return pattern
}
