// Package gate makes the per-request authorization decision for the pforte
// gateway. It orchestrates the identity resolver, tenant directory, and
// route policy into a single allow-or-redirect verdict.
//
// The gate is total: every input combination yields a Decision, never an
// error. It holds no state of its own and is safe for unbounded concurrent
// use.
package gate

import (
	"context"
	"errors"
	"strings"

	"github.com/kweidner/pforte/pkg/auth"
	"github.com/kweidner/pforte/pkg/policy"
	"github.com/kweidner/pforte/pkg/tenant"
)

// LoginPath is the redirect target for requests that cannot be tied to a
// legitimate tenant member.
const LoginPath = "/login"

// Reason classifies why a request was denied.
type Reason string

const (
	ReasonUnknownTenant     Reason = "unknown_tenant"
	ReasonInvalidCredential Reason = "invalid_credential"
	ReasonCrossTenant       Reason = "cross_tenant"
	ReasonInsufficientRole  Reason = "insufficient_role"
)

// Decision is the outcome of an authorization check: either an admission
// carrying the resolved identity, or a denial carrying a redirect target
// and the reason.
type Decision struct {
	Identity *auth.Identity
	Target   string
	Reason   Reason
}

// Admitted reports whether the request may proceed.
func (d Decision) Admitted() bool {
	return d.Identity != nil && d.Target == ""
}

func admit(id *auth.Identity) Decision {
	return Decision{Identity: id}
}

func denyRedirect(target string, reason Reason) Decision {
	return Decision{Target: target, Reason: reason}
}

// Gate evaluates (token, tenant, path) triples against its read-only
// collaborators.
type Gate struct {
	resolver  auth.Resolver
	directory *tenant.Directory
	policy    *policy.Policy
}

// New creates a gate. All three collaborators are required.
func New(resolver auth.Resolver, directory *tenant.Directory, pol *policy.Policy) *Gate {
	return &Gate{resolver: resolver, directory: directory, policy: pol}
}

// Authorize decides whether the caller identified by token may access
// requestPath inside tenantID's space. Checks run in a fixed order so the
// failure reason is deterministic:
//
//  1. unknown tenant            -> redirect /login
//  2. unresolvable token        -> redirect /login
//  3. identity from a different
//     tenant                    -> redirect /login (isolation boundary)
//  4. role not allowed on route -> redirect to the tenant's own dashboard
//  5. otherwise                 -> admit
//
// Step 4 deliberately downgrades instead of bouncing to login: the caller
// is a legitimate member of the tenant, just under-privileged for this
// route.
func (g *Gate) Authorize(ctx context.Context, token, tenantID, requestPath string) Decision {
	if !g.directory.Exists(tenantID) {
		return denyRedirect(LoginPath, ReasonUnknownTenant)
	}

	identity, err := g.resolver.Resolve(ctx, token)
	if err != nil || identity == nil {
		return denyRedirect(LoginPath, ReasonInvalidCredential)
	}

	if identity.TenantID != tenantID {
		return denyRedirect(LoginPath, ReasonCrossTenant)
	}

	route := routePattern(requestPath, tenantID)
	if !g.policy.AllowedRoles(route).Contains(identity.Role) {
		return denyRedirect("/"+tenantID+"/dashboard", ReasonInsufficientRole)
	}

	return admit(identity)
}

// IsPublic reports whether the path is reachable without a session,
// i.e. the login page and anything below it.
func IsPublic(path string) bool {
	return strings.Contains(path, LoginPath)
}

// SplitPath extracts the tenant segment and the tenant-agnostic route
// pattern from a request path like "/company1/users/42".
func SplitPath(path string) (tenantID, route string) {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return "", "/"
	}
	return segments[0], policy.Normalize(strings.Join(segments[1:], "/"))
}

// routePattern strips the tenant segment from the request path. Paths that
// do not start with the tenant segment are normalized as-is.
func routePattern(requestPath, tenantID string) string {
	pathTenant, route := SplitPath(requestPath)
	if pathTenant == tenantID {
		return route
	}
	return policy.Normalize(requestPath)
}

// DenialError converts a deny decision's reason into the matching sentinel
// error, for callers that log or count failures by kind.
func (d Decision) DenialError() error {
	switch d.Reason {
	case ReasonUnknownTenant:
		return tenant.ErrNotFound
	case ReasonInvalidCredential:
		return auth.ErrInvalidCredential
	case ReasonCrossTenant:
		return ErrCrossTenantAccess
	case ReasonInsufficientRole:
		return ErrInsufficientRole
	}
	return nil
}

// Sentinel errors for denial kinds that have no home elsewhere.
var (
	ErrCrossTenantAccess = errors.New("cross-tenant access")
	ErrInsufficientRole  = errors.New("insufficient role")
)
