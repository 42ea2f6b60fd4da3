package gate

import (
	"context"
	"testing"

	"github.com/kweidner/pforte/pkg/auth"
	"github.com/kweidner/pforte/pkg/policy"
	"github.com/kweidner/pforte/pkg/tenant"
)

// tableResolver is a plain map-backed resolver for decision-table tests.
type tableResolver map[string]auth.Identity

func (r tableResolver) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	if id, ok := r[token]; ok {
		cp := id
		return &cp, nil
	}
	return nil, auth.ErrInvalidCredential
}

func newTestGate(t *testing.T) *Gate {
	t.Helper()

	dir, err := tenant.NewDirectory([]tenant.Tenant{
		{ID: "t1", DisplayName: "Tenant One"},
		{ID: "t2", DisplayName: "Tenant Two"},
	})
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}

	pol, err := policy.New(map[string][]string{
		"/dashboard": {"admin", "manager", "viewer"},
		"/settings":  {"admin"},
		"/users":     {"admin", "manager"},
	})
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}

	resolver := tableResolver{
		"admin-token":   {Role: auth.RoleAdmin, TenantID: "t1"},
		"manager-token": {Role: auth.RoleManager, TenantID: "t1"},
		"viewer-token":  {Role: auth.RoleViewer, TenantID: "t1"},
		"admin2-token":  {Role: auth.RoleAdmin, TenantID: "t2"},
	}

	return New(resolver, dir, pol)
}

func TestAuthorizeDecisionTable(t *testing.T) {
	g := newTestGate(t)

	tests := []struct {
		name       string
		token      string
		tenantID   string
		path       string
		admit      bool
		wantTarget string
		wantReason Reason
	}{
		{
			name:     "admin on settings",
			token:    "admin-token",
			tenantID: "t1",
			path:     "/t1/settings",
			admit:    true,
		},
		{
			name:     "viewer on dashboard",
			token:    "viewer-token",
			tenantID: "t1",
			path:     "/t1/dashboard",
			admit:    true,
		},
		{
			name:     "manager on users",
			token:    "manager-token",
			tenantID: "t1",
			path:     "/t1/users",
			admit:    true,
		},
		{
			// Scenario: under-privileged member downgrades to the tenant
			// dashboard, not to login.
			name:       "viewer on settings",
			token:      "viewer-token",
			tenantID:   "t1",
			path:       "/t1/settings",
			wantTarget: "/t1/dashboard",
			wantReason: ReasonInsufficientRole,
		},
		{
			name:       "manager on settings",
			token:      "manager-token",
			tenantID:   "t1",
			path:       "/t1/settings",
			wantTarget: "/t1/dashboard",
			wantReason: ReasonInsufficientRole,
		},
		{
			name:       "unknown token",
			token:      "bad-token",
			tenantID:   "t1",
			path:       "/t1/dashboard",
			wantTarget: LoginPath,
			wantReason: ReasonInvalidCredential,
		},
		{
			name:       "empty token",
			token:      "",
			tenantID:   "t1",
			path:       "/t1/dashboard",
			wantTarget: LoginPath,
			wantReason: ReasonInvalidCredential,
		},
		{
			name:       "unknown tenant",
			token:      "admin-token",
			tenantID:   "t9",
			path:       "/t9/dashboard",
			wantTarget: LoginPath,
			wantReason: ReasonUnknownTenant,
		},
		{
			// Tenant-isolation boundary: a valid identity for another
			// tenant is never admitted.
			name:       "cross-tenant admin",
			token:      "admin2-token",
			tenantID:   "t1",
			path:       "/t1/dashboard",
			wantTarget: LoginPath,
			wantReason: ReasonCrossTenant,
		},
		{
			name:       "unlisted route denied for every role",
			token:      "admin-token",
			tenantID:   "t1",
			path:       "/t1/billing",
			wantTarget: "/t1/dashboard",
			wantReason: ReasonInsufficientRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Authorize(context.Background(), tt.token, tt.tenantID, tt.path)

			if d.Admitted() != tt.admit {
				t.Fatalf("Admitted = %v, want %v (decision %+v)", d.Admitted(), tt.admit, d)
			}
			if tt.admit {
				if d.Identity == nil || d.Identity.TenantID != tt.tenantID {
					t.Errorf("Identity = %+v, want tenant %q", d.Identity, tt.tenantID)
				}
				return
			}
			if d.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", d.Target, tt.wantTarget)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
		})
	}
}

// An identity bound to one tenant must never be admitted into another
// tenant's space, for any route.
func TestCrossTenantNeverAdmitted(t *testing.T) {
	g := newTestGate(t)

	for _, token := range []string{"admin-token", "manager-token", "viewer-token"} {
		for _, route := range []string{"/dashboard", "/settings", "/users", "/anything"} {
			d := g.Authorize(context.Background(), token, "t2", "/t2"+route)
			if d.Admitted() {
				t.Errorf("token %q admitted into t2 via %q", token, route)
			}
			if d.Reason != ReasonCrossTenant {
				t.Errorf("token %q route %q: Reason = %q, want %q", token, route, d.Reason, ReasonCrossTenant)
			}
		}
	}
}

// Check ordering: an unknown tenant wins over a bad token, and a bad token
// wins over a privilege problem.
func TestCheckOrdering(t *testing.T) {
	g := newTestGate(t)

	d := g.Authorize(context.Background(), "bad-token", "t9", "/t9/settings")
	if d.Reason != ReasonUnknownTenant {
		t.Errorf("Reason = %q, want %q (tenant check runs first)", d.Reason, ReasonUnknownTenant)
	}

	d = g.Authorize(context.Background(), "bad-token", "t1", "/t1/settings")
	if d.Reason != ReasonInvalidCredential {
		t.Errorf("Reason = %q, want %q (credential check before role check)", d.Reason, ReasonInvalidCredential)
	}
}

// An expired credential is a denial like any other resolve failure; the
// gate must not need to distinguish the variants.
func TestExpiredCredentialDenies(t *testing.T) {
	dir, err := tenant.NewDirectory([]tenant.Tenant{{ID: "t1"}})
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	pol, err := policy.New(map[string][]string{"/dashboard": {"viewer"}})
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}

	g := New(expiredResolver{}, dir, pol)

	d := g.Authorize(context.Background(), "stale-token", "t1", "/t1/dashboard")
	if d.Admitted() {
		t.Fatal("expired credential was admitted")
	}
	if d.Target != LoginPath || d.Reason != ReasonInvalidCredential {
		t.Errorf("decision = %+v, want redirect to %s", d, LoginPath)
	}
}

type expiredResolver struct{}

func (expiredResolver) Resolve(context.Context, string) (*auth.Identity, error) {
	return nil, auth.ErrCredentialExpired
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path       string
		wantTenant string
		wantRoute  string
	}{
		{"/t1/dashboard", "t1", "/dashboard"},
		{"/t1/users", "t1", "/users"},
		{"/t1/users/", "t1", "/users"},
		{"/t1/users/42", "t1", "/users/42"},
		{"/t1", "t1", "/"},
		{"/", "", "/"},
		{"", "", "/"},
	}
	for _, tt := range tests {
		tenantID, route := SplitPath(tt.path)
		if tenantID != tt.wantTenant || route != tt.wantRoute {
			t.Errorf("SplitPath(%q) = (%q, %q), want (%q, %q)", tt.path, tenantID, route, tt.wantTenant, tt.wantRoute)
		}
	}
}

func TestIsPublic(t *testing.T) {
	if !IsPublic("/login") {
		t.Error("IsPublic(/login) = false, want true")
	}
	if IsPublic("/t1/dashboard") {
		t.Error("IsPublic(/t1/dashboard) = true, want false")
	}
}
