package policy

import (
	"testing"

	"github.com/kweidner/pforte/pkg/auth"
)

func testRoutes() map[string][]string {
	return map[string][]string{
		"/dashboard": {"admin", "manager", "viewer"},
		"/settings":  {"admin"},
		"/users":     {"admin", "manager"},
	}
}

func TestAllowedRoles(t *testing.T) {
	p, err := New(testRoutes())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		pattern string
		role    auth.Role
		want    bool
	}{
		{"/dashboard", auth.RoleViewer, true},
		{"/dashboard", auth.RoleAdmin, true},
		{"/settings", auth.RoleAdmin, true},
		{"/settings", auth.RoleManager, false},
		{"/settings", auth.RoleViewer, false},
		{"/users", auth.RoleManager, true},
		{"/users", auth.RoleViewer, false},
	}

	for _, tt := range tests {
		got := p.AllowedRoles(tt.pattern).Contains(tt.role)
		if got != tt.want {
			t.Errorf("AllowedRoles(%q).Contains(%q) = %v, want %v", tt.pattern, tt.role, got, tt.want)
		}
	}
}

func TestDenyByDefault(t *testing.T) {
	p, err := New(testRoutes())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, pattern := range []string{"/billing", "/", "/admin", ""} {
		set := p.AllowedRoles(pattern)
		if len(set) != 0 {
			t.Errorf("AllowedRoles(%q) = %v, want empty set", pattern, set)
		}
		for _, role := range []auth.Role{auth.RoleAdmin, auth.RoleManager, auth.RoleViewer} {
			if set.Contains(role) {
				t.Errorf("AllowedRoles(%q).Contains(%q) = true, want false", pattern, role)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/settings", "/settings"},
		{"settings", "/settings"},
		{"/settings/", "/settings"},
		{"", "/"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizedLookup(t *testing.T) {
	p, err := New(map[string][]string{"users/": {"admin"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !p.AllowedRoles("/users").Contains(auth.RoleAdmin) {
		t.Error("normalized pattern lookup failed")
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	_, err := New(map[string][]string{"/users": {"admin", "owner"}})
	if err == nil {
		t.Error("New with unknown role: error = nil, want error")
	}
}
