package config

import (
	"errors"
	"fmt"
)

// knownRoles are the role names accepted in route and credential entries.
var knownRoles = map[string]bool{
	"admin":   true,
	"manager": true,
	"viewer":  true,
}

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "table", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"table\" or \"jwt\", got %q", c.Auth.Type))
	}

	// If auth.type is "jwt", a secret must be available.
	if c.Auth.Type == "jwt" {
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
		}
	}

	// Credential entries need a token, a known role, and a tenant.
	for i, cred := range c.Auth.Credentials {
		if cred.Token == "" && cred.TokenFile == "" {
			errs = append(errs, fmt.Errorf("auth.credentials[%d].token or token_file is required", i))
		}
		if !knownRoles[cred.Role] {
			errs = append(errs, fmt.Errorf("auth.credentials[%d].role must be \"admin\", \"manager\", or \"viewer\", got %q", i, cred.Role))
		}
		if cred.TenantID == "" {
			errs = append(errs, fmt.Errorf("auth.credentials[%d].tenant_id is required", i))
		}
	}

	// Tenant entries need unique, non-empty ids.
	seen := make(map[string]bool, len(c.Tenants))
	for i, t := range c.Tenants {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("tenants[%d].id is required", i))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("tenants[%d].id %q is duplicated", i, t.ID))
		}
		seen[t.ID] = true
	}

	// Route entries must name known roles.
	for pattern, roles := range c.Routes {
		for _, role := range roles {
			if !knownRoles[role] {
				errs = append(errs, fmt.Errorf("routes[%q] names unknown role %q", pattern, role))
			}
		}
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// seed.users_per_tenant must not be negative.
	if c.Seed.UsersPerTenant < 0 {
		errs = append(errs, fmt.Errorf("seed.users_per_tenant must be >= 0, got %d", c.Seed.UsersPerTenant))
	}

	return errors.Join(errs...)
}
