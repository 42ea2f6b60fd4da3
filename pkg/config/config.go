// Package config provides unified configuration for the pforte gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PFORTE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the pforte gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Tenants       []TenantConfig      `yaml:"tenants"`
	Routes        map[string][]string `yaml:"routes"`
	Storage       StorageConfig       `yaml:"storage"`
	Seed          SeedConfig          `yaml:"seed"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 30s
}

// AuthConfig holds identity resolution settings.
type AuthConfig struct {
	Type        string             `yaml:"type"`        // "table" or "jwt", default: "table"
	Credentials []CredentialConfig `yaml:"credentials"` // token table for type=table
	JWT         JWTConfig          `yaml:"jwt"`         // settings for type=jwt
	RateLimit   RateLimitConfig    `yaml:"rate_limit"`
}

// CredentialConfig describes a single session-token table entry.
type CredentialConfig struct {
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"` // _file variant for token
	Role      string `yaml:"role"`
	TenantID  string `yaml:"tenant_id"`
}

// JWTConfig holds settings for the JWT resolver.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	SecretFile  string `yaml:"secret_file"` // _file variant for secret
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	RoleClaim   string `yaml:"role_claim"`   // default: "role"
	TenantClaim string `yaml:"tenant_claim"` // default: "tenant_id"
}

// RateLimitConfig holds per-tenant request budgets.
type RateLimitConfig struct {
	DefaultRPM int            `yaml:"default_rpm"` // 0 disables limiting
	PerTenant  map[string]int `yaml:"per_tenant"`
}

// TenantConfig describes a provisioned tenant and its display metadata.
type TenantConfig struct {
	ID             string `yaml:"id"`
	DisplayName    string `yaml:"display_name"`
	PrimaryColor   string `yaml:"primary_color"`
	SecondaryColor string `yaml:"secondary_color"`
	Logo           string `yaml:"logo"`
	Theme          string `yaml:"theme"`
}

// StorageConfig holds record store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// SeedConfig controls startup seeding of empty record collections.
type SeedConfig struct {
	Enabled        bool `yaml:"enabled"`          // default: false
	UsersPerTenant int  `yaml:"users_per_tenant"` // default: 100
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in. The route
// table default mirrors the three protected dashboard pages.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Type: "table",
		},
		Routes: map[string][]string{
			"/dashboard": {"admin", "manager", "viewer"},
			"/settings":  {"admin"},
			"/users":     {"admin", "manager"},
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Seed: SeedConfig{
			UsersPerTenant: 100,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
