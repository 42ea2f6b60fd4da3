package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, PFORTE_CONFIG env, ./config.yaml, /etc/pforte/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. PFORTE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/pforte/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check PFORTE_CONFIG env var.
	if envPath := os.Getenv("PFORTE_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/pforte/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PFORTE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PFORTE_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("PFORTE_JWT_SECRET"); v != "" {
		cfg.Auth.JWT.Secret = v
	}
	if v := os.Getenv("PFORTE_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("PFORTE_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("PFORTE_SEED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Seed.Enabled = enabled
		}
	}

	// PFORTE_CREDENTIALS: JSON array of credential configs.
	if v := os.Getenv("PFORTE_CREDENTIALS"); v != "" {
		creds, err := parseCredentialsJSON(v)
		if err == nil && len(creds) > 0 {
			cfg.Auth.Credentials = creds
		}
	}

	// PFORTE_TENANTS: JSON array of tenant configs.
	if v := os.Getenv("PFORTE_TENANTS"); v != "" {
		tenants, err := parseTenantsJSON(v)
		if err == nil && len(tenants) > 0 {
			cfg.Tenants = tenants
		}
	}
}

// parseCredentialsJSON parses a JSON array of credential configurations.
func parseCredentialsJSON(jsonStr string) ([]CredentialConfig, error) {
	var creds []CredentialConfig
	if err := json.Unmarshal([]byte(jsonStr), &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials JSON: %w", err)
	}
	return creds, nil
}

// parseTenantsJSON parses a JSON array of tenant configurations.
func parseTenantsJSON(jsonStr string) ([]TenantConfig, error) {
	var tenants []TenantConfig
	if err := json.Unmarshal([]byte(jsonStr), &tenants); err != nil {
		return nil, fmt.Errorf("parsing tenants JSON: %w", err)
	}
	return tenants, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.jwt.secret_file -> auth.jwt.secret
	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.credentials[*].token_file -> auth.credentials[*].token
	for i := range cfg.Auth.Credentials {
		if cfg.Auth.Credentials[i].TokenFile != "" && cfg.Auth.Credentials[i].Token == "" {
			val, err := readSecretFile(cfg.Auth.Credentials[i].TokenFile)
			if err != nil {
				return fmt.Errorf("auth.credentials[%d].token_file: %w", i, err)
			}
			cfg.Auth.Credentials[i].Token = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
