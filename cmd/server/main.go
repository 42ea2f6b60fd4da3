// Command server runs the pforte multi-tenant dashboard gateway.
//
// Configuration is loaded from a YAML file (see pkg/config for the
// discovery order) with PFORTE_* environment variable overrides. Pass an
// explicit path with -config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/kweidner/pforte/pkg/analytics"
	"github.com/kweidner/pforte/pkg/auth"
	"github.com/kweidner/pforte/pkg/auth/jwt"
	"github.com/kweidner/pforte/pkg/auth/statictable"
	"github.com/kweidner/pforte/pkg/config"
	"github.com/kweidner/pforte/pkg/gate"
	"github.com/kweidner/pforte/pkg/policy"
	"github.com/kweidner/pforte/pkg/record"
	"github.com/kweidner/pforte/pkg/record/memory"
	"github.com/kweidner/pforte/pkg/record/postgres"
	"github.com/kweidner/pforte/pkg/tenant"
	transporthttp "github.com/kweidner/pforte/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Identity resolver.
	resolver, err := buildResolver(cfg.Auth)
	if err != nil {
		return fmt.Errorf("creating resolver: %w", err)
	}

	// Tenant directory.
	directory, err := tenant.NewDirectory(tenantsFromConfig(cfg.Tenants))
	if err != nil {
		return fmt.Errorf("creating tenant directory: %w", err)
	}

	// Route policy.
	pol, err := policy.New(cfg.Routes)
	if err != nil {
		return fmt.Errorf("creating route policy: %w", err)
	}

	// Record store.
	store, cleanup, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating record store: %w", err)
	}
	defer cleanup()

	if cfg.Seed.Enabled {
		if err := seedStore(ctx, store, directory.IDs(), cfg.Seed.UsersPerTenant); err != nil {
			return fmt.Errorf("seeding record store: %w", err)
		}
	}

	handlerOpts := []transporthttp.HandlerOption{
		transporthttp.WithHandlerLogger(slog.Default()),
	}
	if cfg.Auth.RateLimit.DefaultRPM > 0 || len(cfg.Auth.RateLimit.PerTenant) > 0 {
		limiter := auth.NewInProcessLimiter(cfg.Auth.RateLimit.PerTenant, cfg.Auth.RateLimit.DefaultRPM)
		handlerOpts = append(handlerOpts, transporthttp.WithRateLimiter(limiter))
	}

	handler := transporthttp.NewHandler(
		gate.New(resolver, directory, pol),
		directory,
		store,
		analytics.NewGenerator(nil),
		handlerOpts...,
	)

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(handler,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(slog.Default()),
	)

	return srv.ListenAndServe()
}

// buildResolver creates the identity resolver selected by configuration.
func buildResolver(cfg config.AuthConfig) (auth.Resolver, error) {
	switch cfg.Type {
	case "jwt":
		return jwt.New(jwt.Config{
			Secret:      []byte(cfg.JWT.Secret),
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			RoleClaim:   cfg.JWT.RoleClaim,
			TenantClaim: cfg.JWT.TenantClaim,
		})
	case "table":
		entries := make([]statictable.RawCredential, 0, len(cfg.Credentials))
		for _, c := range cfg.Credentials {
			role, err := auth.ParseRole(c.Role)
			if err != nil {
				return nil, err
			}
			entries = append(entries, statictable.RawCredential{
				Token:    c.Token,
				Identity: auth.Identity{Role: role, TenantID: c.TenantID},
			})
		}
		return statictable.New(entries), nil
	}
	return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
}

// buildStore creates the record store selected by configuration and
// returns a cleanup func for shutdown.
func buildStore(ctx context.Context, cfg config.StorageConfig) (record.Store, func(), error) {
	switch cfg.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storage enabled", "type", "postgres", "max_conns", cfg.Postgres.MaxConns)
		return store, func() { store.Close() }, nil
	case "memory":
		slog.Info("storage enabled", "type", "memory")
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

func tenantsFromConfig(entries []config.TenantConfig) []tenant.Tenant {
	tenants := make([]tenant.Tenant, 0, len(entries))
	for _, e := range entries {
		tenants = append(tenants, tenant.Tenant{
			ID:             e.ID,
			DisplayName:    e.DisplayName,
			PrimaryColor:   e.PrimaryColor,
			SecondaryColor: e.SecondaryColor,
			LogoRef:        e.Logo,
			Theme:          e.Theme,
		})
	}
	return tenants
}

// seedStore fills empty tenant collections with generated users so a fresh
// deployment has data to page through.
func seedStore(ctx context.Context, store record.Store, tenantIDs []string, perTenant int) error {
	roles := []string{"Admin", "Manager", "Viewer", "Editor"}
	statuses := []string{"active", "inactive", "pending"}

	for _, tenantID := range tenantIDs {
		res, err := store.Query(ctx, tenantID, record.Query{Page: 1, Limit: 1})
		if err != nil {
			return err
		}
		if res.Total > 0 {
			continue
		}

		for i := 1; i <= perTenant; i++ {
			fields := map[string]string{
				"name":   fmt.Sprintf("User %d %s", i, tenantID),
				"email":  fmt.Sprintf("user%d@%s.com", i, tenantID),
				"role":   roles[rand.Intn(len(roles))],
				"status": statuses[rand.Intn(len(statuses))],
			}
			if _, err := store.Insert(ctx, tenantID, fields); err != nil {
				return err
			}
		}
		slog.Info("seeded tenant collection", "tenant", tenantID, "records", perTenant)
	}
	return nil
}
