package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bussola-offshore/bussola/internal/adapter/postgres"
	"github.com/bussola-offshore/bussola/internal/adapter/redis"
	"github.com/bussola-offshore/bussola/internal/adapter/ristretto"
	"github.com/bussola-offshore/bussola/internal/adapter/supabase"
	"github.com/bussola-offshore/bussola/internal/adapter/tiered"
	"github.com/bussola-offshore/bussola/internal/config"
	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/port/authprovider"
	"github.com/bussola-offshore/bussola/internal/port/cache"
	"github.com/bussola-offshore/bussola/internal/port/rowstore"
	"github.com/bussola-offshore/bussola/internal/resilience"
	"github.com/bussola-offshore/bussola/internal/secrets"
	"github.com/bussola-offshore/bussola/internal/service"
)

// backends is the row store and session service selected by store.driver.
type backends struct {
	rows rowstore.Store
	auth authprovider.Provider
	// configErr is set when the driver's credentials are missing. The
	// process keeps running and every page shows it.
	configErr  error
	secretKeys []string
	checks     map[string]func(context.Context) error
	breaker    *resilience.Breaker
	pool       *pgxpool.Pool
	client     *supabase.Client
}

func (b *backends) close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// reloadSecrets re-reads the vault and hands a rotated key to the hosted
// client. A changed URL or a first-time configuration needs a restart.
func (b *backends) reloadSecrets(vault *secrets.Vault) {
	if err := vault.Reload(); err != nil {
		slog.Error("reload secrets", "error", err)
		return
	}
	if b.client == nil {
		if len(b.secretKeys) > 0 && vault.Require(b.secretKeys...) == nil {
			slog.Warn("secrets are now present; restart to enable the hosted backend")
		}
		return
	}
	key := vault.Get(secrets.SupabaseKey)
	if key == "" {
		slog.Warn("reloaded secrets have no key; keeping the current one")
		return
	}
	b.client.SetAPIKey(key)
	slog.Info("secrets reloaded", "key", vault.Masked(secrets.SupabaseKey))
}

func buildBackends(ctx context.Context, cfg *config.Config, vault *secrets.Vault) (*backends, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return postgresBackends(ctx, cfg)
	default:
		return supabaseBackends(cfg, vault), nil
	}
}

func supabaseBackends(cfg *config.Config, vault *secrets.Vault) *backends {
	b := &backends{
		secretKeys: []string{secrets.SupabaseURL, secrets.SupabaseKey},
		checks:     map[string]func(context.Context) error{},
	}

	if err := vault.Require(b.secretKeys...); err != nil {
		slog.Error("hosted backend is not configured; data access and sign-in are disabled", "error", err)
		b.configErr = err
		b.rows = rowstore.Unavailable{Reason: err.Error()}
		b.auth = authprovider.Unavailable{Reason: err.Error()}
		return b
	}

	b.breaker = resilience.NewBreaker("supabase", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout).
		WithFailureFilter(supabase.IsBackendFailure)

	client := supabase.NewClient(vault.Get(secrets.SupabaseURL), vault.Get(secrets.SupabaseKey), cfg.Supabase.Timeout)
	client.SetBreaker(b.breaker)
	client.SetRedirectTo(cfg.Supabase.RedirectTo)

	b.client = client
	b.rows = client
	b.auth = client
	b.checks["supabase"] = client.Health
	slog.Info("hosted backend configured", "key", vault.Masked(secrets.SupabaseKey))
	return b
}

func postgresBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{checks: map[string]func(context.Context) error{}}

	if cfg.Postgres.DSN == "" {
		err := fmt.Errorf("%w: postgres.dsn is not set", domain.ErrConfiguration)
		slog.Error("postgres is not configured; data access and sign-in are disabled", "error", err)
		b.configErr = err
		b.rows = rowstore.Unavailable{Reason: err.Error()}
		b.auth = authprovider.Unavailable{Reason: err.Error()}
		return b, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	store := postgres.NewStore(pool)
	b.pool = pool
	b.rows = store
	b.auth = service.NewAuthService(store, &cfg.Auth)
	b.checks["postgres"] = store.Ping
	return b, nil
}

type byteCache struct {
	cache cache.Cache
	check func(context.Context) error
}

// buildCache returns the ristretto L1, tiered over Redis when a URL is set.
// An unreachable Redis is logged and skipped.
func buildCache(ctx context.Context, cfg config.Cache, log *slog.Logger) (byteCache, func(), error) {
	l1, err := ristretto.New(cfg.L1MaxSizeMB)
	if err != nil {
		return byteCache{}, nil, fmt.Errorf("l1 cache: %w", err)
	}
	if cfg.RedisURL == "" {
		return byteCache{cache: l1}, l1.Close, nil
	}

	l2, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, using in-process cache only", "error", err)
		return byteCache{cache: l1}, l1.Close, nil
	}
	slog.Info("redis connected")

	closeAll := func() {
		l1.Close()
		if err := l2.Close(); err != nil {
			slog.Warn("redis close", "error", err)
		}
	}
	return byteCache{cache: tiered.New(l1, l2, cfg.TTL, log), check: l2.Ping}, closeAll, nil
}
