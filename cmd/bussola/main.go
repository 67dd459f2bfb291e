// Command bussola serves the Bússola Offshore macro dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/bussola-offshore/bussola/internal/adapter/http"
	cfotel "github.com/bussola-offshore/bussola/internal/adapter/otel"
	"github.com/bussola-offshore/bussola/internal/config"
	"github.com/bussola-offshore/bussola/internal/logger"
	"github.com/bussola-offshore/bussola/internal/middleware"
	"github.com/bussola-offshore/bussola/internal/secrets"
	"github.com/bussola-offshore/bussola/internal/service"
)

// dotenvFile is read for secrets in addition to the process environment.
const dotenvFile = ".env"

func main() {
	var err error
	switch {
	case len(os.Args) > 1 && os.Args[1] == "migrate":
		err = runMigrate(os.Args[2:])
	case len(os.Args) > 1 && os.Args[1] == "admin":
		err = runAdmin(os.Args[2:])
	case len(os.Args) > 1 && os.Args[1] != "serve":
		err = fmt.Errorf("unknown command: %s (want serve, migrate or admin)", os.Args[1])
	default:
		err = run()
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"store_driver", cfg.Store.Driver,
		"cache_ttl", cfg.Cache.TTL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOTel, err := cfotel.Setup(ctx, cfg.OTel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Backends ---

	keys := []string{secrets.SupabaseURL, secrets.SupabaseKey}
	vault, err := secrets.NewVault(secrets.Chain(
		secrets.DotenvLoader(dotenvFile, keys...),
		secrets.EnvLoader(keys...),
	))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	be, err := buildBackends(ctx, cfg, vault)
	if err != nil {
		return err
	}
	defer be.close()
	onHangup(ctx, func() { be.reloadSecrets(vault) })

	bc, closeCache, err := buildCache(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}
	defer closeCache()
	if bc.check != nil {
		be.checks["redis"] = bc.check
	}

	// --- Services ---

	dataCache := service.NewDataCache(be.rows, bc.cache, cfg.Cache.TTL)
	dataCache.SetMetrics(metrics)
	panels := service.NewPanelService(dataCache)
	panels.SetMetrics(metrics)
	sessions := service.NewSessionRouter(be.auth, panels, be.configErr)
	sessions.SetMetrics(metrics)

	// --- HTTP ---

	clientCookie := middleware.ClientID{CookieName: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}
	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	limiter.StartCleanup(ctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)

	handlers := &cfhttp.Handlers{
		Sessions:     sessions,
		ClientCookie: clientCookie,
		Cache:        dataCache,
		Health: cfhttp.HealthInfo{
			Driver:     cfg.Store.Driver,
			Secrets:    vault,
			SecretKeys: be.secretKeys,
			Checks:     be.checks,
			Breaker:    be.breaker,
			LogDropped: closeLog.Dropped,
		},
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(clientCookie.Handler)

	cfhttp.MountRoutes(r, handlers, limiter)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// onHangup runs fn on every SIGHUP until ctx is done.
func onHangup(ctx context.Context, fn func()) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				slog.Info("SIGHUP received, reloading secrets")
				fn()
			}
		}
	}()
}
