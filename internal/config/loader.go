package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "bussola.yaml"

// EnvConfigFile overrides DefaultConfigFile when set.
const EnvConfigFile = "BUSSOLA_CONFIG"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv(EnvConfigFile); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BUSSOLA_PORT")
	setString(&cfg.Server.Port, "PORT")
	setDuration(&cfg.Server.ReadTimeout, "BUSSOLA_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "BUSSOLA_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "BUSSOLA_SHUTDOWN_TIMEOUT")

	setString(&cfg.Store.Driver, "BUSSOLA_STORE_DRIVER")
	setDuration(&cfg.Supabase.Timeout, "BUSSOLA_SUPABASE_TIMEOUT")
	setString(&cfg.Supabase.RedirectTo, "BUSSOLA_SUPABASE_REDIRECT_TO")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "BUSSOLA_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "BUSSOLA_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "BUSSOLA_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "BUSSOLA_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "BUSSOLA_PG_HEALTH_CHECK")

	// Cache
	setDuration(&cfg.Cache.TTL, "BUSSOLA_CACHE_TTL")
	setInt64(&cfg.Cache.L1MaxSizeMB, "BUSSOLA_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.RedisURL, "REDIS_URL")

	// Auth
	setString(&cfg.Auth.CookieName, "BUSSOLA_COOKIE_NAME")
	setBool(&cfg.Auth.CookieSecure, "BUSSOLA_COOKIE_SECURE")
	setInt(&cfg.Auth.BcryptCost, "BUSSOLA_BCRYPT_COST")

	setString(&cfg.Logging.Level, "BUSSOLA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BUSSOLA_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "BUSSOLA_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "BUSSOLA_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BUSSOLA_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "BUSSOLA_RATE_RPS")
	setInt(&cfg.Rate.Burst, "BUSSOLA_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "BUSSOLA_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "BUSSOLA_RATE_MAX_IDLE_TIME")

	// OpenTelemetry
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTel.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	setFloat64(&cfg.OTel.SampleRatio, "BUSSOLA_OTEL_SAMPLE_RATIO")
}

// validate checks that required fields are set. Backend secrets are not
// checked here; see secrets.Check.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Store.Driver {
	case DriverSupabase, DriverPostgres:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverSupabase, DriverPostgres, cfg.Store.Driver)
	}
	if cfg.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be > 0")
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Auth.CookieName == "" {
		return errors.New("auth.cookie_name is required")
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.OTel.SampleRatio < 0 || cfg.OTel.SampleRatio > 1 {
		return errors.New("otel.sample_ratio must be within [0, 1]")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
