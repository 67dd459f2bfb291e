// Package config provides hierarchical configuration loading for Bússola.
// Precedence: defaults < YAML file < environment variables.
//
// The hosted backend's URL and key are secrets and are not part of Config;
// they are read through internal/secrets so a missing value can be reported
// on the dashboard instead of failing startup.
package config

import "time"

// Store drivers.
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
)

// Config holds all runtime configuration for the dashboard.
type Config struct {
	Server   Server   `yaml:"server"`
	Store    Store    `yaml:"store"`
	Supabase Supabase `yaml:"supabase"`
	Postgres Postgres `yaml:"postgres"`
	Cache    Cache    `yaml:"cache"`
	Auth     Auth     `yaml:"auth"`
	Logging  Logging  `yaml:"logging"`
	Breaker  Breaker  `yaml:"breaker"`
	Rate     Rate     `yaml:"rate"`
	OTel     OTel     `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Store selects the row store and session service backend.
type Store struct {
	Driver string `yaml:"driver"` // "supabase" | "postgres"
}

// Supabase holds non-secret settings for the hosted backend.
type Supabase struct {
	Timeout time.Duration `yaml:"timeout"`
	// RedirectTo is passed to sign-up so the verification mail links back
	// to the dashboard. Empty uses the project's site URL.
	RedirectTo string `yaml:"redirect_to"`
}

// Postgres holds PostgreSQL connection configuration for the self-hosted driver.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// Cache holds data cache configuration.
type Cache struct {
	TTL         time.Duration `yaml:"ttl"`            // how long fetched tables are served from cache
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"` // ristretto budget
	RedisURL    string        `yaml:"redis_url"`      // optional shared L2; empty disables it
}

// Auth holds session and local-account configuration.
type Auth struct {
	CookieName   string `yaml:"cookie_name"`
	CookieSecure bool   `yaml:"cookie_secure"`
	BcryptCost   int    `yaml:"bcrypt_cost"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for the hosted backend.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration for the sign-in and sign-up forms.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// OTel holds OpenTelemetry export configuration. An empty endpoint keeps
// the no-op providers.
type OTel struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "8501",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: Store{
			Driver: DriverSupabase,
		},
		Supabase: Supabase{
			Timeout: 10 * time.Second,
		},
		Postgres: Postgres{
			DSN:             "",
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Cache: Cache{
			TTL:         600 * time.Second,
			L1MaxSizeMB: 16,
		},
		Auth: Auth{
			CookieName: "bussola_session",
			BcryptCost: 12,
		},
		Logging: Logging{
			Level:   "info",
			Service: "bussola",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 1,
			Burst:             10,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		OTel: OTel{
			SampleRatio: 1,
		},
	}
}
