// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	AuthKeys  AuthKeysConfig  `yaml:"auth_keys"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TLS             TLSConfig     `yaml:"tls"`
}

// TLSConfig configures TLS.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DatabaseConfig configures the database connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// AuthConfig configures credential signing and the session cookie.
type AuthConfig struct {
	// Secret is the HMAC signing key for session credentials.
	Secret string `yaml:"secret"`

	// LifetimeDays is the credential and session expiry horizon.
	LifetimeDays int `yaml:"lifetime_days"`

	// CookieName overrides the session cookie name.
	CookieName string `yaml:"cookie_name"`

	// SecureCookies marks the cookie Secure; enable in production.
	SecureCookies bool `yaml:"secure_cookies"`

	// Issuer is the iss claim value.
	Issuer string `yaml:"issuer"`
}

// RateLimitConfig configures the fixed-window limiter per guarded endpoint.
type RateLimitConfig struct {
	Login           WindowConfig  `yaml:"login"`
	TwoFactor       WindowConfig  `yaml:"two_factor"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// WindowConfig is one fixed-window budget.
type WindowConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// AuditConfig configures the security audit log.
type AuditConfig struct {
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// SessionsConfig configures the active-session registry.
type SessionsConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// AuthKeysConfig configures the secondary auth-key credential.
type AuthKeysConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// RealtimeConfig configures the realtime transport hand-off.
type RealtimeConfig struct {
	// SocketURL is the websocket endpoint advertised to promoted clients.
	SocketURL string `yaml:"socket_url"`
}

// Load loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Auth.LifetimeDays == 0 {
		cfg.Auth.LifetimeDays = 7
	}
	if cfg.RateLimit.Login.Limit == 0 {
		cfg.RateLimit.Login.Limit = 5
	}
	if cfg.RateLimit.Login.Window == 0 {
		cfg.RateLimit.Login.Window = 5 * time.Minute
	}
	if cfg.RateLimit.TwoFactor.Limit == 0 {
		cfg.RateLimit.TwoFactor.Limit = 5
	}
	if cfg.RateLimit.TwoFactor.Window == 0 {
		cfg.RateLimit.TwoFactor.Window = 5 * time.Minute
	}
	if cfg.RateLimit.CleanupInterval == 0 {
		cfg.RateLimit.CleanupInterval = time.Minute
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
	if cfg.Audit.CleanupInterval == 0 {
		cfg.Audit.CleanupInterval = time.Hour
	}
	if cfg.Sessions.CleanupInterval == 0 {
		cfg.Sessions.CleanupInterval = 10 * time.Minute
	}
	if cfg.AuthKeys.TTL == 0 {
		cfg.AuthKeys.TTL = 24 * time.Hour
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Auth.Secret == "" {
		errs = append(errs, "auth.secret is required")
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			errs = append(errs, "server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			errs = append(errs, "server.tls.key_file is required when TLS is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
