// Package config loads application configuration from an optional config.yml
// and environment variables using viper.
//
// PRECEDENCE (highest first):
//  1. Environment variables (PORT=9000 ./server)
//  2. config.yml in the working directory (or config.<APP_ENV>.yml on top)
//  3. Defaults set below
//
// Every key is an upper-case env-style name so the same spelling works in
// the YAML file and in the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server and the seed command need.
type Config struct {
	Port      int    `mapstructure:"PORT"`
	Env       string `mapstructure:"APP_ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	DBPath    string `mapstructure:"DB_PATH"`
	MediaDir  string `mapstructure:"MEDIA_DIR"`
	StaticDir string `mapstructure:"STATIC_DIR"`
	// BaseURL is the public origin used to build absolute links in shared
	// emails, e.g. "https://blog.example.com". Empty means "derive from the
	// request", which is only allowed outside production.
	BaseURL string `mapstructure:"BASE_URL"`

	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`

	RedisURL   string        `mapstructure:"REDIS_URL"`
	RateLimit  int           `mapstructure:"RATE_LIMIT"`
	RateWindow time.Duration `mapstructure:"RATE_WINDOW"`

	SendGridAPIKey   string `mapstructure:"SENDGRID_API_KEY"`
	DefaultFromEmail string `mapstructure:"DEFAULT_FROM_EMAIL"`
}

const devSessionSecret = "dev-session-secret-change-me"

// setDefaults registers the fallback value of every key. viper only
// unmarshals keys it knows about, so every field needs an entry here even
// when the default is empty.
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("DB_PATH", "data/blog.db")
	v.SetDefault("MEDIA_DIR", "data/media")
	v.SetDefault("STATIC_DIR", "web/static")
	v.SetDefault("BASE_URL", "")
	v.SetDefault("SESSION_SECRET", devSessionSecret)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_LIMIT", 10)
	v.SetDefault("RATE_WINDOW", "1m")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("DEFAULT_FROM_EMAIL", "noreply@localhost")
}

// Load reads configuration from config.yml (if present) and the environment,
// then validates it.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith is Load on a caller-provided viper instance. Tests use it to
// inject values with v.Set without touching the process environment.
func LoadWith(v *viper.Viper) (*Config, error) {
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	setDefaults(v)

	// A missing config file is fine, everything can come from the environment.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config.yml: %w", err)
		}
	}

	// A profile file (config.production.yml) is merged on top when present.
	if env := v.GetString("APP_ENV"); env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading config.%s.yml: %w", env, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV is "production" (or "prod").
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate checks required values and production-only security rules.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.MediaDir == "" {
		return errors.New("MEDIA_DIR is required")
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT must be positive")
	}
	if c.RateWindow <= 0 {
		return errors.New("RATE_WINDOW must be positive")
	}
	if c.DefaultFromEmail == "" {
		return errors.New("DEFAULT_FROM_EMAIL is required")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
		}
	}

	if c.IsProduction() {
		// Without BASE_URL, shared links are built from the request's Host
		// header, which any client can set.
		if c.BaseURL == "" {
			return errors.New("BASE_URL is required in production")
		}
		if c.SessionSecret == devSessionSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
	}
	return nil
}

// ParseLogLevel maps LOG_LEVEL to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
}
