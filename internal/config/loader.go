package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "VERDICT_"
	envFileVar = "VERDICT_CONFIG"
)

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"json", "text"}
	storeDrivers = []string{"memory", "sqlite", "postgres", "redis"}
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if VERDICT_CONFIG is set
//  3. env (prefix VERDICT_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// VERDICT_STORE_DSN -> store_dsn. Keys are flat, so underscores stay.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileVar {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		bad("addr must not be empty")
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		bad("log_level %q not in %v", c.LogLevel, logLevels)
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		bad("log_format %q not in %v", c.LogFormat, logFormats)
	}
	switch {
	case !slices.Contains(storeDrivers, c.StoreDriver):
		bad("store_driver %q not in %v", c.StoreDriver, storeDrivers)
	case (c.StoreDriver == "sqlite" || c.StoreDriver == "postgres") && c.StoreDSN == "":
		bad("store_dsn is required for %s", c.StoreDriver)
	case c.StoreDriver == "redis" && c.RedisAddr == "":
		bad("redis_addr is required for redis")
	}
	if c.StoreTimeoutMS <= 0 {
		bad("store_timeout_ms must be positive")
	}
	if c.EventQueueSize <= 0 {
		bad("event_queue_size must be positive")
	}
	if c.WorkerCount <= 0 {
		bad("worker_count must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		bad("rate limit values must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		bad("max_body_bytes must be positive")
	}
	return errors.Join(errs...)
}
