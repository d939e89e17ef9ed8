// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) builds a Config with defaults; Load layers file and env on top.
// - Validate reports every problem wrapped in ErrInvalidConfig.
package config

import (
	"context"
	"errors"
	"runtime"
	"time"
)

var (
	// ErrInvalidConfig wraps every problem Validate finds.
	ErrInvalidConfig = errors.New("invalid verdict config")
	// ErrLoadConfig wraps failures reading VERDICT_CONFIG or VERDICT_* env.
	ErrLoadConfig = errors.New("load verdict config")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistence backend: memory, sqlite, postgres, redis.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite path or postgres connection string.
	StoreDSN string `koanf:"store_dsn"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// StoreTimeoutMS bounds each persistence call.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// CatalogPath points at a YAML criteria catalog. Empty uses the built-in one.
	CatalogPath string `koanf:"catalog_path"`

	// EventQueueSize bounds the lifecycle event queue.
	EventQueueSize int `koanf:"event_queue_size"`

	// WorkerCount sets the number of event log workers.
	WorkerCount int `koanf:"worker_count"`

	// RateLimitRPS and RateLimitBurst configure the HTTP token bucket; 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// CORSOrigins lists allowed origins; env form is comma separated.
	CORSOrigins []string `koanf:"cors_origins"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "json",
		Addr:           ":9080",
		StoreDriver:    "memory",
		StoreTimeoutMS: 5000,
		EventQueueSize: 1024,
		WorkerCount:    runtime.NumCPU(),
		RateLimitRPS:   0,
		RateLimitBurst: 0,
		MaxBodyBytes:   1 << 20,
	}
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}
