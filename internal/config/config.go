package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultUpstreamBaseURL = "https://dummyjson.com/"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Timing    TimingConfig    `yaml:"timing"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr                     string   `yaml:"addr"`
	TrustedProxies           []string `yaml:"trusted_proxies"`
	MaxHeaderBytes           int      `yaml:"max_header_bytes"`
	MaxBodyBytes             int64    `yaml:"max_body_bytes"`
	MaxInFlight              int      `yaml:"max_in_flight"`
	ReadTimeoutSeconds       int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds      int      `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds       int      `yaml:"idle_timeout_seconds"`
	ReadHeaderTimeoutSeconds int      `yaml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int      `yaml:"shutdown_timeout_seconds"`
}

type UpstreamConfig struct {
	BaseURL                      string `yaml:"base_url"`
	DialTimeoutSeconds           int    `yaml:"dial_timeout_seconds"`
	TLSHandshakeTimeoutSeconds   int    `yaml:"tls_handshake_timeout_seconds"`
	ResponseHeaderTimeoutSeconds int    `yaml:"response_header_timeout_seconds"`
	IdleConnTimeoutSeconds       int    `yaml:"idle_conn_timeout_seconds"`
	MaxIdleConns                 int    `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost          int    `yaml:"max_idle_conns_per_host"`
}

type TimingConfig struct {
	Store      string      `yaml:"store"` // "memory" | "redis"
	MaxEntries int         `yaml:"max_entries"`
	Redis      RedisConfig `yaml:"redis"`
}

type RateLimitConfig struct {
	Enabled        bool        `yaml:"enabled"`
	Backend        string      `yaml:"backend"` // "memory" | "redis"
	RPS            float64     `yaml:"rps"`
	Burst          int         `yaml:"burst"`
	TTLSeconds     int         `yaml:"ttl_seconds"`
	CleanupSeconds int         `yaml:"cleanup_seconds"`
	Redis          RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Load reads a YAML file. An empty path means defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	applyEnv(&cfg, os.LookupEnv)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20 // 1 MiB
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 64 << 10
	}
	if cfg.Server.ReadHeaderTimeoutSeconds == 0 {
		cfg.Server.ReadHeaderTimeoutSeconds = 5
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Server.IdleTimeoutSeconds == 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 5
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.DialTimeoutSeconds == 0 {
		cfg.Upstream.DialTimeoutSeconds = 5
	}
	if cfg.Upstream.TLSHandshakeTimeoutSeconds == 0 {
		cfg.Upstream.TLSHandshakeTimeoutSeconds = 5
	}
	if cfg.Upstream.ResponseHeaderTimeoutSeconds == 0 {
		cfg.Upstream.ResponseHeaderTimeoutSeconds = 15
	}
	if cfg.Upstream.IdleConnTimeoutSeconds == 0 {
		cfg.Upstream.IdleConnTimeoutSeconds = 90
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = 100
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = 20
	}

	if cfg.Timing.Store == "" {
		cfg.Timing.Store = "memory"
	}
	if cfg.Timing.MaxEntries == 0 {
		cfg.Timing.MaxEntries = 1024
	}
	if cfg.Timing.Redis.KeyPrefix == "" {
		cfg.Timing.Redis.KeyPrefix = "timing:"
	}
	if cfg.Timing.Redis.TTLSeconds == 0 {
		cfg.Timing.Redis.TTLSeconds = 300
	}

	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.TTLSeconds == 0 {
		cfg.RateLimit.TTLSeconds = 300
	}
	if cfg.RateLimit.CleanupSeconds == 0 {
		cfg.RateLimit.CleanupSeconds = 60
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// applyEnv lets deployments override the few settings that differ per
// environment without shipping a new file.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("SECOND_ADDR"); ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := lookup("SECOND_UPSTREAM_BASE_URL"); ok && v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v, ok := lookup("SECOND_REDIS_ADDR"); ok && v != "" {
		cfg.Timing.Redis.Addr = v
		cfg.RateLimit.Redis.Addr = v
	}
	if v, ok := lookup("SECOND_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
}

func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Server.MaxInFlight < 0 {
		return errors.New("server.max_in_flight cannot be negative")
	}

	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("upstream.base_url invalid: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.base_url must be http or https, got %q", cfg.Upstream.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream.base_url must include a host")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Timing.Store)) {
	case "memory":
		if cfg.Timing.MaxEntries < 0 {
			return errors.New("timing.max_entries cannot be negative")
		}
	case "redis":
		if strings.TrimSpace(cfg.Timing.Redis.Addr) == "" {
			return errors.New("timing.redis.addr is required when timing.store is redis")
		}
	default:
		return errors.New("timing.store must be 'memory' or 'redis'")
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			return errors.New("rate_limit.rps must be > 0 when enabled")
		}
		if cfg.RateLimit.Burst <= 0 {
			return errors.New("rate_limit.burst must be > 0 when enabled")
		}
		switch strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend)) {
		case "memory":
		case "redis":
			if strings.TrimSpace(cfg.RateLimit.Redis.Addr) == "" {
				return errors.New("rate_limit.redis.addr is required when backend is redis")
			}
		default:
			return errors.New("rate_limit.backend must be 'redis' or 'memory'")
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level)
	}
	return nil
}
