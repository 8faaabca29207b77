package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Detect    DetectConfig    `yaml:"detect"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Backends  BackendsConfig  `yaml:"backends"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Security  SecurityConfig  `yaml:"security"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"GATEWAY_LISTEN_ADDR"`
	// Maximum concurrent connections
	MaxConnections int `yaml:"max_connections" env:"GATEWAY_MAX_CONNECTIONS"`
}

// DetectConfig bounds protocol detection on fresh connections.
type DetectConfig struct {
	// Timeout for the whole detection phase; a peer that sends nothing
	// within it is treated as an opaque TCP stream.
	Timeout time.Duration `yaml:"timeout" env:"DETECT_TIMEOUT"`
	// BufferSize is the detection buffer's capacity and therefore the
	// bound on an inbound connection-header frame.
	BufferSize int `yaml:"buffer_size" env:"DETECT_BUFFER_SIZE"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	ListenAddr string `yaml:"listen_addr" env:"METRICS_LISTEN_ADDR"`
	// RetainIdle is how long a target's per-route metrics survive without
	// activity before the reporter prunes them.
	RetainIdle time.Duration `yaml:"retain_idle" env:"METRICS_RETAIN_IDLE"`
}

type BackendsConfig struct {
	HTTP HTTPBackend `yaml:"http"`
	TCP  TCPBackend  `yaml:"tcp"`
}

type HTTPBackend struct {
	TargetURL string        `yaml:"target_url" env:"HTTP_BACKEND_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"HTTP_BACKEND_TIMEOUT"`
}

type TCPBackend struct {
	TargetAddr string        `yaml:"target_addr" env:"TCP_BACKEND_ADDR"`
	Timeout    time.Duration `yaml:"timeout" env:"TCP_BACKEND_TIMEOUT"`
}

type TracingConfig struct {
	JaegerEndpoint string `yaml:"jaeger_endpoint" env:"JAEGER_ENDPOINT"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	// BlockedIPs are rejected at accept time, before detection runs.
	BlockedIPs []string `yaml:"blocked_ips" env:"BLOCKED_IPS"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	ConnectsPerSecond float64 `yaml:"connects_per_second" env:"RATE_LIMIT_CPS"`
	Burst             int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type RedisConfig struct {
	Enabled   bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX"`
}

type LifecycleConfig struct {
	// Graceful shutdown timeout (for draining connections)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// Drain mode wait time (for long-lived TCP connections)
	DrainWaitTime time.Duration `yaml:"drain_wait_time" env:"DRAIN_WAIT_TIME"`
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     getEnv("GATEWAY_LISTEN_ADDR", ":4143"),
			MaxConnections: getEnvInt("GATEWAY_MAX_CONNECTIONS", 10000),
		},
		Detect: DetectConfig{
			Timeout:    getEnvDuration("DETECT_TIMEOUT", 10*time.Second),
			BufferSize: getEnvInt("DETECT_BUFFER_SIZE", 1024),
		},
		Metrics: MetricsConfig{
			Enabled:    getEnvBool("METRICS_ENABLED", true),
			ListenAddr: getEnv("METRICS_LISTEN_ADDR", ":9090"),
			RetainIdle: getEnvDuration("METRICS_RETAIN_IDLE", 10*time.Minute),
		},
		Backends: BackendsConfig{
			HTTP: HTTPBackend{
				TargetURL: getEnv("HTTP_BACKEND_URL", "http://localhost:5000"),
				Timeout:   getEnvDuration("HTTP_BACKEND_TIMEOUT", 30*time.Second),
			},
			TCP: TCPBackend{
				TargetAddr: getEnv("TCP_BACKEND_ADDR", "localhost:6000"),
				Timeout:    getEnvDuration("TCP_BACKEND_TIMEOUT", 60*time.Second),
			},
		},
		Tracing: TracingConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
				ConnectsPerSecond: getEnvFloat("RATE_LIMIT_CPS", 100),
				Burst:             getEnvInt("RATE_LIMIT_BURST", 200),
			},
			Redis: RedisConfig{
				Enabled:   getEnvBool("REDIS_ENABLED", false),
				Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
				Password:  getEnv("REDIS_PASSWORD", ""),
				DB:        getEnvInt("REDIS_DB", 0),
				KeyPrefix: getEnv("REDIS_KEY_PREFIX", "meshgw:"),
			},
			BlockedIPs: getEnvSlice("BLOCKED_IPS"),
		},
		Lifecycle: LifecycleConfig{
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 60*time.Second),
			DrainWaitTime:   getEnvDuration("DRAIN_WAIT_TIME", 30*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var result int
		fmt.Sscanf(v, "%d", &result)
		return result
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		var result float64
		fmt.Sscanf(v, "%f", &result)
		return result
	}
	return defaultValue
}

func getEnvSlice(key string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return nil
}
