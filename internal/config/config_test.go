package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.Server.ListenAddr != ":4143" {
		t.Fatalf("ListenAddr = %q, want :4143", cfg.Server.ListenAddr)
	}
	if cfg.Detect.BufferSize != 1024 {
		t.Fatalf("Detect.BufferSize = %d, want 1024", cfg.Detect.BufferSize)
	}
	if cfg.Detect.Timeout != 10*time.Second {
		t.Fatalf("Detect.Timeout = %v, want 10s", cfg.Detect.Timeout)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("metrics should default to enabled")
	}
	if cfg.Metrics.RetainIdle != 10*time.Minute {
		t.Fatalf("Metrics.RetainIdle = %v, want 10m", cfg.Metrics.RetainIdle)
	}
	if cfg.Security.Redis.Enabled {
		t.Fatal("redis should default to disabled")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_LISTEN_ADDR", ":7000")
	t.Setenv("DETECT_BUFFER_SIZE", "4096")
	t.Setenv("DETECT_TIMEOUT", "250ms")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("RATE_LIMIT_CPS", "12.5")
	t.Setenv("BLOCKED_IPS", "10.0.0.1, 10.0.0.2 ,")

	cfg := LoadConfig()

	if cfg.Server.ListenAddr != ":7000" {
		t.Fatalf("ListenAddr = %q, want :7000", cfg.Server.ListenAddr)
	}
	if cfg.Detect.BufferSize != 4096 {
		t.Fatalf("Detect.BufferSize = %d, want 4096", cfg.Detect.BufferSize)
	}
	if cfg.Detect.Timeout != 250*time.Millisecond {
		t.Fatalf("Detect.Timeout = %v, want 250ms", cfg.Detect.Timeout)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("METRICS_ENABLED=false not honored")
	}
	if cfg.Security.RateLimit.ConnectsPerSecond != 12.5 {
		t.Fatalf("ConnectsPerSecond = %v, want 12.5", cfg.Security.RateLimit.ConnectsPerSecond)
	}
	want := []string{"10.0.0.1", "10.0.0.2"}
	if len(cfg.Security.BlockedIPs) != len(want) {
		t.Fatalf("BlockedIPs = %v, want %v", cfg.Security.BlockedIPs, want)
	}
	for i := range want {
		if cfg.Security.BlockedIPs[i] != want[i] {
			t.Fatalf("BlockedIPs = %v, want %v", cfg.Security.BlockedIPs, want)
		}
	}
}

func TestLoadConfigBadDurationFallsBack(t *testing.T) {
	t.Setenv("DETECT_TIMEOUT", "not-a-duration")

	cfg := LoadConfig()
	if cfg.Detect.Timeout != 10*time.Second {
		t.Fatalf("Detect.Timeout = %v, want default 10s", cfg.Detect.Timeout)
	}
}
