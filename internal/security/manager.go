// Package security enforces connection-level policy: accept-rate limiting
// and blocked source IPs, with dynamic state loaded read-only from Redis.
package security

import (
	"errors"
	"net"
	"sync"

	"github.com/SkynetNext/mesh-gateway/internal/config"
	"github.com/SkynetNext/mesh-gateway/internal/middleware"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
	"golang.org/x/time/rate"
)

var (
	ErrRateLimited = errors.New("security: accept rate limit exceeded")
	ErrBlockedIP   = errors.New("security: source address is blocked")
)

// Manager decides whether a freshly accepted connection may proceed to
// protocol detection.
type Manager struct {
	cfg *config.Config

	stateMu    sync.RWMutex
	blockedIPs map[string]struct{}
	limiter    *rate.Limiter

	redisStore *config.RedisStore
}

func NewManager(cfg *config.Config, store *config.RedisStore) *Manager {
	m := &Manager{
		cfg:        cfg,
		blockedIPs: make(map[string]struct{}),
		redisStore: store,
	}

	if cfg.Security.RateLimit.Enabled && cfg.Security.RateLimit.ConnectsPerSecond > 0 {
		m.UpdateRateLimit(cfg.Security.RateLimit.ConnectsPerSecond, cfg.Security.RateLimit.Burst)
	}
	m.UpdateBlockedIPs(cfg.Security.BlockedIPs)

	// Overlay the dynamic snapshot from Redis (READ-ONLY, no sync back)
	if store != nil {
		if snap, err := store.LoadSecuritySnapshot(); err == nil && snap != nil {
			m.applySnapshot(snap)
			xlog.Infof("Loaded security snapshot from Redis")
		} else if err != nil {
			xlog.Warnf("Failed to load security snapshot from Redis: %v (using static config)", err)
		}
		go m.consumeRedisUpdates()
	}

	return m
}

func (m *Manager) applySnapshot(snap *config.SecuritySnapshot) {
	if snap.ConnectsPerSecond > 0 {
		m.UpdateRateLimit(snap.ConnectsPerSecond, snap.Burst)
	}
	if len(snap.BlockedIPs) > 0 {
		m.UpdateBlockedIPs(snap.BlockedIPs)
	}
}

func (m *Manager) consumeRedisUpdates() {
	for update := range m.redisStore.Updates() {
		if update.Type != "security" {
			continue
		}
		if snap, err := m.redisStore.LoadSecuritySnapshot(); err == nil && snap != nil {
			m.applySnapshot(snap)
			xlog.Infof("Applied security update from Redis")
		}
	}
}

// UpdateRateLimit replaces the accept-rate limiter.
func (m *Manager) UpdateRateLimit(cps float64, burst int) {
	if burst <= 0 {
		burst = int(cps)
		if burst <= 0 {
			burst = 1
		}
	}
	m.stateMu.Lock()
	m.limiter = rate.NewLimiter(rate.Limit(cps), burst)
	m.stateMu.Unlock()
}

// UpdateBlockedIPs replaces the blocked-IP set.
func (m *Manager) UpdateBlockedIPs(ips []string) {
	blocked := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		blocked[ip] = struct{}{}
	}
	m.stateMu.Lock()
	m.blockedIPs = blocked
	m.stateMu.Unlock()
}

// Admit decides whether conn may proceed. It never blocks: a connection
// arriving over the rate limit is rejected, not queued.
func (m *Manager) Admit(conn net.Conn) error {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	m.stateMu.RLock()
	_, blocked := m.blockedIPs[host]
	limiter := m.limiter
	m.stateMu.RUnlock()

	if blocked {
		middleware.RecordSecurityBlock("blocked_ip")
		return ErrBlockedIP
	}
	if limiter != nil && !limiter.Allow() {
		middleware.RecordSecurityBlock("rate_limit")
		return ErrRateLimited
	}
	return nil
}
