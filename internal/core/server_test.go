package core

import (
	"errors"
	"net"
	"testing"

	"github.com/SkynetNext/mesh-gateway/internal/config"
	"github.com/SkynetNext/mesh-gateway/internal/security"
)

// stubConn carries only a remote address; security admission never reads
// or writes the connection.
type stubConn struct {
	net.Conn
	remote net.Addr
}

func (c stubConn) RemoteAddr() net.Addr { return c.remote }

func connFrom(t *testing.T, ip string) stubConn {
	t.Helper()
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(ip, "40000"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return stubConn{remote: addr}
}

func TestApplyConfigRefreshesSecurity(t *testing.T) {
	cfg := config.LoadConfig()
	cfg.Security.RateLimit.Enabled = false
	cfg.Security.BlockedIPs = nil

	s := NewServer(cfg, nil)

	if err := s.security.Admit(connFrom(t, "192.0.2.9")); err != nil {
		t.Fatalf("admit before refresh: %v", err)
	}

	next := config.LoadConfig()
	next.Security.RateLimit.Enabled = true
	next.Security.RateLimit.ConnectsPerSecond = 100
	next.Security.RateLimit.Burst = 10
	next.Security.BlockedIPs = []string{"192.0.2.9"}
	s.ApplyConfig(next)

	if err := s.security.Admit(connFrom(t, "192.0.2.9")); !errors.Is(err, security.ErrBlockedIP) {
		t.Fatalf("admit after refresh: err = %v, want ErrBlockedIP", err)
	}
	if err := s.security.Admit(connFrom(t, "192.0.2.10")); err != nil {
		t.Fatalf("admit unblocked peer: %v", err)
	}

	// Refreshing again with an empty block list unblocks the peer.
	next.Security.BlockedIPs = nil
	s.ApplyConfig(next)
	if err := s.security.Admit(connFrom(t, "192.0.2.9")); err != nil {
		t.Fatalf("admit after unblock: %v", err)
	}
}
