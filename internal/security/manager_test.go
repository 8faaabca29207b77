package security

import (
	"errors"
	"net"
	"testing"

	"github.com/SkynetNext/mesh-gateway/internal/config"
)

type fakeConn struct {
	net.Conn
	remote string
}

func (f fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(f.remote), Port: 55000}
}

func testConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.Security.RateLimit.Enabled = false
	cfg.Security.BlockedIPs = nil
	return cfg
}

func TestAdmitBlockedIP(t *testing.T) {
	cfg := testConfig()
	cfg.Security.BlockedIPs = []string{"10.0.0.9"}
	m := NewManager(cfg, nil)

	if err := m.Admit(fakeConn{remote: "10.0.0.9"}); !errors.Is(err, ErrBlockedIP) {
		t.Fatalf("err = %v, want ErrBlockedIP", err)
	}
	if err := m.Admit(fakeConn{remote: "10.0.0.10"}); err != nil {
		t.Fatalf("unblocked IP rejected: %v", err)
	}
}

func TestAdmitRateLimit(t *testing.T) {
	cfg := testConfig()
	m := NewManager(cfg, nil)
	m.UpdateRateLimit(1, 2)

	conn := fakeConn{remote: "192.0.2.1"}
	if err := m.Admit(conn); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if err := m.Admit(conn); err != nil {
		t.Fatalf("second admit (within burst): %v", err)
	}
	if err := m.Admit(conn); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestAdmitDynamicBlockUpdate(t *testing.T) {
	m := NewManager(testConfig(), nil)
	conn := fakeConn{remote: "203.0.113.7"}

	if err := m.Admit(conn); err != nil {
		t.Fatalf("admit before block: %v", err)
	}
	m.UpdateBlockedIPs([]string{"203.0.113.7"})
	if err := m.Admit(conn); !errors.Is(err, ErrBlockedIP) {
		t.Fatalf("err = %v, want ErrBlockedIP after update", err)
	}
}
