package healthcheck

import (
	"net"
	"testing"

	"github.com/SkynetNext/mesh-gateway/internal/config"
)

func TestIsHealthyTracksProbeResults(t *testing.T) {
	c := NewUpstreamHealthChecker(config.LoadConfig())

	if c.IsHealthy("10.0.0.1:9000") {
		t.Fatal("unprobed upstream reported healthy")
	}

	c.updateHealth("10.0.0.1:9000", true)
	if !c.IsHealthy("10.0.0.1:9000") {
		t.Fatal("upstream not healthy after successful probe")
	}

	c.updateHealth("10.0.0.1:9000", false)
	if c.IsHealthy("10.0.0.1:9000") {
		t.Fatal("upstream still healthy after failed probe")
	}
}

func TestCheckTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	c := NewUpstreamHealthChecker(config.LoadConfig())
	if !c.checkTCP(ln.Addr().String()) {
		t.Fatal("live listener reported unhealthy")
	}

	addr := ln.Addr().String()
	ln.Close()
	if c.checkTCP(addr) {
		t.Fatal("closed listener reported healthy")
	}
}
