package healthcheck

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/SkynetNext/mesh-gateway/internal/config"
	"github.com/SkynetNext/mesh-gateway/internal/middleware"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
)

// UpstreamHealthChecker periodically checks the health of the static
// backends headerless traffic falls through to. Header-routed upstreams
// are dialed on demand and report health through dial metrics instead.
type UpstreamHealthChecker struct {
	cfg        *config.Config
	httpClient *http.Client
	tcpTimeout time.Duration
	interval   time.Duration
	stopChan   chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	healthMap  map[string]bool // upstream -> healthy
}

func NewUpstreamHealthChecker(cfg *config.Config) *UpstreamHealthChecker {
	return &UpstreamHealthChecker{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		tcpTimeout: 5 * time.Second,
		interval:   30 * time.Second,
		stopChan:   make(chan struct{}),
		healthMap:  make(map[string]bool),
	}
}

// Start begins periodic health checking
func (c *UpstreamHealthChecker) Start() {
	c.wg.Add(1)
	go c.run()
	xlog.Infof("Upstream health checker started (interval: %v)", c.interval)
}

// Stop stops the health checker
func (c *UpstreamHealthChecker) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	xlog.Infof("Upstream health checker stopped")
}

// IsHealthy returns the last observed health of an upstream
func (c *UpstreamHealthChecker) IsHealthy(upstream string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthMap[upstream]
}

func (c *UpstreamHealthChecker) run() {
	defer c.wg.Done()

	c.checkAll()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkAll()
		case <-c.stopChan:
			return
		}
	}
}

func (c *UpstreamHealthChecker) checkAll() {
	if url := c.cfg.Backends.HTTP.TargetURL; url != "" {
		c.updateHealth(url, c.checkHTTP(url))
	}
	if addr := c.cfg.Backends.TCP.TargetAddr; addr != "" {
		c.updateHealth(addr, c.checkTCP(addr))
	}
}

func (c *UpstreamHealthChecker) checkHTTP(url string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		xlog.Debugf("Health check: failed to create HTTP request for %s: %v", url, err)
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		xlog.Debugf("Health check: HTTP backend %s is unhealthy: %v", url, err)
		return false
	}
	resp.Body.Close()

	// 2xx and 3xx count as healthy
	healthy := resp.StatusCode >= 200 && resp.StatusCode < 400
	if !healthy {
		xlog.Debugf("Health check: HTTP backend %s returned status %d", url, resp.StatusCode)
	}
	return healthy
}

func (c *UpstreamHealthChecker) checkTCP(addr string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.tcpTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		xlog.Debugf("Health check: TCP backend %s is unhealthy: %v", addr, err)
		return false
	}
	conn.Close()
	return true
}

func (c *UpstreamHealthChecker) updateHealth(upstream string, healthy bool) {
	c.mu.Lock()
	oldHealthy := c.healthMap[upstream]
	c.healthMap[upstream] = healthy
	c.mu.Unlock()

	middleware.SetUpstreamHealth(upstream, healthy)

	if oldHealthy != healthy {
		if healthy {
			xlog.Infof("Upstream %s is now healthy", upstream)
		} else {
			xlog.Warnf("Upstream %s is now unhealthy", upstream)
		}
	}
}
