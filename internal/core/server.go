package core

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SkynetNext/mesh-gateway/internal/api"
	"github.com/SkynetNext/mesh-gateway/internal/config"
	"github.com/SkynetNext/mesh-gateway/internal/discovery"
	"github.com/SkynetNext/mesh-gateway/internal/healthcheck"
	"github.com/SkynetNext/mesh-gateway/internal/metrics"
	"github.com/SkynetNext/mesh-gateway/internal/security"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg        *config.Config
	listener   *Listener
	draining   int32 // Atomic: 0=Running, 1=Draining
	wg         sync.WaitGroup
	security   *security.Manager
	redisStore *config.RedisStore
	report     *metrics.Report
	health     *healthcheck.UpstreamHealthChecker
	metricsSrv *http.Server
}

func NewServer(cfg *config.Config, store *config.RedisStore) *Server {
	sec := security.NewManager(cfg, store)
	resolver := discovery.NewResolver(cfg, store)
	report := metrics.NewReport("gateway_route", cfg.Metrics.RetainIdle)

	return &Server{
		cfg:        cfg,
		listener:   NewListener(cfg, sec, resolver, report),
		security:   sec,
		redisStore: store,
		report:     report,
		health:     healthcheck.NewUpstreamHealthChecker(cfg),
	}
}

func (s *Server) Start() {
	// 1. Start Metrics Server (if enabled)
	if s.cfg.Metrics.Enabled {
		prometheus.MustRegister(s.report)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", s.healthHandler)
		mux.HandleFunc("/ready", s.readyHandler) // K8s Readiness Probe

		// Register Admin API (read-only control-plane view)
		adminAPI := api.NewAdminAPI(s.cfg, s.redisStore, s.health)
		adminAPI.RegisterRoutes(mux)

		s.metricsSrv = &http.Server{Addr: s.cfg.Metrics.ListenAddr, Handler: mux}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			xlog.Infof("Metrics server listening on %s", s.cfg.Metrics.ListenAddr)
			if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				xlog.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	// 2. Start upstream health probes
	s.health.Start()

	// 3. Start Business Listener
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.listener.Start(); err != nil {
			xlog.Errorf("Failed to start listener: %v", err)
		}
	}()
}

// ApplyConfig refreshes the settings that can change without a restart.
// Listener address, backends and metrics endpoint still require one.
func (s *Server) ApplyConfig(cfg *config.Config) {
	if cfg.Security.RateLimit.Enabled && cfg.Security.RateLimit.ConnectsPerSecond > 0 {
		s.security.UpdateRateLimit(cfg.Security.RateLimit.ConnectsPerSecond, cfg.Security.RateLimit.Burst)
	}
	s.security.UpdateBlockedIPs(cfg.Security.BlockedIPs)
	xlog.Infof("Applied refreshed configuration")
}

// GracefulShutdown handles the shutdown process
func (s *Server) GracefulShutdown(timeout time.Duration) {
	xlog.Infof("Entering Drain Mode...")

	// 1. Mark as Draining
	// /ready returns 503, prompting K8s to remove this pod from endpoints
	atomic.StoreInt32(&s.draining, 1)

	// 2. Wait for K8s endpoints propagation (usually 5-10s)
	xlog.Infof("Waiting for K8s to deregister endpoints...")
	time.Sleep(5 * time.Second)

	// 3. Stop accepting new connections
	s.listener.Stop()
	s.health.Stop()

	// 4. Give in-flight connections the configured drain window
	xlog.Infof("Waiting for active connections to drain (Timeout: %v)...", timeout)
	time.Sleep(timeout)

	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.metricsSrv.Shutdown(ctx)
		cancel()
	}

	s.wg.Wait()
	if s.redisStore != nil {
		if err := s.redisStore.Close(); err != nil {
			xlog.Warnf("Failed to close Redis store: %v", err)
		}
	}
	xlog.Infof("Shutdown complete.")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler for K8s Readiness Probe
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&s.draining) == 1 {
		// In drain mode, return 503 to signal K8s to stop sending traffic
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Draining"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
