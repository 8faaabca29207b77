package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SkynetNext/mesh-gateway/internal/config"
)

// UpstreamHealth reports the last probed state of a static backend.
type UpstreamHealth interface {
	IsHealthy(upstream string) bool
}

// AdminAPI exposes a read-only view of the gateway's runtime state on the
// metrics listener. Route and security writes go through external admin
// tools; the gateway never mutates control-plane state.
type AdminAPI struct {
	cfg    *config.Config
	store  *config.RedisStore
	health UpstreamHealth
}

func NewAdminAPI(cfg *config.Config, store *config.RedisStore, health UpstreamHealth) *AdminAPI {
	return &AdminAPI{
		cfg:    cfg,
		store:  store,
		health: health,
	}
}

// RegisterRoutes registers admin API routes
func (a *AdminAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/config", a.handleConfig)
	mux.HandleFunc("/admin/routes", a.handleRoutes)
	mux.HandleFunc("/admin/health", a.handleHealth)
}

// GET /admin/config - Effective configuration
func (a *AdminAPI) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"server": map[string]any{
			"listen_addr":     a.cfg.Server.ListenAddr,
			"max_connections": a.cfg.Server.MaxConnections,
		},
		"detect": map[string]any{
			"timeout":     a.cfg.Detect.Timeout.String(),
			"buffer_size": a.cfg.Detect.BufferSize,
		},
		"backends": map[string]any{
			"http": a.cfg.Backends.HTTP.TargetURL,
			"tcp":  a.cfg.Backends.TCP.TargetAddr,
		},
		"security": map[string]any{
			"rate_limit": map[string]any{
				"enabled":             a.cfg.Security.RateLimit.Enabled,
				"connects_per_second": a.cfg.Security.RateLimit.ConnectsPerSecond,
				"burst":               a.cfg.Security.RateLimit.Burst,
			},
			"blocked_ips": a.cfg.Security.BlockedIPs,
		},
	})
}

// GET /admin/routes - Route table snapshot from Redis
func (a *AdminAPI) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.store == nil {
		http.Error(w, "route table not enabled (redis disabled)", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	routes, err := a.store.ListRoutes(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"routes": routes})
}

// GET /admin/health - Control-plane connectivity and backend probe state
func (a *AdminAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"gateway": "ok"}
	code := http.StatusOK

	if a.store != nil {
		if err := a.store.CheckHealth(); err != nil {
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "ok"
		}
	}

	// Backend state is informational: an unhealthy backend does not make
	// the gateway itself unhealthy.
	if a.health != nil {
		if url := a.cfg.Backends.HTTP.TargetURL; url != "" {
			status["backend_http"] = probedState(a.health.IsHealthy(url))
		}
		if addr := a.cfg.Backends.TCP.TargetAddr; addr != "" {
			status["backend_tcp"] = probedState(a.health.IsHealthy(addr))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func probedState(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "unhealthy"
}
