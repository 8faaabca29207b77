package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SkynetNext/mesh-gateway/internal/config"
)

type staticHealth map[string]bool

func (h staticHealth) IsHealthy(upstream string) bool { return h[upstream] }

func TestAdminHealthReportsBackendState(t *testing.T) {
	cfg := config.LoadConfig()
	cfg.Backends.HTTP.TargetURL = "http://10.0.0.1:8080"
	cfg.Backends.TCP.TargetAddr = "10.0.0.2:9000"

	a := NewAdminAPI(cfg, nil, staticHealth{
		"http://10.0.0.1:8080": true,
		"10.0.0.2:9000":        false,
	})

	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status["gateway"] != "ok" {
		t.Fatalf("gateway = %q, want ok", status["gateway"])
	}
	if status["backend_http"] != "ok" {
		t.Fatalf("backend_http = %q, want ok", status["backend_http"])
	}
	// An unhealthy backend is reported but does not fail the endpoint.
	if status["backend_tcp"] != "unhealthy" {
		t.Fatalf("backend_tcp = %q, want unhealthy", status["backend_tcp"])
	}
}

func TestAdminRoutesWithoutRedis(t *testing.T) {
	a := NewAdminAPI(config.LoadConfig(), nil, nil)

	mux := http.NewServeMux()
	a.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/routes", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
