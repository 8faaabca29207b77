package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/SkynetNext/mesh-gateway/internal/config"
	"github.com/SkynetNext/mesh-gateway/internal/core"
	"github.com/SkynetNext/mesh-gateway/internal/middleware"
	"github.com/SkynetNext/mesh-gateway/internal/observability"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
)

func main() {
	xlog.Infof("Starting Mesh Gateway...")

	// 1. Load configuration
	cfg := config.LoadConfigFromConfigMap()

	// 2. Access logger and tracing
	middleware.InitLogger(1024)
	if err := observability.InitTracing("mesh-gateway", cfg.Tracing.JaegerEndpoint); err != nil {
		xlog.Warnf("Tracing disabled: %v", err)
	}

	// 3. Control-plane store (route table, security snapshot)
	store, err := config.NewRedisStore(&cfg.Security.Redis)
	if err != nil {
		xlog.Errorf("Failed to initialize Redis store: %v", err)
		os.Exit(1)
	}

	// 4. Start server (listener + metrics/admin endpoint)
	server := core.NewServer(cfg, store)
	server.Start()

	// 5. Watch the mounted ConfigMap for in-place updates
	watcher := config.NewK8sConfigWatcher("/etc/config/gateway.yaml", server.ApplyConfig)
	watcher.Start()

	// 6. Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	xlog.Infof("Shutting down server...")
	watcher.Stop()
	server.GracefulShutdown(cfg.Lifecycle.DrainWaitTime)
	xlog.Infof("Server exited")
}
