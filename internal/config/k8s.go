package config

import (
	"os"
	"time"

	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
)

// K8sConfigWatcher watches for ConfigMap changes
type K8sConfigWatcher struct {
	configPath string
	onChange   func(*Config)
	stopCh     chan struct{}
}

// NewK8sConfigWatcher creates a ConfigMap watcher
// ConfigMap is mounted at configPath (e.g., /etc/config/gateway.yaml)
func NewK8sConfigWatcher(configPath string, onChange func(*Config)) *K8sConfigWatcher {
	return &K8sConfigWatcher{
		configPath: configPath,
		onChange:   onChange,
		stopCh:     make(chan struct{}),
	}
}

// Start starts watching for ConfigMap changes
func (w *K8sConfigWatcher) Start() {
	// ConfigMap updates normally recreate the Pod; for in-place updates
	// we poll the mount's modification time.
	go w.watch()
}

// Stop stops the watcher
func (w *K8sConfigWatcher) Stop() {
	close(w.stopCh)
}

func (w *K8sConfigWatcher) watch() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var lastModTime time.Time

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			info, err := os.Stat(w.configPath)
			if err != nil {
				continue // mount not present yet
			}

			if !info.ModTime().IsZero() && info.ModTime().After(lastModTime) {
				xlog.Infof("ConfigMap changed, reloading...")
				w.onChange(LoadConfig())
				lastModTime = info.ModTime()
			}
		}
	}
}

// LoadConfigFromConfigMap loads config when running under K8s: the
// mounted ConfigMap sets the same environment keys LoadConfig reads, so
// the mount's presence only selects logging; values still come from env.
func LoadConfigFromConfigMap() *Config {
	configPaths := []string{
		"/etc/config/gateway.yaml",
		"/etc/gateway/config.yaml",
		"/config/gateway.yaml",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			xlog.Infof("Loading config from ConfigMap: %s", path)
			break
		}
	}

	return LoadConfig()
}
