// Package discovery resolves the routing metadata carried in a connection
// header to a dialable upstream address.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/SkynetNext/mesh-gateway/internal/config"
	"github.com/SkynetNext/mesh-gateway/internal/header"
	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
)

// Resolver turns a decoded Header into an upstream address. Resolution
// order: the Redis route table (exact logical-name match), then DNS on
// the logical name (K8s service names become
// <name>.<namespace>.svc.cluster.local), then the static default backend.
type Resolver struct {
	store       *config.RedisStore
	namespace   string
	defaultAddr string
}

func NewResolver(cfg *config.Config, store *config.RedisStore) *Resolver {
	// Namespace comes from Pod metadata when running under K8s.
	namespace := os.Getenv("POD_NAMESPACE")
	if namespace == "" {
		if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
			namespace = strings.TrimSpace(string(data))
		} else {
			namespace = "default"
		}
	}

	return &Resolver{
		store:       store,
		namespace:   namespace,
		defaultAddr: cfg.Backends.TCP.TargetAddr,
	}
}

// Resolve returns the upstream address for h. A header without a name
// targets the default backend's host on the header's port.
func (r *Resolver) Resolve(ctx context.Context, h *header.Header) (string, error) {
	if h.Name == "" {
		return r.defaultOnPort(h.Port)
	}

	if r.store != nil {
		addr, err := r.store.LookupRoute(ctx, h.Name)
		if err == nil {
			return addr, nil
		}
		if !errors.Is(err, config.ErrRouteNotFound) && !errors.Is(err, config.ErrRedisNotEnabled) {
			xlog.Warnf("Route table lookup for %q failed: %v (falling back to DNS)", h.Name, err)
		}
	}

	ip, err := r.lookup(ctx, h.Name)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(ip, strconv.Itoa(int(h.Port))), nil
}

// lookup resolves name via DNS, trying the K8s service FQDN for bare
// service names.
func (r *Resolver) lookup(ctx context.Context, name string) (string, error) {
	var resolver net.Resolver

	candidates := []string{name}
	if !strings.Contains(name, ".") {
		candidates = []string{
			fmt.Sprintf("%s.%s.svc.cluster.local", name, r.namespace),
			name,
		}
	}

	var lastErr error
	for _, candidate := range candidates {
		ips, err := resolver.LookupIP(ctx, "ip", candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if len(ips) > 0 {
			return ips[0].String(), nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no IPs found for %s", name)
	}
	return "", fmt.Errorf("failed to resolve service %s: %w", name, lastErr)
}

func (r *Resolver) defaultOnPort(port uint16) (string, error) {
	if r.defaultAddr == "" {
		return "", errors.New("no default TCP backend configured")
	}
	if port == 0 {
		return r.defaultAddr, nil
	}
	host, _, err := net.SplitHostPort(r.defaultAddr)
	if err != nil {
		host = r.defaultAddr
	}
	return net.JoinHostPort(host, strconv.Itoa(int(port))), nil
}
