package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SkynetNext/mesh-gateway/pkg/xlog"
	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisNotEnabled = errors.New("redis store not enabled")
	ErrRouteNotFound   = errors.New("route not found in redis")
)

// RedisStore is the gateway's read-only view of control-plane state kept
// in Redis: the route table mapping logical service names (as carried in
// connection headers) to upstream addresses, and the security snapshot.
// All writes are done by external admin tools.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ctx     context.Context
	pubsub  *redis.PubSub
	updates chan ConfigUpdate
}

// ConfigUpdate represents a change notification from Redis pub/sub
type ConfigUpdate struct {
	Type string          `json:"type"` // "routes", "security"
	Data json.RawMessage `json:"data"`
}

// NewRedisStore connects the read-only store. Returns (nil, nil) when
// Redis is disabled; callers treat a nil store as "no dynamic state".
func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &RedisStore{
		client:  client,
		prefix:  cfg.KeyPrefix,
		ctx:     ctx,
		updates: make(chan ConfigUpdate, 10),
	}

	pubsub := client.Subscribe(ctx, store.prefix+"config:changed")
	store.pubsub = pubsub
	go store.listenUpdates(pubsub.Channel())

	xlog.Infof("Redis store initialized (READ-ONLY): addr=%s, prefix=%s", cfg.Addr, cfg.KeyPrefix)
	return store, nil
}

// listenUpdates forwards pub/sub messages to the updates channel and
// closes it when the subscription ends, so consumers can range to
// completion on shutdown.
func (r *RedisStore) listenUpdates(ch <-chan *redis.Message) {
	defer close(r.updates)

	for msg := range ch {
		var update ConfigUpdate
		if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
			xlog.Warnf("Failed to parse config update: %v", err)
			continue
		}
		select {
		case r.updates <- update:
			xlog.Infof("Received config update: type=%s", update.Type)
		default:
			xlog.Warnf("Config update channel full, dropping update")
		}
	}
}

// Updates returns a channel for receiving config change notifications
func (r *RedisStore) Updates() <-chan ConfigUpdate {
	if r == nil {
		return nil
	}
	return r.updates
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	if r == nil {
		return nil
	}
	if r.pubsub != nil {
		r.pubsub.Close()
	}
	return r.client.Close()
}

// CheckHealth checks if the Redis connection is healthy
func (r *RedisStore) CheckHealth() error {
	if r == nil {
		return ErrRedisNotEnabled
	}
	return r.client.Ping(r.ctx).Err()
}

// =============================================================================
// Route table - READ ONLY
// =============================================================================

// LookupRoute resolves a logical service name to an upstream address.
// Routes live in a hash per name: meshgw:routes:<name> {addr: host:port}.
func (r *RedisStore) LookupRoute(ctx context.Context, name string) (string, error) {
	if r == nil {
		return "", ErrRedisNotEnabled
	}

	addr, err := r.client.HGet(ctx, r.prefix+"routes:"+name, "addr").Result()
	if err == redis.Nil {
		return "", ErrRouteNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up route %q: %w", name, err)
	}
	if addr == "" {
		return "", ErrRouteNotFound
	}
	return addr, nil
}

// ListRoutes returns the full route table, for the admin API.
func (r *RedisStore) ListRoutes(ctx context.Context) (map[string]string, error) {
	if r == nil {
		return nil, ErrRedisNotEnabled
	}

	routes := make(map[string]string)
	iter := r.client.Scan(ctx, 0, r.prefix+"routes:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		addr, err := r.client.HGet(ctx, key, "addr").Result()
		if err != nil {
			continue
		}
		routes[key[len(r.prefix+"routes:"):]] = addr
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan routes: %w", err)
	}
	return routes, nil
}

// =============================================================================
// Security snapshot - READ ONLY
// =============================================================================

// SecuritySnapshot is the dynamic security state admin tools keep in Redis.
type SecuritySnapshot struct {
	BlockedIPs        []string
	ConnectsPerSecond float64
	Burst             int
}

// LoadSecuritySnapshot loads blocked IPs and rate-limit settings.
// Missing keys leave the corresponding zero values; callers fall back to
// static config for those.
func (r *RedisStore) LoadSecuritySnapshot() (*SecuritySnapshot, error) {
	if r == nil {
		return nil, ErrRedisNotEnabled
	}

	snap := &SecuritySnapshot{}

	if ips, err := r.client.SMembers(r.ctx, r.prefix+"security:blocked_ips").Result(); err == nil {
		snap.BlockedIPs = ips
	}

	if rateCfg, err := r.client.HGetAll(r.ctx, r.prefix+"security:rate_limit").Result(); err == nil && len(rateCfg) > 0 {
		if v, ok := rateCfg["cps"]; ok && v != "" {
			fmt.Sscanf(v, "%f", &snap.ConnectsPerSecond)
		}
		if v, ok := rateCfg["burst"]; ok && v != "" {
			fmt.Sscanf(v, "%d", &snap.Burst)
		}
	}

	return snap, nil
}
