package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRegistry announces running servers and the tools they expose in Redis
// (implements Registry). Keys:
//
//	<ns>:services:<id>  JSON ServiceInfo, expires after ttl
//	<ns>:names:<name>   set of server IDs, expires after 2*ttl
//	<ns>:tools:<tool>   set of server IDs, expires after 2*ttl
//
// Only server metadata is stored; tool results never touch Redis.
type RedisRegistry struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    Logger
}

// NewRedisRegistry connects to redisURL and verifies the connection.
func NewRedisRegistry(ctx context.Context, redisURL string, cfg DiscoveryConfig) (*RedisRegistry, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	opt.PoolSize = 4
	opt.MinIdleConns = 1
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 5 * time.Second
	opt.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %v: %w", err, ErrConnectionFailed)
	}

	return NewRedisRegistryWithClient(client, cfg), nil
}

// NewRedisRegistryWithClient wraps an existing client.
func NewRedisRegistryWithClient(client *redis.Client, cfg DiscoveryConfig) *RedisRegistry {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "nordic"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisRegistry{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    &NoOpLogger{},
	}
}

// SetLogger sets the logger for registry operations
func (r *RedisRegistry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Close releases the Redis connection pool
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

func (r *RedisRegistry) serviceKey(id string) string {
	return fmt.Sprintf("%s:services:%s", r.namespace, id)
}

func (r *RedisRegistry) nameKey(name string) string {
	return fmt.Sprintf("%s:names:%s", r.namespace, name)
}

func (r *RedisRegistry) toolKey(tool string) string {
	return fmt.Sprintf("%s:tools:%s", r.namespace, tool)
}

// Register stores info and adds it to the name and tool indexes atomically.
func (r *RedisRegistry) Register(ctx context.Context, info *ServiceInfo) error {
	if info.LastSeen.IsZero() {
		info.LastSeen = time.Now()
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal service info for %s: %w", info.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.serviceKey(info.ID), data, r.ttl)
	for _, tool := range info.Tools {
		key := r.toolKey(tool)
		pipe.SAdd(ctx, key, info.ID)
		pipe.Expire(ctx, key, r.ttl*2)
	}
	nameKey := r.nameKey(info.Name)
	pipe.SAdd(ctx, nameKey, info.ID)
	pipe.Expire(ctx, nameKey, r.ttl*2)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to register service", map[string]interface{}{
			"error":      err,
			"service_id": info.ID,
		})
		return fmt.Errorf("failed to register service atomically: %w", err)
	}

	r.logger.Info("Service registered", map[string]interface{}{
		"service_id": info.ID,
		"modules":    len(info.Modules),
		"tools":      len(info.Tools),
		"ttl":        r.ttl.String(),
	})
	return nil
}

// UpdateHealth refreshes the entry's health, LastSeen and TTLs.
// Returns ErrServiceNotFound when the entry has already expired.
func (r *RedisRegistry) UpdateHealth(ctx context.Context, serviceID string, status HealthStatus) error {
	key := r.serviceKey(serviceID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("service %s: %w", serviceID, ErrServiceNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get service %s: %w", serviceID, err)
	}

	var info ServiceInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return fmt.Errorf("failed to unmarshal service data for %s: %w", serviceID, err)
	}
	info.Health = status
	info.LastSeen = time.Now()

	updated, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal health data for %s: %w", serviceID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, updated, r.ttl)
	// Index sets outlive the entry by one TTL; keep them alive with it
	for _, tool := range info.Tools {
		pipe.Expire(ctx, r.toolKey(tool), r.ttl*2)
	}
	pipe.Expire(ctx, r.nameKey(info.Name), r.ttl*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update health for %s: %w", serviceID, err)
	}

	r.logger.Debug("Service health updated", map[string]interface{}{
		"service_id": serviceID,
		"status":     status,
	})
	return nil
}

// Unregister removes the entry and its index memberships.
func (r *RedisRegistry) Unregister(ctx context.Context, serviceID string) error {
	key := r.serviceKey(serviceID)

	data, err := r.client.Get(ctx, key).Result()
	if err == nil {
		var info ServiceInfo
		if jsonErr := json.Unmarshal([]byte(data), &info); jsonErr == nil {
			pipe := r.client.TxPipeline()
			for _, tool := range info.Tools {
				pipe.SRem(ctx, r.toolKey(tool), serviceID)
			}
			pipe.SRem(ctx, r.nameKey(info.Name), serviceID)
			if _, err := pipe.Exec(ctx); err != nil {
				r.logger.Warn("Failed to remove service from indexes", map[string]interface{}{
					"error":      err,
					"service_id": serviceID,
				})
			}
		}
	} else if err != redis.Nil {
		r.logger.Warn("Failed to read service before unregistering", map[string]interface{}{
			"error":      err,
			"service_id": serviceID,
		})
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to unregister service %s: %w", serviceID, err)
	}

	r.logger.Info("Service unregistered", map[string]interface{}{
		"service_id": serviceID,
	})
	return nil
}

// FindByTool returns the live servers exposing tool. Index members whose
// entry has expired are skipped.
func (r *RedisRegistry) FindByTool(ctx context.Context, tool string) ([]*ServiceInfo, error) {
	ids, err := r.client.SMembers(ctx, r.toolKey(tool)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read tool index %s: %w", tool, err)
	}

	services := make([]*ServiceInfo, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.serviceKey(id)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get service %s: %w", id, err)
		}
		var info ServiceInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}
		services = append(services, &info)
	}
	return services, nil
}
