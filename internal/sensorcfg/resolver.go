// Package sensorcfg resolves sensor identifiers to their threshold
// configuration through a read-through cache in front of the durable store.
package sensorcfg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sensorhub/internal/models"
)

// ErrNotFound signals that no configuration exists for a sensor id.
var ErrNotFound = errors.New("sensorcfg: config not found")

// Cache is the key-value layer. A miss is reported via ok=false, not an
// error; errors mean the cache itself misbehaved.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Store is the durable source of truth for sensor configuration.
type Store interface {
	GetSensor(ctx context.Context, sensorID string) (*models.SensorConfig, error)
	UpsertSensor(ctx context.Context, cfg *models.SensorConfig) (*models.SensorConfig, error)
}

// Resolver is the read-through/write-through cache front. Cached entries
// carry no TTL: config changes are rare and every write overwrites the key,
// so staleness can only arise from out-of-band writes to the durable store.
type Resolver struct {
	cache  Cache
	store  Store
	logger *zap.Logger
}

// NewResolver builds a resolver over the given cache and durable store.
func NewResolver(cache Cache, store Store, logger *zap.Logger) *Resolver {
	return &Resolver{cache: cache, store: store, logger: logger}
}

// CacheKey returns the cache key for a sensor's configuration.
func CacheKey(sensorID string) string {
	return fmt.Sprintf("sensor:%s:config", sensorID)
}

// Resolve returns the configuration for sensorID, consulting the cache
// first and falling back to the durable store on a miss. Cache failures
// degrade to a store read; store failures propagate so callers can fall
// back to unknown classification instead of inventing thresholds.
func (r *Resolver) Resolve(ctx context.Context, sensorID string) (*models.SensorConfig, error) {
	key := CacheKey(sensorID)

	cached, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("config cache read failed, falling back to store",
			zap.String("sensor_id", sensorID), zap.Error(err))
	} else if ok {
		var cfg models.SensorConfig
		if err := json.Unmarshal([]byte(cached), &cfg); err == nil {
			return &cfg, nil
		}
		r.logger.Warn("corrupt cached config, falling back to store",
			zap.String("sensor_id", sensorID))
	}

	cfg, err := r.store.GetSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cfg); err == nil {
		if err := r.cache.Set(ctx, key, string(data)); err != nil {
			r.logger.Warn("failed to populate config cache",
				zap.String("sensor_id", sensorID), zap.Error(err))
		}
	}
	return cfg, nil
}

// Upsert writes the configuration to the durable store first and then
// overwrites the cache key. The cache is never the source of truth; a
// reader racing between the two writes may briefly observe the previous
// version.
func (r *Resolver) Upsert(ctx context.Context, cfg *models.SensorConfig) (*models.SensorConfig, error) {
	stored, err := r.store.UpsertSensor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("sensorcfg: encode config: %w", err)
	}
	if err := r.cache.Set(ctx, CacheKey(stored.SensorID), string(data)); err != nil {
		r.logger.Warn("failed to overwrite config cache after upsert",
			zap.String("sensor_id", stored.SensorID), zap.Error(err))
	}
	return stored, nil
}
