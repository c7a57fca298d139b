package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fleet-manager/internal/models"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisCacheManager implements CacheManager using Redis. Every entry is
// indexed under its tags so writers can drop related entries together.
type RedisCacheManager struct {
	client redis.Cmdable
	config CacheConfig
	stats  *cacheStats
}

type cacheStats struct {
	mu            sync.RWMutex
	totalHits     int64
	totalMisses   int64
	evictionCount int64
}

func NewRedisCacheManager(client redis.Cmdable, config CacheConfig) *RedisCacheManager {
	return &RedisCacheManager{
		client: client,
		config: config,
		stats:  &cacheStats{},
	}
}

func (r *RedisCacheManager) GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	found, err := r.getJSON(ctx, r.buildKey("vehicle", vehicleID), &vehicle)
	if err != nil || !found {
		return nil, err
	}
	return &vehicle, nil
}

func (r *RedisCacheManager) SetVehicle(ctx context.Context, vehicle *models.Vehicle, ttl time.Duration) error {
	id := vehicle.ID.Hex()
	key := r.buildKey("vehicle", id)

	tags := []string{
		TagAllVehicles,
		"vehicle:" + id,
		"status:" + string(vehicle.InspectionStatus),
	}
	if vehicle.UserID != nil {
		tags = append(tags, "user:"+vehicle.UserID.Hex())
	}

	return r.setJSON(ctx, key, vehicle, ttl, tags...)
}

func (r *RedisCacheManager) InvalidateVehicle(ctx context.Context, vehicleID string) error {
	return r.InvalidateByTag(ctx, "vehicle:"+vehicleID)
}

func (r *RedisCacheManager) GetVehicleList(ctx context.Context, key string) ([]*models.Vehicle, error) {
	var vehicles []*models.Vehicle
	found, err := r.getJSON(ctx, r.buildKey("vehicle_list", key), &vehicles)
	if err != nil || !found {
		return nil, err
	}
	return vehicles, nil
}

// SetVehicleList caches a list. Lists are tagged with every member so that
// invalidating one vehicle drops the lists containing it.
func (r *RedisCacheManager) SetVehicleList(ctx context.Context, key string, vehicles []*models.Vehicle, ttl time.Duration) error {
	tags := []string{TagAllVehicles, TagVehicleLists}
	for _, vehicle := range vehicles {
		tags = append(tags, "vehicle:"+vehicle.ID.Hex())
	}
	return r.setJSON(ctx, r.buildKey("vehicle_list", key), vehicles, ttl, tags...)
}

func (r *RedisCacheManager) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return r.getJSON(ctx, r.buildKey("generic", key), dest)
}

func (r *RedisCacheManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	return r.setJSON(ctx, r.buildKey("generic", key), value, ttl, tags...)
}

// TagKey associates tags with a cache key. Tag sets outlive every entry they
// index, otherwise an invalidation could miss a live key.
func (r *RedisCacheManager) TagKey(ctx context.Context, key string, ttl time.Duration, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	for _, d := range []time.Duration{r.config.VehicleDataTTL, r.config.VehicleListTTL, r.config.ReportTTL} {
		if d > ttl {
			ttl = d
		}
	}

	pipe := r.client.Pipeline()

	keyTagsKey := r.buildTagKey("key_tags", key)
	pipe.SAdd(ctx, keyTagsKey, toMembers(tags)...)
	pipe.Expire(ctx, keyTagsKey, ttl*2)

	for _, tag := range tags {
		tagKeysKey := r.buildTagKey("tag_keys", tag)
		pipe.SAdd(ctx, tagKeysKey, key)
		pipe.Expire(ctx, tagKeysKey, ttl*2)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// InvalidateByTag removes all keys associated with a tag
func (r *RedisCacheManager) InvalidateByTag(ctx context.Context, tag string) error {
	tagKeysKey := r.buildTagKey("tag_keys", tag)

	keys, err := r.client.SMembers(ctx, tagKeysKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys for tag %s: %w", tag, err)
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
		pipe.Del(ctx, r.buildTagKey("key_tags", key))
	}
	pipe.Del(ctx, tagKeysKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate keys for tag %s: %w", tag, err)
	}

	r.stats.mu.Lock()
	r.stats.evictionCount += int64(len(keys))
	r.stats.mu.Unlock()

	return nil
}

func (r *RedisCacheManager) GetCacheStats(ctx context.Context) CacheStats {
	r.stats.mu.RLock()
	totalHits := r.stats.totalHits
	totalMisses := r.stats.totalMisses
	evictionCount := r.stats.evictionCount
	r.stats.mu.RUnlock()

	total := totalHits + totalMisses
	var hitRate, missRate float64
	if total > 0 {
		hitRate = float64(totalHits) / float64(total)
		missRate = float64(totalMisses) / float64(total)
	}

	keyCount := 0
	iter := r.client.Scan(ctx, 0, r.config.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keyCount++
	}

	return CacheStats{
		HitRate:       hitRate,
		MissRate:      missRate,
		KeyCount:      keyCount,
		EvictionCount: evictionCount,
		TotalHits:     totalHits,
		TotalMisses:   totalMisses,
	}
}

func (r *RedisCacheManager) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCacheManager) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.recordMiss()
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	r.recordHit()
	return true, nil
}

func (r *RedisCacheManager) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to cache: %w", key, err)
	}

	if err := r.TagKey(ctx, key, ttl, tags...); err != nil {
		log.WithError(err).WithField("key", key).Warn("Failed to tag cache key")
	}
	return nil
}

func (r *RedisCacheManager) buildKey(keyType, identifier string) string {
	return fmt.Sprintf("%s%s:%s", r.config.KeyPrefix, keyType, identifier)
}

func (r *RedisCacheManager) buildTagKey(keyType, identifier string) string {
	return fmt.Sprintf("%s%s:%s", r.config.TagPrefix, keyType, identifier)
}

func (r *RedisCacheManager) recordHit() {
	r.stats.mu.Lock()
	r.stats.totalHits++
	r.stats.mu.Unlock()
}

func (r *RedisCacheManager) recordMiss() {
	r.stats.mu.Lock()
	r.stats.totalMisses++
	r.stats.mu.Unlock()
}

func toMembers(tags []string) []interface{} {
	members := make([]interface{}, len(tags))
	for i, tag := range tags {
		members[i] = tag
	}
	return members
}
