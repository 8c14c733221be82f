package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/healthpulse/healthpulse-go/internal/models"
)

// TrendModel is the persisted artifact of a fitted trend line. On a cache
// hit, projections are recomputed from these coefficients at the current
// day offsets.
type TrendModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// TrendCacheEntry is one metric's cached trend result plus its training
// timestamp, used for the retrain-TTL check.
type TrendCacheEntry struct {
	Direction   models.TrendDirection `json:"direction"`
	SlopePerDay float64               `json:"slope_per_day"`
	Message     string                `json:"message"`
	Model       *TrendModel           `json:"model,omitempty"`
	TrainedAt   time.Time             `json:"trained_at"`
}

// AlertCacheEntry is the shared cross-metric alert list with its training
// timestamp. One entry covers all metric pairs.
type AlertCacheEntry struct {
	Alerts    []models.CorrelationAlert `json:"alerts"`
	TrainedAt time.Time                 `json:"trained_at"`
}

// AnalysisCacheStats tracks cache performance counters.
type AnalysisCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// AnalysisCache stores trained trend results and correlation alerts in
// Redis. Individual key reads/writes are atomic; Clear deletes every key
// under the prefix in a single DEL so callers observe an all-or-nothing
// reset.
type AnalysisCache struct {
	redis  *redis.Client
	logger *logrus.Logger
	ttl    time.Duration
	stats  *AnalysisCacheStats
	prefix string
}

const alertsKey = "alerts"

// NewAnalysisCache creates a Redis-backed analysis cache with the given
// retrain TTL.
func NewAnalysisCache(redisClient *redis.Client, logger *logrus.Logger, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{
		redis:  redisClient,
		logger: logger,
		ttl:    ttl,
		stats:  &AnalysisCacheStats{},
		prefix: "health_analysis:",
	}
}

// TTL returns the retrain interval this cache enforces.
func (c *AnalysisCache) TTL() time.Duration {
	return c.ttl
}

// Fresh reports whether an entry trained at the given time is still inside
// the retrain window. An entry trained at T is stale from T+TTL onward.
func (c *AnalysisCache) Fresh(trainedAt time.Time, now time.Time) bool {
	return now.Sub(trainedAt) < c.ttl
}

// GetTrend retrieves the cached trend entry for a metric.
func (c *AnalysisCache) GetTrend(ctx context.Context, metric string) (*TrendCacheEntry, bool) {
	var entry TrendCacheEntry
	if !c.get(ctx, c.trendKey(metric), &entry) {
		return nil, false
	}
	return &entry, true
}

// SetTrend overwrites the cached trend entry for a metric.
func (c *AnalysisCache) SetTrend(ctx context.Context, metric string, entry TrendCacheEntry) {
	c.set(ctx, c.trendKey(metric), entry)
}

// GetAlerts retrieves the shared correlation alert entry.
func (c *AnalysisCache) GetAlerts(ctx context.Context) (*AlertCacheEntry, bool) {
	var entry AlertCacheEntry
	if !c.get(ctx, c.prefix+alertsKey, &entry) {
		return nil, false
	}
	return &entry, true
}

// SetAlerts overwrites the shared correlation alert entry.
func (c *AnalysisCache) SetAlerts(ctx context.Context, entry AlertCacheEntry) {
	c.set(ctx, c.prefix+alertsKey, entry)
}

// Clear removes every cached trend entry, the alert entry and any model
// artifacts under the cache prefix.
func (c *AnalysisCache) Clear(ctx context.Context) error {
	pattern := c.prefix + "*"

	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("keys", len(keys)).Info("Cleared analysis cache")
	return nil
}

// GetStats returns current cache statistics.
func (c *AnalysisCache) GetStats() AnalysisCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return AnalysisCacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

func (c *AnalysisCache) trendKey(metric string) string {
	return c.prefix + "trend:" + metric
}

func (c *AnalysisCache) get(ctx context.Context, key string, out interface{}) bool {
	data, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.miss()
		return false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis error reading cache entry")
		c.miss()
		return false
	}

	if err := json.Unmarshal([]byte(data), out); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Error deserializing cache entry")
		c.miss()
		return false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return true
}

func (c *AnalysisCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Error serializing cache entry")
		return
	}

	// Redis expiry backs up the trained-at staleness check
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis error writing cache entry")
		return
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

func (c *AnalysisCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
