package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"loanpilot/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	predictionKeyPrefix = "prediction:" // Cached sanction amounts by profile hash
	modelInfoKey        = "model:info"  // Currently loaded model description
)

// PredictionCache caches sanction amounts in Redis, keyed by a hash of
// the applicant profile, so repeat profiles skip the forest entirely.
type PredictionCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewPredictionCache creates a prediction cache with the given entry TTL
func NewPredictionCache(redisClient *RedisClient, ttl time.Duration) *PredictionCache {
	return &PredictionCache{
		redis: redisClient.GetClient(),
		ttl:   ttl,
	}
}

// ProfileHash returns the cache key hash for a profile. Struct fields
// marshal in declaration order, so equal profiles hash equally.
func ProfileHash(p *model.ApplicantProfile) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to hash profile: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

type cacheEntry struct {
	SanctionAmount float64   `json:"sanction_amount"`
	CachedAt       time.Time `json:"cached_at"`
}

// Put stores a sanction amount for a profile hash
func (c *PredictionCache) Put(ctx context.Context, profileHash string, amount float64) error {
	entry := cacheEntry{SanctionAmount: amount, CachedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	key := predictionKeyPrefix + profileHash
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache prediction: %w", err)
	}
	return nil
}

// Get retrieves a cached sanction amount. The second return reports a hit.
func (c *PredictionCache) Get(ctx context.Context, profileHash string) (float64, bool, error) {
	key := predictionKeyPrefix + profileHash
	data, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cached prediction: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return entry.SanctionAmount, true, nil
}

// Invalidate removes all cached predictions. Called after retraining.
func (c *PredictionCache) Invalidate(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, predictionKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan prediction keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate predictions: %w", err)
	}
	return nil
}

// PutModelInfo publishes the loaded model description for other replicas
func (c *PredictionCache) PutModelInfo(ctx context.Context, info *model.ModelInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal model info: %w", err)
	}
	return c.redis.Set(ctx, modelInfoKey, data, 0).Err()
}

// GetModelInfo retrieves the published model description. Returns nil
// when no model has been published.
func (c *PredictionCache) GetModelInfo(ctx context.Context) (*model.ModelInfo, error) {
	data, err := c.redis.Get(ctx, modelInfoKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model info: %w", err)
	}
	var info model.ModelInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model info: %w", err)
	}
	return &info, nil
}
