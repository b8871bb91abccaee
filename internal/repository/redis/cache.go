package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/payhuk02/emarzona/internal/domain"
)

const (
	recommendationCachePrefix = "recs:"
	anonymousKey              = "_"
)

// RecommendationCache keeps computed recommendation lists for the duration
// configured in the recommendation settings.
type RecommendationCache struct {
	client *Client
}

// NewRecommendationCache creates a new recommendation cache
func NewRecommendationCache(client *Client) *RecommendationCache {
	return &RecommendationCache{client: client}
}

func recommendationKey(userID, productID string) string {
	if userID == "" {
		userID = anonymousKey
	}
	if productID == "" {
		productID = anonymousKey
	}
	return fmt.Sprintf("%s%s:%s", recommendationCachePrefix, userID, productID)
}

// Get returns the cached list and whether there was one
func (c *RecommendationCache) Get(ctx context.Context, userID, productID string) ([]domain.RecommendedProduct, bool, error) {
	data, err := c.client.rdb.Get(ctx, recommendationKey(userID, productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read recommendations: %w", err)
	}

	var items []domain.RecommendedProduct
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}
	return items, true, nil
}

// Set caches items for ttl. A non-positive ttl disables caching.
func (c *RecommendationCache) Set(ctx context.Context, userID, productID string, items []domain.RecommendedProduct, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if items == nil {
		items = []domain.RecommendedProduct{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	return c.client.rdb.Set(ctx, recommendationKey(userID, productID), data, ttl).Err()
}

// FlushAll removes every cached list. Called after the settings change.
func (c *RecommendationCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := recommendationCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
