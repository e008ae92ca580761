package rates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/profit"
)

const (
	cacheKey = "gss:trm:current"
	cacheTTL = 5 * time.Minute
)

// Cache keeps the current rate set in redis so calculation-heavy endpoints
// do not hit storage on every run. All methods degrade to a miss on error;
// storage stays the source of truth.
type Cache struct {
	client *redis.Client
}

// NewCache wraps a redis client. A nil client disables caching.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns the cached rate set, or false on a miss.
func (c *Cache) Get(ctx context.Context) (profit.Rates, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var raw map[string]float64
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, false
	}
	rates := make(profit.Rates, len(raw))
	for country, value := range raw {
		rates[accounts.Country(country)] = value
	}
	return rates, true
}

// Set stores the rate set with the cache TTL.
func (c *Cache) Set(ctx context.Context, rates profit.Rates) {
	if c == nil || c.client == nil {
		return
	}
	raw := make(map[string]float64, len(rates))
	for country, value := range rates {
		raw[string(country)] = value
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey, payload, cacheTTL)
}

// Invalidate drops the cached rate set after an update.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, cacheKey)
}
