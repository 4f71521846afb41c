// Package cache holds the Redis-backed stores: generated advisories and
// per-user preferences.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/ecobalance/internal/advisory"
	"github.com/neexbeast/ecobalance/internal/destination"
)

const defaultAdvisoryTTL = time.Hour

// AdvisoryCache stores generated advisories keyed by the destination state
// they were generated for, so a status or stress change misses the cache.
type AdvisoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAdvisoryCache constructs an AdvisoryCache with a 1-hour TTL.
func NewAdvisoryCache(client *redis.Client) *AdvisoryCache {
	return &AdvisoryCache{client: client, ttl: defaultAdvisoryTTL}
}

// advisoryKey returns the Redis key for d's current risk picture.
func advisoryKey(d destination.Destination) string {
	status := strings.ReplaceAll(strings.ToLower(string(d.Status)), " ", "-")
	return fmt.Sprintf("advisory:%s:%s:%d", strings.ToLower(d.ID), status, int64(math.Round(d.Metrics.EcoStress)))
}

// Get retrieves the advisory for d.
// Returns nil, nil on a cache miss (not an error).
func (c *AdvisoryCache) Get(ctx context.Context, d destination.Destination) (*advisory.Advisory, error) {
	val, err := c.client.Get(ctx, advisoryKey(d)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get advisory for %s: %w", d.ID, err)
	}

	var a advisory.Advisory
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, fmt.Errorf("unmarshaling cached advisory for %s: %w", d.ID, err)
	}

	return &a, nil
}

// Set stores a for d with the configured TTL. Fallback advisories are not cached.
func (c *AdvisoryCache) Set(ctx context.Context, d destination.Destination, a *advisory.Advisory) error {
	if a == nil || a.Fallback {
		return nil
	}

	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling advisory for %s: %w", d.ID, err)
	}

	if err := c.client.Set(ctx, advisoryKey(d), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set advisory for %s: %w", d.ID, err)
	}

	return nil
}
