package availability

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a short-TTL read-through cache for blocked-range lookups on the
// listing display path. The booking-creation conflict check never reads it;
// correctness there comes from the transactional SQL check, so a stale cache
// can only make a calendar render slightly behind.
//
// A nil *Cache is valid and disables caching.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(listingID string) string {
	return "gearshare:blocked:" + listingID
}

func (c *Cache) Get(ctx context.Context, listingID string) ([]Range, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, cacheKey(listingID)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []Range
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *Cache) Set(ctx context.Context, listingID string, ranges []Range) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(ranges)
	if err != nil {
		return
	}
	// Cache failures are not worth surfacing; the SQL path still answers.
	_ = c.rdb.Set(ctx, cacheKey(listingID), raw, c.ttl).Err()
}
