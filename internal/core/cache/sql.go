package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agenthands/leadblitz/internal/store"
)

// SQLCache keeps scores in the score_cache table. Entries older than the
// TTL are treated as misses.
type SQLCache struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewSQLCache(s *store.Store, ttl time.Duration) *SQLCache {
	return &SQLCache{store: s, ttl: ttl, now: time.Now}
}

func (c *SQLCache) Get(ctx context.Context, rawURL string, value interface{}) error {
	payload, createdAt, err := c.store.GetCachedScore(ctx, Key(rawURL))
	if store.IsNotFound(err) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	if c.now().Sub(createdAt) >= c.ttl {
		return ErrMiss
	}
	return json.Unmarshal([]byte(payload), value)
}

func (c *SQLCache) Set(ctx context.Context, rawURL string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.PutCachedScore(ctx, Key(rawURL), NormalizeURL(rawURL), string(data))
}

// Purge drops expired entries.
func (c *SQLCache) Purge(ctx context.Context) (int64, error) {
	return c.store.PurgeCachedScores(ctx, c.now().Add(-c.ttl))
}
