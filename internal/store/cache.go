package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "intake:submission:latest:"

// DefaultCacheTTL bounds how long a cached latest document is served.
const DefaultCacheTTL = 10 * time.Minute

// CachedStore serves LatestSubmission from redis and drops the cached copy
// whenever the transaction's history changes. Cache failures fall back to
// the wrapped store.
type CachedStore struct {
	Store
	rdb redis.Cmdable
	ttl time.Duration
}

// NewCachedStore wraps st with a redis read-through cache.
func NewCachedStore(st Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{Store: st, rdb: rdb, ttl: ttl}
}

func cacheKey(txID string) string { return cacheKeyPrefix + txID }

func (c *CachedStore) LatestSubmission(ctx context.Context, txID string) (map[string]any, error) {
	key := cacheKey(txID)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		doc, derr := decodeDocument(raw)
		if derr == nil && doc != nil {
			return doc, nil
		}
		zap.L().Warn("store: dropping undecodable cache entry", zap.String("key", key), zap.Error(derr))
	case !errors.Is(err, redis.Nil):
		zap.L().Warn("store: cache get failed", zap.String("key", key), zap.Error(err))
	}

	doc, err := c.Store.LatestSubmission(ctx, txID)
	if err != nil || doc == nil {
		return doc, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return doc, nil
	}
	if err := c.rdb.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		zap.L().Warn("store: cache set failed", zap.String("key", key), zap.Error(err))
	}
	return doc, nil
}

func (c *CachedStore) PutSubmission(ctx context.Context, v SubmissionVersion) (int, error) {
	seq, err := c.Store.PutSubmission(ctx, v)
	if err != nil {
		return 0, err
	}
	return seq, c.invalidate(ctx, v.TransactionID)
}

func (c *CachedStore) PutSubmissions(ctx context.Context, vs []SubmissionVersion) (int64, error) {
	n, err := c.Store.PutSubmissions(ctx, vs)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(vs))
	var ids []string
	for _, v := range vs {
		if !seen[v.TransactionID] {
			seen[v.TransactionID] = true
			ids = append(ids, v.TransactionID)
		}
	}
	return n, c.invalidate(ctx, ids...)
}

func (c *CachedStore) DeleteSubmission(ctx context.Context, txID string) error {
	if err := c.Store.DeleteSubmission(ctx, txID); err != nil {
		return err
	}
	return c.invalidate(ctx, txID)
}

// invalidate deletes the cached documents of txIDs.
func (c *CachedStore) invalidate(ctx context.Context, txIDs ...string) error {
	if len(txIDs) == 0 {
		return nil
	}
	keys := make([]string, len(txIDs))
	for i, id := range txIDs {
		keys[i] = cacheKey(id)
	}
	return eris.Wrap(c.rdb.Del(ctx, keys...).Err(), "store: cache invalidate")
}
