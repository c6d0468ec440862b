package trxmgr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/secledger/secledger/internal/ledger"
)

const cacheVersionKey = "trxmgr:find:version"

// FinderCache wraps Redis-based caching of finder results with a
// version counter: bumping the version on any store mutation
// invalidates every cached result at once.
type FinderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFinderCache instantiates the cache helper. A nil client degrades
// to pass-through behavior.
func NewFinderCache(client *redis.Client, ttl time.Duration) *FinderCache {
	return &FinderCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising it when
// missing.
func (c *FinderCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates all cached finder results.
func (c *FinderCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// buildKey composes the cache key from the filter fingerprint and the
// current version.
func (c *FinderCache) buildKey(ctx context.Context, fingerprint string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("trxmgr:find:%s:%d", fingerprint, ver), nil
}

// fetchJSON loads a cached value or populates it using the loader.
func (c *FinderCache) fetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if c == nil || c.client == nil {
		val, err := loader(ctx)
		if err != nil {
			return err
		}
		return remarshal(val, dest)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(raw, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	val, err := loader(ctx)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(encoded, dest)
}

func remarshal(src, dest any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// CachedFinder is a read-through caching layer over Finder.
type CachedFinder struct {
	finder *Finder
	cache  *FinderCache
	logger *slog.Logger
}

// NewCachedFinder wires a finder to its cache.
func NewCachedFinder(finder *Finder, cache *FinderCache, logger *slog.Logger) *CachedFinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFinder{finder: finder, cache: cache, logger: logger}
}

// FindTransactions returns cached results when the same filter was
// evaluated since the last version bump, else runs the finder and
// stores the outcome.
func (cf *CachedFinder) FindTransactions(ctx context.Context, flt *TransactionFilter, withSplits bool, logic SplitLogic) ([]*ledger.Transaction, error) {
	if flt == nil {
		return nil, ErrNilFilter
	}

	fingerprint, err := filterFingerprint(flt, withSplits, logic)
	if err != nil {
		return nil, err
	}
	key, err := cf.cache.buildKey(ctx, fingerprint)
	if err != nil {
		return nil, err
	}

	var result []*ledger.Transaction
	err = cf.cache.fetchJSON(ctx, key, &result, func(ctx context.Context) (any, error) {
		return cf.finder.FindTransactions(ctx, flt, withSplits, logic)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Invalidate drops all cached results. Call after any store mutation.
func (cf *CachedFinder) Invalidate(ctx context.Context) {
	if err := cf.cache.Bump(ctx); err != nil {
		cf.logger.Warn("finder cache bump failed", slog.Any("error", err))
	}
}

func filterFingerprint(flt *TransactionFilter, withSplits bool, logic SplitLogic) (string, error) {
	payload := struct {
		Filter     *TransactionFilter
		WithSplits bool
		Logic      SplitLogic
	}{flt, withSplits, logic}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
