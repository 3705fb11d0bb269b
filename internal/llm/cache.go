package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CachedOracle memoizes successful completions for a fixed TTL. Failures
// are never cached.
type CachedOracle struct {
	next  Oracle
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedOracle wraps next with a cache bounded by maxCost bytes of reply
// text.
func NewCachedOracle(next Oracle, ttl time.Duration, maxCost int64) (*CachedOracle, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: max(1000, maxCost/100),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create oracle cache: %w", err)
	}
	return &CachedOracle{next: next, cache: cache, ttl: ttl}, nil
}

// Complete returns the cached reply for an identical request or forwards it.
func (c *CachedOracle) Complete(ctx context.Context, system, user, model string) (string, error) {
	key := cacheKey(system, user, model)
	if v, ok := c.cache.Get(key); ok {
		if text, ok := v.(string); ok {
			return text, nil
		}
	}
	text, err := c.next.Complete(ctx, system, user, model)
	if err != nil {
		return "", err
	}
	c.cache.SetWithTTL(key, text, int64(len(text)), c.ttl)
	c.cache.Wait()
	return text, nil
}

// Close releases the cache.
func (c *CachedOracle) Close() {
	c.cache.Close()
}

func cacheKey(system, user, model string) string {
	h := sha256.New()
	for _, part := range []string{model, system, user} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
