package credential

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

// TokenCache holds installation tokens keyed by installation id. Concurrent
// misses for the same installation share a single mint.
type TokenCache struct {
	clock  clock.PassiveClock
	margin time.Duration

	mu      sync.Mutex
	entries map[int64]accessToken

	group singleflight.Group
}

// NewTokenCache creates a cache that treats tokens as stale margin before expiry.
func NewTokenCache(clk clock.PassiveClock, margin time.Duration) *TokenCache {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &TokenCache{
		clock:   clk,
		margin:  margin,
		entries: make(map[int64]accessToken),
	}
}

type mintFunc func(ctx context.Context) (accessToken, error)

// get returns a fresh token for id, calling mint at most once across
// concurrent callers when the cached one is missing or inside the margin.
func (c *TokenCache) get(ctx context.Context, id int64, mint mintFunc) (accessToken, error) {
	if tok, ok := c.lookup(id); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		if tok, ok := c.lookup(id); ok {
			return tok, nil
		}
		// The mint is shared; one caller going away must not fail the others.
		tok, err := mint(context.WithoutCancel(ctx))
		if err != nil {
			return accessToken{}, err
		}
		c.store(id, tok)
		return tok, nil
	})
	if err != nil {
		return accessToken{}, err
	}
	return v.(accessToken), nil
}

// Invalidate drops the cached token for id.
func (c *TokenCache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *TokenCache) lookup(id int64) (accessToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tok, ok := c.entries[id]
	if !ok || !c.fresh(tok) {
		return accessToken{}, false
	}
	return tok, true
}

func (c *TokenCache) store(id int64, tok accessToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = tok
}

func (c *TokenCache) fresh(tok accessToken) bool {
	return tok.token != "" && c.clock.Now().Before(tok.expiresAt.Add(-c.margin))
}
