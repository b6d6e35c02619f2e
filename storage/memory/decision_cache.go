package memorystore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/open-rails/authzkit/core"
)

// DecisionCache is an in-memory authorizer.DecisionCache. Entries are keyed
// by the SHA-256 of the raw token, so the token itself is never retained.
type DecisionCache struct {
	mu     sync.Mutex
	data   map[string]item
	closed chan struct{}
}

type item struct {
	d   core.Decision
	exp time.Time
}

// NewDecisionCache creates a new in-memory decision cache.
// Starts a background goroutine to clean up expired entries every minute.
func NewDecisionCache() *DecisionCache {
	c := &DecisionCache{data: make(map[string]item), closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (c *DecisionCache) Get(ctx context.Context, token string) (core.Decision, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.data[tokenKey(token)]
	if !ok {
		return core.Decision{}, false, nil
	}
	if time.Now().After(it.exp) {
		delete(c.data, tokenKey(token))
		return core.Decision{}, false, nil
	}
	return it.d, true, nil
}

// Put stores an Allow decision for the token. Deny decisions and
// non-positive TTLs are ignored.
func (c *DecisionCache) Put(ctx context.Context, token string, d core.Decision, ttl time.Duration) error {
	_ = ctx
	if !d.Allowed() || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[tokenKey(token)] = item{d: d, exp: time.Now().Add(ttl)}
	return nil
}

// cleanupLoop runs in the background and removes expired entries every minute.
func (c *DecisionCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.closed:
			return
		}
	}
}

func (c *DecisionCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, v := range c.data {
		if now.After(v.exp) {
			delete(c.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
func (c *DecisionCache) Close() error {
	close(c.closed)
	return nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
