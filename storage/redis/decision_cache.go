package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-rails/authzkit/core"
)

// DecisionCache is a redis-backed authorizer.DecisionCache for deployments
// that share validated decisions across processes. Entries are keyed by the
// SHA-256 of the raw token.
type DecisionCache struct {
	rdb   *redis.Client
	keyNS string
}

func NewDecisionCache(rdb *redis.Client, keyPrefix string) *DecisionCache {
	if keyPrefix == "" {
		keyPrefix = "authz:decision:"
	}
	return &DecisionCache{rdb: rdb, keyNS: keyPrefix}
}

func (c *DecisionCache) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return c.keyNS + hex.EncodeToString(sum[:])
}

func (c *DecisionCache) Get(ctx context.Context, token string) (core.Decision, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(token)).Bytes()
	if err == redis.Nil {
		return core.Decision{}, false, nil
	}
	if err != nil {
		return core.Decision{}, false, err
	}
	var d core.Decision
	if err := json.Unmarshal(val, &d); err != nil {
		return core.Decision{}, false, err
	}
	return d, true, nil
}

// Put stores an Allow decision for the token. Deny decisions and
// non-positive TTLs are ignored.
func (c *DecisionCache) Put(ctx context.Context, token string, d core.Decision, ttl time.Duration) error {
	if !d.Allowed() || ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(token), b, ttl).Err()
}
