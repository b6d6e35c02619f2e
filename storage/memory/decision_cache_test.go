package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-rails/authzkit/core"
)

func TestPutAndGet(t *testing.T) {
	c := NewDecisionCache()
	defer c.Close()
	ctx := context.Background()

	d := core.Allow("some_user", map[string]any{"sub": "some_user"})
	require.NoError(t, c.Put(ctx, "token-1", d, time.Minute))

	got, ok, err := c.Get(ctx, "token-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "some_user", got.Principal)
	assert.Equal(t, "*", got.Resource)
}

func TestMissingTokenIsAMiss(t *testing.T) {
	c := NewDecisionCache()
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "never-stored")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDenyDecisionsAreNotStored(t *testing.T) {
	c := NewDecisionCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "token-1", core.Deny(core.ReasonTokenExpired), time.Minute))
	_, ok, err := c.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonPositiveTTLIsIgnored(t *testing.T) {
	c := NewDecisionCache()
	defer c.Close()
	ctx := context.Background()

	d := core.Allow("some_user", nil)
	require.NoError(t, c.Put(ctx, "token-1", d, 0))
	_, ok, err := c.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiredEntriesAreEvictedOnRead(t *testing.T) {
	c := NewDecisionCache()
	defer c.Close()
	ctx := context.Background()

	d := core.Allow("some_user", nil)
	require.NoError(t, c.Put(ctx, "token-1", d, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := c.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokensAreIndependent(t *testing.T) {
	c := NewDecisionCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "token-1", core.Allow("alice", nil), time.Minute))
	require.NoError(t, c.Put(ctx, "token-2", core.Allow("bob", nil), time.Minute))

	got, ok, err := c.Get(ctx, "token-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob", got.Principal)
}
