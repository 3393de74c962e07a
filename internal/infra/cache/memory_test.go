package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory(10)
	ctx := context.Background()

	data, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, data, "absent key is a miss, not an error")

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	data, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

// An entry written at t with ttl T must be served just before t+T and gone
// just after.
func TestMemory_ExpiryBoundary(t *testing.T) {
	c := NewMemory(10)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }

	ttl := 10 * time.Second
	require.NoError(t, c.Set(ctx, "k", []byte("v"), ttl))

	c.now = func() time.Time { return base.Add(ttl - time.Second) }
	data, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, data, "entry still valid one second before expiry")

	c.now = func() time.Time { return base.Add(ttl + time.Second) }
	data, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data, "entry gone one second after expiry")
}

func TestMemory_EvictsOldestInsertionFirst(t *testing.T) {
	c := NewMemory(3)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, key, []byte(key), time.Minute))
	}
	require.NoError(t, c.Set(ctx, "d", []byte("d"), time.Minute))

	data, _ := c.Get(ctx, "a")
	assert.Nil(t, data, "oldest insertion evicted")
	for _, key := range []string{"b", "c", "d"} {
		data, _ := c.Get(ctx, key)
		assert.NotNil(t, data, "key %q must survive", key)
	}
	assert.Equal(t, 3, c.Len())
}

func TestMemory_ResetCountsAsNewInsertion(t *testing.T) {
	c := NewMemory(3)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, key, []byte(key), time.Minute))
	}

	// Rewriting "a" makes it the newest insertion; "b" becomes the oldest
	require.NoError(t, c.Set(ctx, "a", []byte("a2"), time.Minute))
	require.NoError(t, c.Set(ctx, "d", []byte("d"), time.Minute))

	data, _ := c.Get(ctx, "b")
	assert.Nil(t, data, "b was oldest after a's rewrite")
	data, _ = c.Get(ctx, "a")
	assert.Equal(t, []byte("a2"), data)
}

func TestMemory_DeletePrefix(t *testing.T) {
	c := NewMemory(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "components:src-a:1", []byte("x"), time.Minute))
	require.NoError(t, c.Set(ctx, "components:src-a:2", []byte("y"), time.Minute))
	require.NoError(t, c.Set(ctx, "components:src-b:", []byte("z"), time.Minute))
	require.NoError(t, c.Set(ctx, "categories:src-a", []byte("w"), time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "components:src-a:"))

	for _, gone := range []string{"components:src-a:1", "components:src-a:2"} {
		data, _ := c.Get(ctx, gone)
		assert.Nil(t, data, "key %q must be invalidated", gone)
	}
	for _, kept := range []string{"components:src-b:", "categories:src-a"} {
		data, _ := c.Get(ctx, kept)
		assert.NotNil(t, data, "key %q must survive", kept)
	}
}

func TestMemory_Clear(t *testing.T) {
	c := NewMemory(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Clear(ctx))

	assert.Equal(t, 0, c.Len())
}
