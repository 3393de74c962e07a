package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFallback(t *testing.T) (*Fallback, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	durable := NewRedis(client, zap.NewNop(), "catalog")

	return NewFallback(durable, NewMemory(32), zap.NewNop()), mr
}

func TestFallback_HealthyUsesDurableStore(t *testing.T) {
	f, mr := setupFallback(t)
	ctx := context.Background()

	require.NoError(t, f.Set(ctx, "k", []byte("v"), time.Minute))
	assert.False(t, f.Degraded())
	assert.True(t, mr.Exists("catalog:k"), "writes land in the durable store")

	data, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestFallback_DegradesToMemoryOnStoreFailure(t *testing.T) {
	f, mr := setupFallback(t)
	ctx := context.Background()

	mr.Close()

	// First failing write flips to memory-only without surfacing an error
	require.NoError(t, f.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, f.Degraded())

	data, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data, "entry must be readable from the memory store")
}

func TestFallback_DegradedGetNeverErrors(t *testing.T) {
	f, mr := setupFallback(t)
	ctx := context.Background()

	mr.Close()

	data, err := f.Get(ctx, "anything")
	require.NoError(t, err, "cache trouble must read as a miss")
	assert.Nil(t, data)
	assert.True(t, f.Degraded())
}

func TestFallback_NilDurableStartsDegraded(t *testing.T) {
	f := NewFallback(nil, NewMemory(32), zap.NewNop())
	ctx := context.Background()

	assert.True(t, f.Degraded())
	require.NoError(t, f.Set(ctx, "k", []byte("v"), time.Minute))

	data, err := f.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestFallback_DeleteReachesBothStores(t *testing.T) {
	f, mr := setupFallback(t)
	ctx := context.Background()

	require.NoError(t, f.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, f.Delete(ctx, "k"))

	assert.False(t, mr.Exists("catalog:k"))
	data, _ := f.Get(ctx, "k")
	assert.Nil(t, data)
}
