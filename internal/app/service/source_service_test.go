package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
	"component-catalog-service/internal/infra/cache"
)

type dropRecorder struct {
	dropped []string
}

func (d *dropRecorder) Drop(sourceID string) { d.dropped = append(d.dropped, sourceID) }

func newSourceService(repo *fakeRepo) (*SourceService, domain.Cache, *dropRecorder, *ConnectionTracker) {
	store := cache.NewMemory(128)
	drops := &dropRecorder{}
	tracker := NewConnectionTracker(nil, zap.NewNop())
	svc := NewSourceService(repo, store, drops, tracker, zap.NewNop())
	return svc, store, drops, tracker
}

func TestSourceService_UpdateInvalidatesDerivedState(t *testing.T) {
	src := testSource("src-a", "alpha", domain.TierFree)
	repo := &fakeRepo{sources: []*domain.Source{src}}
	svc, store, drops, tracker := newSourceService(repo)
	ctx := context.Background()

	listingKey := domain.ListingCacheKey("src-a", []int64{3})
	require.NoError(t, store.Set(ctx, listingKey, []byte("x"), time.Minute))
	require.NoError(t, store.Set(ctx, domain.CategoryCacheKey("src-a"), []byte("y"), time.Minute))
	tracker.RecordFailure("src-a", domain.NewRejected("src-a", 500))

	require.NoError(t, svc.Update(ctx, src))

	data, _ := store.Get(ctx, listingKey)
	assert.Nil(t, data)
	data, _ = store.Get(ctx, domain.CategoryCacheKey("src-a"))
	assert.Nil(t, data)
	assert.Equal(t, []string{"src-a"}, drops.dropped)
	assert.Nil(t, tracker.LastError("src-a"))
}

func TestSourceService_UpdateLeavesOtherSourcesAlone(t *testing.T) {
	src := testSource("src-a", "alpha", domain.TierFree)
	repo := &fakeRepo{sources: []*domain.Source{src}}
	svc, store, _, _ := newSourceService(repo)
	ctx := context.Background()

	otherKey := domain.ListingCacheKey("src-b", nil)
	require.NoError(t, store.Set(ctx, otherKey, []byte("keep"), time.Minute))

	require.NoError(t, svc.Update(ctx, src))

	data, _ := store.Get(ctx, otherKey)
	assert.Equal(t, []byte("keep"), data)
}

func TestSourceService_RetryResetsCircuitAndTracker(t *testing.T) {
	src := testSource("src-a", "alpha", domain.TierFree)
	repo := &fakeRepo{sources: []*domain.Source{src}}
	svc, _, drops, tracker := newSourceService(repo)

	for i := 0; i < maxAutoRetries; i++ {
		tracker.RecordFailure("src-a", domain.NewTimeout("src-a", assert.AnError))
	}
	require.False(t, tracker.ShouldAttempt("src-a"))

	require.NoError(t, svc.Retry(context.Background(), "src-a"))

	assert.True(t, tracker.ShouldAttempt("src-a"))
	assert.Equal(t, []string{"src-a"}, drops.dropped)
}

func TestSourceService_RetryUnknownSource(t *testing.T) {
	svc, _, _, _ := newSourceService(&fakeRepo{})

	err := svc.Retry(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}
