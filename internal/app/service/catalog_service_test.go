package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
	"component-catalog-service/internal/infra/cache"
)

type fakeRepo struct {
	sources []*domain.Source
	listErr error
}

func (r *fakeRepo) List(_ context.Context, onlyActive bool) ([]*domain.Source, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	if !onlyActive {
		return r.sources, nil
	}
	var active []*domain.Source
	for _, s := range r.sources {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Source, error) {
	for _, s := range r.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrSourceNotFound
}

func (r *fakeRepo) Create(_ context.Context, source *domain.Source) error {
	r.sources = append(r.sources, source)
	return nil
}

func (r *fakeRepo) Update(context.Context, *domain.Source) error { return nil }
func (r *fakeRepo) Delete(context.Context, string) error         { return nil }

type fakeClient struct {
	mu         sync.Mutex
	components map[string][]*domain.Component
	categories map[string][]*domain.Category
	errs       map[string]error
	delays     map[string]time.Duration
	fetches    []string // source ids, in call order
}

func (c *fakeClient) FetchPage(context.Context, *domain.Source, domain.PageRequest) (*domain.PageResult, error) {
	return nil, nil
}

func (c *fakeClient) FetchAll(_ context.Context, source *domain.Source, _ []int64) ([]*domain.Component, error) {
	c.mu.Lock()
	delay := c.delays[source.ID]
	c.fetches = append(c.fetches, source.ID)
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err := c.errs[source.ID]; err != nil {
		return nil, err
	}
	return c.components[source.ID], nil
}

func (c *fakeClient) FetchCategories(_ context.Context, source *domain.Source) ([]*domain.Category, error) {
	return c.categories[source.ID], nil
}

func (c *fakeClient) fetchCount(sourceID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range c.fetches {
		if id == sourceID {
			n++
		}
	}
	return n
}

func testSource(id, name string, tier domain.AccessTier) *domain.Source {
	src := domain.NewSource(name, "https://"+name+".example.com", "templates", tier)
	src.ID = id
	return src
}

func comp(sourceID string, id int64, title string, categoryIDs ...int64) *domain.Component {
	return &domain.Component{ID: id, SourceID: sourceID, Title: title, CategoryIDs: categoryIDs}
}

func newCatalog(repo *fakeRepo, client *fakeClient, cfg CatalogConfig) (*CatalogService, domain.Cache, *ConnectionTracker) {
	store := cache.NewMemory(128)
	tracker := NewConnectionTracker(nil, zap.NewNop())
	svc := NewCatalogService(repo, client, store, tracker, cfg, zap.NewNop())
	return svc, store, tracker
}

func TestCatalogService_MergesInDeclarationOrder(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{
		testSource("src-a", "alpha", domain.TierFree),
		testSource("src-b", "beta", domain.TierFree),
	}}
	client := &fakeClient{
		components: map[string][]*domain.Component{
			"src-a": {comp("src-a", 42, "A first"), comp("src-a", 43, "A second")},
			"src-b": {comp("src-b", 42, "B first")},
		},
		// The slower source is declared first; its items must still lead.
		delays: map[string]time.Duration{"src-a": 30 * time.Millisecond},
	}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{Parallel: true})

	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)

	require.Len(t, view.Items, 3)
	assert.Equal(t, "A first", view.Items[0].Component.Title)
	assert.Equal(t, "A second", view.Items[1].Component.Title)
	assert.Equal(t, "B first", view.Items[2].Component.Title)

	// Same numeric id from two sources stays two distinct components
	assert.NotEqual(t, view.Items[0].Component.Key(), view.Items[2].Component.Key())
}

func TestCatalogService_SecondLoadServedFromCache(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{components: map[string][]*domain.Component{
		"src-a": {comp("src-a", 1, "one")},
	}}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	first, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)
	require.Equal(t, 1, client.fetchCount("src-a"))

	second, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)

	assert.Equal(t, 1, client.fetchCount("src-a"), "second load must not touch the network")
	assert.Equal(t, first.Items, second.Items)
}

func TestCatalogService_RefreshBypassesCache(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{components: map[string][]*domain.Component{
		"src-a": {comp("src-a", 1, "one")},
	}}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	_, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)

	_, err = svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree, Refresh: true})
	require.NoError(t, err)

	assert.Equal(t, 2, client.fetchCount("src-a"))
}

func TestCatalogService_PartialFailure(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{
		testSource("src-a", "alpha", domain.TierFree),
		testSource("src-b", "beta", domain.TierFree),
	}}
	client := &fakeClient{
		components: map[string][]*domain.Component{
			"src-a": {comp("src-a", 1, "one")},
		},
		errs: map[string]error{"src-b": domain.NewRejected("src-b", 503)},
	}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err, "partial failure is not an error")

	require.Len(t, view.Items, 1)
	assert.Equal(t, "one", view.Items[0].Component.Title)
	require.Contains(t, view.SourceErrors, "src-b")
	assert.Equal(t, domain.FailureRejected, view.SourceErrors["src-b"].Kind)
	assert.True(t, view.Partial())
}

func TestCatalogService_AllSourcesFailed(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{
		testSource("src-a", "alpha", domain.TierFree),
		testSource("src-b", "beta", domain.TierFree),
	}}
	client := &fakeClient{errs: map[string]error{
		"src-a": domain.NewUnreachable("src-a", context.DeadlineExceeded),
		"src-b": domain.NewRejected("src-b", 500),
	}}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	_, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	assert.ErrorIs(t, err, domain.ErrAllSourcesFailed)
}

func TestCatalogService_NoVisibleSources(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-p", "pro-only", domain.TierPro)}}
	svc, _, _ := newCatalog(repo, &fakeClient{}, CatalogConfig{})

	_, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	assert.ErrorIs(t, err, domain.ErrNoSources)
}

func TestCatalogService_ProSourceNeverFetchedForFreeRole(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{
		testSource("src-a", "alpha", domain.TierFree),
		testSource("src-p", "premium", domain.TierPro),
	}}
	client := &fakeClient{components: map[string][]*domain.Component{
		"src-a": {comp("src-a", 1, "one")},
		"src-p": {comp("src-p", 2, "secret")},
	}}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, "one", view.Items[0].Component.Title)
	assert.Zero(t, client.fetchCount("src-p"), "filtering happens before the network, not after")
}

func TestCatalogService_CopyableFlags(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{components: map[string][]*domain.Component{
		"src-a": {comp("src-a", 1, "one")},
	}}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	anon, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleAnonymous})
	require.NoError(t, err)
	assert.False(t, anon.Items[0].Copyable, "anonymous may browse but never copy")

	free, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)
	assert.True(t, free.Items[0].Copyable)
}

func TestCatalogService_SchemaVersionMismatchRefetches(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{components: map[string][]*domain.Component{
		"src-a": {comp("src-a", 1, "fresh")},
	}}
	svc, store, _ := newCatalog(repo, client, CatalogConfig{})

	stale, err := json.Marshal(listingEnvelope{
		Version:    cacheSchemaVersion + 1,
		SourceID:   "src-a",
		Components: []*domain.Component{comp("src-a", 9, "stale")},
	})
	require.NoError(t, err)
	key := domain.ListingCacheKey("src-a", nil)
	require.NoError(t, store.Set(context.Background(), key, stale, time.Minute))

	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, "fresh", view.Items[0].Component.Title)
	assert.Equal(t, 1, client.fetchCount("src-a"))
}

func TestCatalogService_Pagination(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{components: map[string][]*domain.Component{
		"src-a": {
			comp("src-a", 1, "c1"), comp("src-a", 2, "c2"), comp("src-a", 3, "c3"),
			comp("src-a", 4, "c4"), comp("src-a", 5, "c5"),
		},
	}}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{
		Role: domain.RoleFree, Page: 2, PerPage: 2,
	})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, "c3", view.Items[0].Component.Title)
	assert.Equal(t, "c4", view.Items[1].Component.Title)
	assert.Equal(t, 5, view.Total)
	assert.Equal(t, 3, view.TotalPages())

	beyond, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{
		Role: domain.RoleFree, Page: 9, PerPage: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 5, beyond.Total)
}

func TestCatalogService_CategoryCounts(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{
		components: map[string][]*domain.Component{
			"src-a": {
				comp("src-a", 1, "c1", 10),
				comp("src-a", 2, "c2", 10, 20),
				comp("src-a", 3, "c3", 99), // not in the taxonomy
			},
		},
		categories: map[string][]*domain.Category{
			"src-a": {
				{ID: 10, SourceID: "src-a", Name: "Heroes", Slug: "heroes"},
				{ID: 20, SourceID: "src-a", Name: "Footers", Slug: "footers"},
				{ID: 30, SourceID: "src-a", Name: "Unused", Slug: "unused"},
			},
		},
	}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)

	require.Len(t, view.Categories, 3, "categories without visible components never appear")
	assert.Equal(t, "Heroes", view.Categories[0].Name)
	assert.Equal(t, 2, view.Categories[0].Count)
	assert.Equal(t, "Footers", view.Categories[1].Name)
	assert.Equal(t, 1, view.Categories[1].Count)
	assert.Equal(t, int64(99), view.Categories[2].ID)
	assert.Empty(t, view.Categories[2].Name, "unknown term keeps its id and an empty name")
}

func TestCatalogService_ExhaustedRetriesSkipSourceUntilManualRetry(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{errs: map[string]error{
		"src-a": domain.NewUnreachable("src-a", context.DeadlineExceeded),
	}}
	svc, _, tracker := newCatalog(repo, client, CatalogConfig{})

	for i := 0; i < maxAutoRetries; i++ {
		_, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
		assert.ErrorIs(t, err, domain.ErrAllSourcesFailed)
	}
	require.Equal(t, maxAutoRetries, client.fetchCount("src-a"))

	// Exhausted: further loads skip the network and replay the last failure
	_, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	assert.ErrorIs(t, err, domain.ErrAllSourcesFailed)
	assert.Equal(t, maxAutoRetries, client.fetchCount("src-a"))

	tracker.Retry("src-a")
	client.errs = map[string]error{}
	client.components = map[string][]*domain.Component{"src-a": {comp("src-a", 1, "back")}}

	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestCatalogService_RefreshAllPrimesCache(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{
		testSource("src-a", "alpha", domain.TierFree),
		testSource("src-b", "beta", domain.TierFree),
	}}
	client := &fakeClient{
		components: map[string][]*domain.Component{
			"src-a": {comp("src-a", 1, "one"), comp("src-a", 2, "two")},
		},
		errs: map[string]error{"src-b": domain.NewRejected("src-b", 502)},
	}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	results := svc.RefreshAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Count)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)

	// The refreshed listing serves the next unfiltered load without a fetch
	before := client.fetchCount("src-a")
	view, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, before, client.fetchCount("src-a"))
}

func TestCatalogService_InvalidateListings(t *testing.T) {
	repo := &fakeRepo{sources: []*domain.Source{testSource("src-a", "alpha", domain.TierFree)}}
	client := &fakeClient{components: map[string][]*domain.Component{
		"src-a": {comp("src-a", 1, "one")},
	}}
	svc, _, _ := newCatalog(repo, client, CatalogConfig{})

	_, err := svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)
	require.NoError(t, svc.InvalidateListings(context.Background()))

	_, err = svc.LoadCatalog(context.Background(), domain.CatalogQuery{Role: domain.RoleFree})
	require.NoError(t, err)
	assert.Equal(t, 2, client.fetchCount("src-a"))
}
