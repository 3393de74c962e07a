// Package service provides application use cases.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
)

// cacheSchemaVersion tags every cached envelope. A mismatch at read time is
// treated as a miss and the stale entry is wiped, so deploys that change the
// cached shape never need a migration.
const cacheSchemaVersion = 1

type listingEnvelope struct {
	Version    int                 `json:"version"`
	SourceID   string              `json:"source_id"`
	CachedAt   time.Time           `json:"cached_at"`
	Components []*domain.Component `json:"components"`
}

type categoryEnvelope struct {
	Version    int                `json:"version"`
	SourceID   string             `json:"source_id"`
	CachedAt   time.Time          `json:"cached_at"`
	Categories []*domain.Category `json:"categories"`
}

// errRetriesExhausted marks a source skipped because its automatic retries
// ran out and nobody pressed retry yet.
var errRetriesExhausted = errors.New("automatic retries exhausted, manual retry required")

// CatalogConfig holds aggregation tunables.
type CatalogConfig struct {
	ComponentTTL time.Duration // listing cache TTL
	CategoryTTL  time.Duration // taxonomy cache TTL
	Parallel     bool          // fan out source fetches concurrently
}

func (c CatalogConfig) withDefaults() CatalogConfig {
	if c.ComponentTTL <= 0 {
		c.ComponentTTL = 10 * time.Minute
	}
	if c.CategoryTTL <= 0 {
		c.CategoryTTL = 24 * time.Hour
	}

	return c
}

// CatalogService merges component listings from every source the caller may
// see into one view. Per-source failures are returned as data next to the
// results of the sources that did answer; only total failure is an error.
type CatalogService struct {
	repo    domain.SourceRepository
	client  domain.SourceClient
	cache   domain.Cache
	tracker *ConnectionTracker
	cfg     CatalogConfig
	logger  *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	repo domain.SourceRepository,
	client domain.SourceClient,
	cache domain.Cache,
	tracker *ConnectionTracker,
	cfg CatalogConfig,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		repo:    repo,
		client:  client,
		cache:   cache,
		tracker: tracker,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// LoadCatalog loads the merged catalog for one query. Results are merged in
// source declaration order regardless of which fetch finished first, so the
// same data always renders the same way.
func (s *CatalogService) LoadCatalog(ctx context.Context, query domain.CatalogQuery) (*domain.CatalogView, error) {
	query.Normalize()

	sources, err := s.repo.List(ctx, true)
	if err != nil {
		s.logger.Error("listing sources failed", zap.Error(err))
		return nil, err
	}

	visible := domain.VisibleSources(sources, query.Role)
	if len(visible) == 0 {
		return nil, domain.ErrNoSources
	}

	s.logger.Debug("loading catalog",
		zap.String("role", string(query.Role)),
		zap.Int("sources", len(visible)),
		zap.Int64s("categories", query.CategoryIDs),
		zap.Bool("refresh", query.Refresh),
	)

	listings := s.loadListings(ctx, visible, query)

	view := &domain.CatalogView{
		SourceErrors: make(map[string]*domain.SourceError),
		Page:         query.Page,
		PerPage:      query.PerPage,
	}

	var merged []domain.CatalogItem
	failed := 0
	for i, src := range visible {
		if listings[i].err != nil {
			view.SourceErrors[src.ID] = listings[i].err
			failed++
			continue
		}
		copyable := domain.CanCopy(src.AccessTier, query.Role)
		for _, comp := range listings[i].components {
			merged = append(merged, domain.CatalogItem{Component: comp, Copyable: copyable})
		}
	}
	if failed == len(visible) {
		return nil, domain.ErrAllSourcesFailed
	}

	view.Categories = s.categoryCounts(ctx, visible, listings)
	view.Total = len(merged)
	view.Items = pageSlice(merged, query.Page, query.PerPage)

	if view.Partial() {
		s.logger.Warn("catalog view is partial",
			zap.Int("sources_failed", failed),
			zap.Int("sources_total", len(visible)),
		)
	}

	return view, nil
}

// listing is one per-source fetch outcome. Exactly one field is set.
type listing struct {
	components []*domain.Component
	err        *domain.SourceError
}

// loadListings fetches every visible source, concurrently or one by one
// depending on configuration. The result slice is indexed like sources, which
// keeps the merge order independent of completion order.
func (s *CatalogService) loadListings(ctx context.Context, sources []*domain.Source, query domain.CatalogQuery) []listing {
	listings := make([]listing, len(sources))

	if !s.cfg.Parallel {
		for i, src := range sources {
			listings[i] = s.loadListing(ctx, src, query)
		}

		return listings
	}

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(idx int, src *domain.Source) {
			defer wg.Done()
			listings[idx] = s.loadListing(ctx, src, query)
		}(i, src)
	}
	wg.Wait()

	return listings
}

// loadListing serves one source's listing from cache when possible, otherwise
// fetches it. Every failure comes back classified; nothing escapes as a bare
// error.
func (s *CatalogService) loadListing(ctx context.Context, src *domain.Source, query domain.CatalogQuery) listing {
	key := domain.ListingCacheKey(src.ID, query.CategoryIDs)

	if !query.Refresh {
		if comps, ok := s.cachedListing(ctx, key, src.ID); ok {
			return listing{components: comps}
		}
	}

	if !s.tracker.ShouldAttempt(src.ID) {
		srcErr := s.tracker.LastError(src.ID)
		if srcErr == nil {
			srcErr = domain.NewUnreachable(src.ID, errRetriesExhausted)
		}

		return listing{err: srcErr}
	}

	s.tracker.BeginAttempt(src.ID)
	comps, err := s.client.FetchAll(ctx, src, query.CategoryIDs)
	if err != nil {
		srcErr := asSourceError(src.ID, err)
		s.tracker.RecordFailure(src.ID, srcErr)
		s.logger.Warn("source fetch failed",
			zap.String("source_id", src.ID),
			zap.String("source", src.Name),
			zap.String("kind", string(srcErr.Kind)),
			zap.Error(srcErr),
		)

		return listing{err: srcErr}
	}
	s.tracker.RecordSuccess(src.ID)

	s.storeListing(ctx, key, src.ID, comps)

	return listing{components: comps}
}

// cachedListing reads one listing envelope. Any decode problem or schema
// mismatch wipes the entry and reads as a miss.
func (s *CatalogService) cachedListing(ctx context.Context, key, sourceID string) ([]*domain.Component, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil || data == nil {
		return nil, false
	}

	var env listingEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Version != cacheSchemaVersion || env.SourceID != sourceID {
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}

	return env.Components, true
}

func (s *CatalogService) storeListing(ctx context.Context, key, sourceID string, comps []*domain.Component) {
	data, err := json.Marshal(listingEnvelope{
		Version:    cacheSchemaVersion,
		SourceID:   sourceID,
		CachedAt:   time.Now().UTC(),
		Components: comps,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.ComponentTTL); err != nil {
		s.logger.Warn("caching listing failed", zap.String("source_id", sourceID), zap.Error(err))
	}
}

// categoryCounts derives the category union across the returned components,
// counting occurrences per source-scoped category. Names and slugs come from
// the cached taxonomy; an unnamed category still appears with its id.
func (s *CatalogService) categoryCounts(ctx context.Context, sources []*domain.Source, listings []listing) []domain.CategoryCount {
	var out []domain.CategoryCount
	for i, src := range sources {
		if listings[i].err != nil {
			continue
		}

		counts := make(map[int64]int)
		for _, comp := range listings[i].components {
			for _, id := range comp.CategoryIDs {
				counts[id]++
			}
		}
		if len(counts) == 0 {
			continue
		}

		names := s.taxonomy(ctx, src)

		ids := make([]int64, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			cat, ok := names[id]
			if !ok {
				cat = domain.Category{ID: id, SourceID: src.ID}
			}
			out = append(out, domain.CategoryCount{Category: cat, Count: counts[id]})
		}
	}

	return out
}

// taxonomy returns the source's category terms keyed by id, served from cache
// and fetched on a miss. Taxonomy trouble never degrades the view; the worst
// case is categories without names.
func (s *CatalogService) taxonomy(ctx context.Context, src *domain.Source) map[int64]domain.Category {
	key := domain.CategoryCacheKey(src.ID)

	if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
		var env categoryEnvelope
		if err := json.Unmarshal(data, &env); err == nil && env.Version == cacheSchemaVersion && env.SourceID == src.ID {
			return indexCategories(env.Categories)
		}
		_ = s.cache.Delete(ctx, key)
	}

	cats, err := s.client.FetchCategories(ctx, src)
	if err != nil {
		s.logger.Warn("fetching taxonomy failed",
			zap.String("source_id", src.ID),
			zap.Error(err),
		)

		return nil
	}

	if data, err := json.Marshal(categoryEnvelope{
		Version:    cacheSchemaVersion,
		SourceID:   src.ID,
		CachedAt:   time.Now().UTC(),
		Categories: cats,
	}); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cfg.CategoryTTL); err != nil {
			s.logger.Warn("caching taxonomy failed", zap.String("source_id", src.ID), zap.Error(err))
		}
	}

	return indexCategories(cats)
}

func indexCategories(cats []*domain.Category) map[int64]domain.Category {
	index := make(map[int64]domain.Category, len(cats))
	for _, c := range cats {
		index[c.ID] = *c
	}

	return index
}

// pageSlice cuts one page out of the merged item list.
func pageSlice(items []domain.CatalogItem, page, perPage int) []domain.CatalogItem {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []domain.CatalogItem{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}

	return items[start:end]
}

// asSourceError coerces a client error into the classified form. Clients
// already classify everything they return; this is the safety net for
// anything else.
func asSourceError(sourceID string, err error) *domain.SourceError {
	var srcErr *domain.SourceError
	if errors.As(err, &srcErr) {
		return srcErr
	}

	return domain.NewUnreachable(sourceID, err)
}

// RefreshResult holds the outcome of refreshing one source.
type RefreshResult struct {
	SourceID string
	Name     string
	Count    int
	Duration time.Duration
	Err      error
}

// RefreshAll refetches the unfiltered listing and taxonomy of every active
// source and rewrites their cache entries. Used by the background scheduler
// and the admin refresh endpoint; partial failures are allowed.
func (s *CatalogService) RefreshAll(ctx context.Context) []RefreshResult {
	sources, err := s.repo.List(ctx, true)
	if err != nil {
		s.logger.Error("listing sources for refresh failed", zap.Error(err))
		return nil
	}

	s.logger.Info("refreshing all sources", zap.Int("source_count", len(sources)))

	results := make([]RefreshResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(idx int, src *domain.Source) {
			defer wg.Done()
			results[idx] = s.refreshSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	refreshed := 0
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
		} else {
			refreshed += r.Count
		}
	}
	s.logger.Info("refresh completed",
		zap.Int("components", refreshed),
		zap.Int("sources_failed", failures),
	)

	return results
}

// refreshSource force-fetches one source past its cache.
func (s *CatalogService) refreshSource(ctx context.Context, src *domain.Source) RefreshResult {
	start := time.Now()
	result := RefreshResult{SourceID: src.ID, Name: src.Name}

	s.tracker.BeginAttempt(src.ID)
	comps, err := s.client.FetchAll(ctx, src, nil)
	if err != nil {
		srcErr := asSourceError(src.ID, err)
		s.tracker.RecordFailure(src.ID, srcErr)
		result.Err = srcErr
		result.Duration = time.Since(start)
		s.logger.Warn("source refresh failed",
			zap.String("source_id", src.ID),
			zap.String("source", src.Name),
			zap.Error(srcErr),
		)

		return result
	}
	s.tracker.RecordSuccess(src.ID)

	s.storeListing(ctx, domain.ListingCacheKey(src.ID, nil), src.ID, comps)
	if cats, err := s.client.FetchCategories(ctx, src); err == nil {
		if data, err := json.Marshal(categoryEnvelope{
			Version:    cacheSchemaVersion,
			SourceID:   src.ID,
			CachedAt:   time.Now().UTC(),
			Categories: cats,
		}); err == nil {
			_ = s.cache.Set(ctx, domain.CategoryCacheKey(src.ID), data, s.cfg.CategoryTTL)
		}
	}

	result.Count = len(comps)
	result.Duration = time.Since(start)

	s.logger.Info("source refreshed",
		zap.String("source", src.Name),
		zap.Int("count", result.Count),
		zap.Duration("duration", result.Duration),
	)

	return result
}

// InvalidateListings drops every cached listing of every source. Taxonomies
// stay; they change far less often than listings.
func (s *CatalogService) InvalidateListings(ctx context.Context) error {
	return s.cache.DeletePrefix(ctx, domain.AllListingsKeyPrefix())
}
