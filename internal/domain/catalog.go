package domain

import (
	"sort"
	"strconv"
	"strings"
)

// CatalogQuery holds the parameters for one merged catalog load.
type CatalogQuery struct {
	Role        Role
	CategoryIDs []int64 // server-side category filter, empty means all
	Page        int     // 1-indexed page of the merged view
	PerPage     int
	Refresh     bool // bypass the listing cache for this load
}

// Normalize ensures query values are within acceptable bounds. This is bound
// correction, not validation.
func (q *CatalogQuery) Normalize() {
	if q.Role == "" {
		q.Role = RoleAnonymous
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 24
	}
	if q.PerPage > 100 {
		q.PerPage = 100
	}
	if len(q.CategoryIDs) > 1 {
		sort.Slice(q.CategoryIDs, func(i, j int) bool { return q.CategoryIDs[i] < q.CategoryIDs[j] })
	}
}

// Cache key namespaces. Listing keys embed the category filter so different
// filters never collide; category keys are per source only.
const (
	listingKeyPrefix  = "components:"
	categoryKeyPrefix = "categories:"
)

// ListingCacheKey builds the cache key for one source's component listing
// under a category filter: "components:<sourceID>:<sorted ids ,-joined>".
func ListingCacheKey(sourceID string, categoryIDs []int64) string {
	ids := make([]string, len(categoryIDs))
	sorted := append([]int64(nil), categoryIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, id := range sorted {
		ids[i] = strconv.FormatInt(id, 10)
	}

	return listingKeyPrefix + sourceID + ":" + strings.Join(ids, ",")
}

// ListingKeyPrefixFor returns the key prefix covering every listing entry of
// one source, used for per-source invalidation.
func ListingKeyPrefixFor(sourceID string) string {
	return listingKeyPrefix + sourceID + ":"
}

// AllListingsKeyPrefix covers every listing entry of every source.
func AllListingsKeyPrefix() string {
	return listingKeyPrefix
}

// CategoryCacheKey builds the cache key for one source's taxonomy.
func CategoryCacheKey(sourceID string) string {
	return categoryKeyPrefix + sourceID
}

// PageRequest asks a source client for one listing page.
type PageRequest struct {
	Page        int
	PerPage     int
	CategoryIDs []int64
}

// PageResult is one listing page from a source. HasNextPage derives from the
// total-count response headers when the source sends them, falling back to
// the page-full heuristic otherwise.
type PageResult struct {
	Components  []*Component
	HasNextPage bool
	TotalCount  int // 0 when the source omits the header
}

// CatalogItem is one component plus the caller-specific copy permission,
// evaluated at view-assembly time.
type CatalogItem struct {
	Component *Component `json:"component"`
	Copyable  bool       `json:"copyable"`
}

// CatalogView is the merged result of one catalog load. Items are ordered by
// source declaration order, then source order within each source, so the view
// is deterministic regardless of which network response landed first.
type CatalogView struct {
	Items      []CatalogItem
	Categories []CategoryCount
	// SourceErrors maps source id to its classified failure. Non-empty
	// SourceErrors with non-empty Items means a degraded, partial view.
	SourceErrors map[string]*SourceError
	Page         int
	PerPage      int
	Total        int // merged component count before view pagination
}

// Partial reports whether at least one source failed while others succeeded.
func (v *CatalogView) Partial() bool {
	return len(v.SourceErrors) > 0 && len(v.Items) > 0
}

// TotalPages returns the page count of the merged view.
func (v *CatalogView) TotalPages() int {
	if v.PerPage <= 0 {
		return 0
	}
	pages := v.Total / v.PerPage
	if v.Total%v.PerPage > 0 {
		pages++
	}

	return pages
}
