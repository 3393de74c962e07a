package domain

import "encoding/json"

// Component is one listed design item from a source. It is immutable once
// fetched; identity is the composite (SourceID, ID) because numeric ids can
// collide across sources.
type Component struct {
	ID          int64           `json:"id"` // ID from the source (unique per source only)
	SourceID    string          `json:"source_id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	CategoryIDs []int64         `json:"category_ids,omitempty"`
	PreviewURL  string          `json:"preview_url,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"` // original payload, needed for copy-to-site
}

// ComponentKey is the composite identity of a component.
type ComponentKey struct {
	SourceID string
	ID       int64
}

// Key returns the composite identity. Downstream code must never key on the
// numeric ID alone.
func (c *Component) Key() ComponentKey {
	return ComponentKey{SourceID: c.SourceID, ID: c.ID}
}

// InCategories reports whether the component is tagged with at least one of
// the given category ids. An empty filter matches everything.
func (c *Component) InCategories(categoryIDs []int64) bool {
	if len(categoryIDs) == 0 {
		return true
	}
	for _, want := range categoryIDs {
		for _, have := range c.CategoryIDs {
			if have == want {
				return true
			}
		}
	}

	return false
}

// Category is one taxonomy term, scoped per source: two sources may use the
// same numeric id for different terms.
type Category struct {
	ID       int64  `json:"id"`
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}

// CategoryCount pairs a category with the number of currently visible
// components tagged with it. Derived from results, not from the raw taxonomy,
// so empty categories never appear.
type CategoryCount struct {
	Category
	Count int `json:"count"`
}
