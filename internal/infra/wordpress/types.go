package wordpress

import (
	"encoding/json"

	"component-catalog-service/internal/domain"
)

// listItem is the subset of a WordPress REST collection item the catalog
// needs. The full payload is kept as raw JSON on the domain component because
// copy-to-site replays it verbatim.
type listItem struct {
	ID         int64    `json:"id"`
	Slug       string   `json:"slug"`
	Title      rendered `json:"title"`
	Categories []int64  `json:"categories"`
}

// rendered is WordPress's {"rendered": "..."} wrapper. Some sources return a
// plain string instead, so both shapes decode.
type rendered struct {
	Rendered string `json:"rendered"`
}

func (r *rendered) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Rendered)
	}

	type wrapper rendered
	var w wrapper
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Rendered = w.Rendered

	return nil
}

// term is one WordPress taxonomy term.
type term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (t *term) toDomain(sourceID string) *domain.Category {
	return &domain.Category{
		ID:       t.ID,
		SourceID: sourceID,
		Name:     t.Name,
		Slug:     t.Slug,
	}
}

// toDomain converts one raw collection item into a domain component, tagged
// with its originating source.
func (it *listItem) toDomain(source *domain.Source, raw json.RawMessage) *domain.Component {
	return &domain.Component{
		ID:          it.ID,
		SourceID:    source.ID,
		Title:       it.Title.Rendered,
		Slug:        it.Slug,
		CategoryIDs: it.Categories,
		PreviewURL:  previewURL(raw, source.PreviewField),
		Raw:         raw,
	}
}

// previewURL extracts the preview image URL from the configured field,
// checking the top level first and the meta object second. Sources that
// expose no preview field yield an empty URL, which the UI renders as a
// placeholder.
func previewURL(raw []byte, field string) string {
	if field == "" {
		return ""
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	if s, ok := m[field].(string); ok {
		return s
	}
	if meta, ok := m["meta"].(map[string]any); ok {
		if s, ok := meta[field].(string); ok {
			return s
		}
	}

	return ""
}
