package dto

import (
	"encoding/json"
	"time"

	"component-catalog-service/internal/app/service"
	"component-catalog-service/internal/domain"
)

// ComponentResponse represents a single catalog component. The raw source
// payload is only included when the caller may copy the component.
type ComponentResponse struct {
	ID          int64           `json:"id"`
	SourceID    string          `json:"source_id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug,omitempty"`
	CategoryIDs []int64         `json:"category_ids,omitempty"`
	PreviewURL  string          `json:"preview_url,omitempty"`
	Copyable    bool            `json:"copyable"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// FromCatalogItem converts one catalog item to its response form.
func FromCatalogItem(item domain.CatalogItem) ComponentResponse {
	resp := ComponentResponse{
		ID:          item.Component.ID,
		SourceID:    item.Component.SourceID,
		Title:       item.Component.Title,
		Slug:        item.Component.Slug,
		CategoryIDs: item.Component.CategoryIDs,
		PreviewURL:  item.Component.PreviewURL,
		Copyable:    item.Copyable,
	}
	if item.Copyable {
		resp.Raw = item.Component.Raw
	}

	return resp
}

// CategoryResponse represents one derived category with its visible
// component count.
type CategoryResponse struct {
	ID       int64  `json:"id"`
	SourceID string `json:"source_id"`
	Name     string `json:"name,omitempty"`
	Slug     string `json:"slug,omitempty"`
	Count    int    `json:"count"`
}

// SourceErrorResponse represents a classified per-source failure.
type SourceErrorResponse struct {
	Kind              string `json:"kind"`
	Message           string `json:"message"`
	Status            int    `json:"status,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// FromSourceError converts a domain source error to its response form.
func FromSourceError(e *domain.SourceError) SourceErrorResponse {
	return SourceErrorResponse{
		Kind:              string(e.Kind),
		Message:           e.Error(),
		Status:            e.Status,
		RetryAfterSeconds: int(e.RetryAfter.Seconds()),
	}
}

// PaginationMeta holds pagination metadata for the merged view.
type PaginationMeta struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	TotalPages  int  `json:"total_pages"`
	HasNextPage bool `json:"has_next_page"`
}

// CatalogResponse represents the merged catalog view.
type CatalogResponse struct {
	Components []ComponentResponse            `json:"components"`
	Categories []CategoryResponse             `json:"categories"`
	Errors     map[string]SourceErrorResponse `json:"errors,omitempty"`
	Partial    bool                           `json:"partial"`
	Pagination PaginationMeta                 `json:"pagination"`
}

// FromCatalogView converts a catalog view to the API response.
func FromCatalogView(view *domain.CatalogView) CatalogResponse {
	resp := CatalogResponse{
		Components: make([]ComponentResponse, len(view.Items)),
		Categories: make([]CategoryResponse, len(view.Categories)),
		Partial:    view.Partial(),
		Pagination: PaginationMeta{
			Total:       view.Total,
			Page:        view.Page,
			PerPage:     view.PerPage,
			TotalPages:  view.TotalPages(),
			HasNextPage: view.Page < view.TotalPages(),
		},
	}

	for i, item := range view.Items {
		resp.Components[i] = FromCatalogItem(item)
	}
	for i, cc := range view.Categories {
		resp.Categories[i] = CategoryResponse{
			ID:       cc.ID,
			SourceID: cc.SourceID,
			Name:     cc.Name,
			Slug:     cc.Slug,
			Count:    cc.Count,
		}
	}
	if len(view.SourceErrors) > 0 {
		resp.Errors = make(map[string]SourceErrorResponse, len(view.SourceErrors))
		for id, e := range view.SourceErrors {
			resp.Errors[id] = FromSourceError(e)
		}
	}

	return resp
}

// SourceResponse represents a configured source. Credentials never leave the
// service; only their presence is reported.
type SourceResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	BaseURL        string   `json:"base_url"`
	CollectionType string   `json:"collection_type"`
	PreviewField   string   `json:"preview_field,omitempty"`
	AccessTier     string   `json:"access_tier"`
	HasCredentials bool     `json:"has_credentials"`
	Tags           []string `json:"tags,omitempty"`
	IsActive       bool     `json:"is_active"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// FromSource converts a domain source to its response form.
func FromSource(s *domain.Source) SourceResponse {
	return SourceResponse{
		ID:             s.ID,
		Name:           s.Name,
		BaseURL:        s.BaseURL,
		CollectionType: s.CollectionType,
		PreviewField:   s.PreviewField,
		AccessTier:     string(s.AccessTier),
		HasCredentials: s.HasCredentials(),
		Tags:           s.Tags,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339),
	}
}

// FromSources converts a source list.
func FromSources(sources []*domain.Source) []SourceResponse {
	out := make([]SourceResponse, len(sources))
	for i, s := range sources {
		out[i] = FromSource(s)
	}

	return out
}

// SourceStatusResponse represents one source's connection and circuit state.
type SourceStatusResponse struct {
	SourceID        string `json:"source_id"`
	Name            string `json:"name,omitempty"`
	State           string `json:"state"`
	Failures        int    `json:"failures"`
	LastError       string `json:"last_error,omitempty"`
	ErrorKind       string `json:"error_kind,omitempty"`
	Circuit         string `json:"circuit"`
	CooldownSeconds int    `json:"cooldown_seconds,omitempty"`
	ChangedAt       string `json:"changed_at"`
}

// FromSourceStatus converts a tracker snapshot, annotated with the source
// name when known.
func FromSourceStatus(name string, st service.SourceStatus) SourceStatusResponse {
	return SourceStatusResponse{
		SourceID:        st.SourceID,
		Name:            name,
		State:           string(st.State),
		Failures:        st.Failures,
		LastError:       st.LastError,
		ErrorKind:       string(st.ErrorKind),
		Circuit:         st.Circuit,
		CooldownSeconds: int(st.Cooldown.Seconds()),
		ChangedAt:       st.ChangedAt.Format(time.RFC3339),
	}
}

// StatusResponse represents the status of every configured source.
type StatusResponse struct {
	TotalSources  int                    `json:"total_sources"`
	ActiveSources int                    `json:"active_sources"`
	Sources       []SourceStatusResponse `json:"sources"`
}

// RefreshResultResponse represents the refresh outcome for one source.
type RefreshResultResponse struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// RefreshSummary summarizes a refresh run.
type RefreshSummary struct {
	TotalComponents int `json:"total_components"`
	SourcesOK       int `json:"sources_ok"`
	SourcesFail     int `json:"sources_fail"`
}

// RefreshResponse represents the response for a full refresh.
type RefreshResponse struct {
	Results []RefreshResultResponse `json:"results"`
	Summary RefreshSummary          `json:"summary"`
}

// FromRefreshResults converts service refresh results.
func FromRefreshResults(results []service.RefreshResult) RefreshResponse {
	resp := RefreshResponse{
		Results: make([]RefreshResultResponse, len(results)),
	}

	for i, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
			resp.Summary.SourcesFail++
		} else {
			resp.Summary.TotalComponents += r.Count
			resp.Summary.SourcesOK++
		}

		resp.Results[i] = RefreshResultResponse{
			SourceID: r.SourceID,
			Name:     r.Name,
			Count:    r.Count,
			Duration: r.Duration.String(),
			Error:    errMsg,
		}
	}

	return resp
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}
