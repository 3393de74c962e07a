// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import (
	"fmt"
	"strconv"
	"strings"

	"component-catalog-service/internal/domain"
)

// CatalogRequest represents the query parameters for the merged catalog.
type CatalogRequest struct {
	Categories string `query:"categories" validate:"max=200"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	PerPage    int    `query:"per_page" validate:"omitempty,min=1,max=100"`
	Refresh    bool   `query:"refresh"`
}

// ToQuery converts the request into a catalog query for the given caller
// role.
func (r *CatalogRequest) ToQuery(role domain.Role) (domain.CatalogQuery, error) {
	ids, err := ParseCategoryIDs(r.Categories)
	if err != nil {
		return domain.CatalogQuery{}, err
	}

	q := domain.CatalogQuery{
		Role:        role,
		CategoryIDs: ids,
		Page:        r.Page,
		PerPage:     r.PerPage,
		Refresh:     r.Refresh,
	}
	q.Normalize()

	return q, nil
}

// ParseCategoryIDs parses a comma-separated id list like "3,7". Empty input
// means no filter; blanks between commas are skipped.
func ParseCategoryIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid category id %q", part)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// SourceRequest is the payload for creating or replacing a source.
type SourceRequest struct {
	Name           string   `json:"name" validate:"required,max=200"`
	BaseURL        string   `json:"base_url" validate:"required,url,max=500"`
	CollectionType string   `json:"collection_type" validate:"required,max=100"`
	PreviewField   string   `json:"preview_field" validate:"max=100"`
	AccessTier     string   `json:"access_tier" validate:"omitempty,oneof=free pro all"`
	Username       string   `json:"username" validate:"max=200"`
	AppPassword    string   `json:"app_password" validate:"max=200"`
	Tags           []string `json:"tags" validate:"max=20,dive,max=50"`
	IsActive       *bool    `json:"is_active"`
}

// ToDomain builds a new source from the request.
func (r *SourceRequest) ToDomain() *domain.Source {
	tier := domain.AccessTier(r.AccessTier)
	if tier == "" {
		tier = domain.TierFree
	}

	src := domain.NewSource(r.Name, strings.TrimRight(r.BaseURL, "/"), r.CollectionType, tier)
	src.PreviewField = r.PreviewField
	if r.Username != "" {
		src.Credentials = &domain.Credentials{Username: r.Username, AppPassword: r.AppPassword}
	}
	if len(r.Tags) > 0 {
		src.Tags = r.Tags
	}
	if r.IsActive != nil {
		src.IsActive = *r.IsActive
	}

	return src
}

// ApplyTo replaces an existing source's settings with the request, keeping
// its identity and timestamps. Omitting credentials revokes them.
func (r *SourceRequest) ApplyTo(src *domain.Source) {
	src.Name = r.Name
	src.BaseURL = strings.TrimRight(r.BaseURL, "/")
	src.CollectionType = r.CollectionType
	src.PreviewField = r.PreviewField
	if r.AccessTier != "" {
		src.AccessTier = domain.AccessTier(r.AccessTier)
	}
	if r.Username != "" {
		src.Credentials = &domain.Credentials{Username: r.Username, AppPassword: r.AppPassword}
	} else {
		src.Credentials = nil
	}
	src.Tags = r.Tags
	if r.IsActive != nil {
		src.IsActive = *r.IsActive
	}
}
