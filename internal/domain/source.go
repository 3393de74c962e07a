// Package domain contains the core business logic and entities.
// This package has no external dependencies beyond stdlib and uuid.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessTier is the minimum subscription role required to use a source.
type AccessTier string

const (
	TierFree AccessTier = "free" // available to every role
	TierPro  AccessTier = "pro"  // requires a pro subscription
	TierAll  AccessTier = "all"  // no gating, equivalent to free
)

// Credentials holds HTTP Basic auth for a source. WordPress application
// passwords are username + app-scoped password pairs.
type Credentials struct {
	Username    string `json:"username"`
	AppPassword string `json:"app_password"`
}

// Source is a connection to one external WordPress-like site. Sources are
// long-lived and admin-managed; base URL + collection type uniquely determine
// the remote collection queried.
type Source struct {
	ID             string       `json:"id"` // Internal UUID
	Name           string       `json:"name"`
	BaseURL        string       `json:"base_url"`
	CollectionType string       `json:"collection_type"` // e.g. "templates", "sections"
	PreviewField   string       `json:"preview_field"`   // item field holding the preview image URL
	AccessTier     AccessTier   `json:"access_tier"`
	Credentials    *Credentials `json:"credentials,omitempty"` // nil for public sources
	Tags           []string     `json:"tags,omitempty"`        // admin-facing labels for grouping connections
	IsActive       bool         `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSource creates a new Source with a generated ID and timestamps.
func NewSource(name, baseURL, collectionType string, tier AccessTier) *Source {
	now := time.Now().UTC()

	return &Source{
		ID:             uuid.NewString(),
		Name:           name,
		BaseURL:        baseURL,
		CollectionType: collectionType,
		AccessTier:     tier,
		Tags:           []string{},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// HasCredentials reports whether the source requires Basic auth.
func (s *Source) HasCredentials() bool {
	return s.Credentials != nil && s.Credentials.Username != ""
}
