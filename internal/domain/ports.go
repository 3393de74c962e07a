package domain

import (
	"context"
	"time"
)

// SourceRepository defines the interface for source persistence.
// Implementations: internal/infra/postgres/repository.go
type SourceRepository interface {
	// List returns all sources, optionally narrowed to active ones, in
	// stable creation order.
	List(ctx context.Context, onlyActive bool) ([]*Source, error)

	// GetByID retrieves a single source. Returns ErrSourceNotFound when the
	// id is unknown.
	GetByID(ctx context.Context, id string) (*Source, error)

	// Create persists a new source.
	Create(ctx context.Context, source *Source) error

	// Update persists changes to an existing source.
	Update(ctx context.Context, source *Source) error

	// Delete removes a source by id.
	Delete(ctx context.Context, id string) error
}

// SourceClient defines the interface for talking to one external
// WordPress-like source. Implementations classify every failure as a
// *SourceError; retry policy above transport level lives in the caller.
// Implementations: internal/infra/wordpress/client.go
type SourceClient interface {
	// FetchPage retrieves one listing page.
	FetchPage(ctx context.Context, source *Source, req PageRequest) (*PageResult, error)

	// FetchAll paginates through the full listing of one source, applying a
	// politeness delay between page requests.
	FetchAll(ctx context.Context, source *Source, categoryIDs []int64) ([]*Component, error)

	// FetchCategories retrieves the source's taxonomy directly.
	FetchCategories(ctx context.Context, source *Source) ([]*Category, error)
}

// Cache defines the interface for TTL-bounded caching. Get returns (nil, nil)
// both for absent and expired keys; callers cannot tell the two apart because
// both require a refetch.
// Implementations: internal/infra/cache/
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key under the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all cached values.
	Clear(ctx context.Context) error
}
