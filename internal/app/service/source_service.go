package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"component-catalog-service/internal/domain"
)

// CircuitDropper is the write side of the breaker registry the source
// service needs: forgetting a source's circuit when it changes.
type CircuitDropper interface {
	Drop(sourceID string)
}

// SourceService handles admin management of sources. Every mutation
// invalidates the source's cached data and resets its circuit and connection
// state, so edits take effect on the next load instead of after a TTL.
type SourceService struct {
	repo     domain.SourceRepository
	cache    domain.Cache
	circuits CircuitDropper
	tracker  *ConnectionTracker
	logger   *zap.Logger
}

// NewSourceService creates a new SourceService.
func NewSourceService(
	repo domain.SourceRepository,
	cache domain.Cache,
	circuits CircuitDropper,
	tracker *ConnectionTracker,
	logger *zap.Logger,
) *SourceService {
	return &SourceService{
		repo:     repo,
		cache:    cache,
		circuits: circuits,
		tracker:  tracker,
		logger:   logger,
	}
}

// List returns all configured sources, inactive ones included.
func (s *SourceService) List(ctx context.Context) ([]*domain.Source, error) {
	return s.repo.List(ctx, false)
}

// GetByID retrieves a single source.
func (s *SourceService) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	return s.repo.GetByID(ctx, id)
}

// Create persists a new source.
func (s *SourceService) Create(ctx context.Context, source *domain.Source) error {
	if err := s.repo.Create(ctx, source); err != nil {
		s.logger.Error("creating source failed", zap.String("name", source.Name), zap.Error(err))
		return err
	}

	s.logger.Info("source created",
		zap.String("source_id", source.ID),
		zap.String("name", source.Name),
		zap.String("tier", string(source.AccessTier)),
	)

	return nil
}

// Update persists changes to a source and invalidates everything derived
// from its old configuration.
func (s *SourceService) Update(ctx context.Context, source *domain.Source) error {
	source.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, source); err != nil {
		s.logger.Error("updating source failed", zap.String("source_id", source.ID), zap.Error(err))
		return err
	}

	s.invalidate(ctx, source.ID)
	s.logger.Info("source updated", zap.String("source_id", source.ID), zap.String("name", source.Name))

	return nil
}

// Delete removes a source and all its derived state.
func (s *SourceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("deleting source failed", zap.String("source_id", id), zap.Error(err))
		return err
	}

	s.invalidate(ctx, id)
	s.logger.Info("source deleted", zap.String("source_id", id))

	return nil
}

// Retry clears a source's exhausted-retry lock so the next catalog load
// attempts it again.
func (s *SourceService) Retry(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	s.circuits.Drop(id)
	s.tracker.Retry(id)

	return nil
}

// invalidate drops the source's cached listings and taxonomy plus its
// circuit and connection bookkeeping.
func (s *SourceService) invalidate(ctx context.Context, id string) {
	if err := s.cache.DeletePrefix(ctx, domain.ListingKeyPrefixFor(id)); err != nil {
		s.logger.Warn("invalidating listings failed", zap.String("source_id", id), zap.Error(err))
	}
	if err := s.cache.Delete(ctx, domain.CategoryCacheKey(id)); err != nil {
		s.logger.Warn("invalidating taxonomy failed", zap.String("source_id", id), zap.Error(err))
	}
	s.circuits.Drop(id)
	s.tracker.Forget(id)
}
