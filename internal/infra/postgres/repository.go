package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"component-catalog-service/internal/domain"
)

// Repository implements domain.SourceRepository using PostgreSQL.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns all sources in creation order. The order is part of the
// contract: catalog results merge by it.
func (r *Repository) List(ctx context.Context, onlyActive bool) ([]*domain.Source, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}

	var models []SourceModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	sources := make([]*domain.Source, len(models))
	for i := range models {
		sources[i] = models[i].ToDomain()
	}

	return sources, nil
}

// GetByID retrieves a single source by its internal ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var model SourceModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSourceNotFound
		}

		return nil, fmt.Errorf("getting source by id: %w", err)
	}

	return model.ToDomain(), nil
}

// Create persists a new source.
func (r *Repository) Create(ctx context.Context, source *domain.Source) error {
	model := FromDomain(source)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("creating source: %w", err)
	}

	// Carry back database-generated fields
	source.ID = model.ID
	source.CreatedAt = model.CreatedAt
	source.UpdatedAt = model.UpdatedAt

	return nil
}

// Update persists changes to an existing source. All columns are written,
// so clearing credentials or tags sticks.
func (r *Repository) Update(ctx context.Context, source *domain.Source) error {
	model := FromDomain(source)

	result := r.db.WithContext(ctx).Model(&SourceModel{}).
		Where("id = ?", model.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("updating source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrSourceNotFound
	}

	return nil
}

// Delete removes a source by its internal ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&SourceModel{})
	if result.Error != nil {
		return fmt.Errorf("deleting source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrSourceNotFound
	}

	return nil
}
