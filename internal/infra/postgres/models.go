package postgres

import (
	"time"

	"component-catalog-service/internal/domain"

	"github.com/lib/pq"
)

// SourceModel is the GORM model for the sources table.
type SourceModel struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string         `gorm:"type:varchar(200);not null"`
	BaseURL        string         `gorm:"type:varchar(500);not null;index:idx_sources_url_collection,unique"`
	CollectionType string         `gorm:"type:varchar(100);not null;index:idx_sources_url_collection,unique"`
	PreviewField   string         `gorm:"type:varchar(100)"`
	AccessTier     string         `gorm:"type:varchar(10);not null;default:'free';index"`
	AuthUsername   string         `gorm:"type:varchar(200)"`
	AuthPassword   string         `gorm:"type:varchar(200)"`
	Tags           pq.StringArray `gorm:"type:text[]"`
	IsActive       bool           `gorm:"default:true;index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for SourceModel.
func (SourceModel) TableName() string {
	return "sources"
}

// ToDomain converts SourceModel to domain.Source.
func (m *SourceModel) ToDomain() *domain.Source {
	src := &domain.Source{
		ID:             m.ID,
		Name:           m.Name,
		BaseURL:        m.BaseURL,
		CollectionType: m.CollectionType,
		PreviewField:   m.PreviewField,
		AccessTier:     domain.AccessTier(m.AccessTier),
		Tags:           m.Tags,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.AuthUsername != "" {
		src.Credentials = &domain.Credentials{
			Username:    m.AuthUsername,
			AppPassword: m.AuthPassword,
		}
	}

	return src
}

// FromDomain creates a SourceModel from domain.Source.
func FromDomain(s *domain.Source) *SourceModel {
	m := &SourceModel{
		ID:             s.ID,
		Name:           s.Name,
		BaseURL:        s.BaseURL,
		CollectionType: s.CollectionType,
		PreviewField:   s.PreviewField,
		AccessTier:     string(s.AccessTier),
		Tags:           s.Tags,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.Credentials != nil {
		m.AuthUsername = s.Credentials.Username
		m.AuthPassword = s.Credentials.AppPassword
	}

	return m
}
