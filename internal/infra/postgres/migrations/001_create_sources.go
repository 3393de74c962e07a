package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createSourcesTable creates the sources table with its indexes.
func createSourcesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_sources",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS sources (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					name VARCHAR(200) NOT NULL,
					base_url VARCHAR(500) NOT NULL,
					collection_type VARCHAR(100) NOT NULL,
					preview_field VARCHAR(100),
					access_tier VARCHAR(10) NOT NULL DEFAULT 'free',
					auth_username VARCHAR(200),
					auth_password VARCHAR(200),
					tags TEXT[],
					is_active BOOLEAN DEFAULT TRUE,

					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

					-- One connection per remote collection
					CONSTRAINT uq_sources_url_collection UNIQUE (base_url, collection_type)
				);
			`).Error
			if err != nil {
				return err
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_sources_access_tier ON sources(access_tier);",
				"CREATE INDEX IF NOT EXISTS idx_sources_is_active ON sources(is_active);",
				"CREATE INDEX IF NOT EXISTS idx_sources_created_at ON sources(created_at);",
			}
			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS sources;").Error
		},
	}
}
