package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/indexer-coordinator/engine/internal/models"
)

// Models returns every model the coordinator stores.
func Models() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Payg{},
	}
}

// Migrate creates or updates the tables for every stored model, then applies the
// schema changes AutoMigrate can't express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, m := range postgresMigrations {
		if err := m(db); err != nil {
			return err
		}
	}
	return nil
}

var postgresMigrations = []func(*gorm.DB) error{
	indexServiceEndpoints,
}

// indexServiceEndpoints lets operators look projects up by the services they expose.
func indexServiceEndpoints(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_service_endpoints
		ON projects USING GIN (service_endpoints jsonb_path_ops)
	`).Error
}
