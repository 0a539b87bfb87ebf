package service

import (
	"fmt"

	"cleaning-duty/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates the duty tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Tables lists the table names watched by the change feed.
func Tables() []string {
	return []string{"departments", "cleaning_areas", "cleaning_tasks", "schedules", "completions", "members"}
}
