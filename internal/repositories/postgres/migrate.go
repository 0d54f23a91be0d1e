package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

// AutoMigrate creates or updates the tables of every persisted model
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
