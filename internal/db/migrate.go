package db

import (
	"fmt"

	"github.com/vkarpenko/shoptalk/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Client{},
		&models.Chat{},
		&models.Message{},
		&models.Order{},
		&models.Return{},
		&models.Escalation{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
