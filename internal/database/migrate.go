package database

import (
	"fmt"

	"cryptodash/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the chat tables
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(&models.ChatMessage{}); err != nil {
		log.Error("Failed to auto-migrate", zap.Error(err))
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	log.Info("Database migration completed")
	return nil
}
