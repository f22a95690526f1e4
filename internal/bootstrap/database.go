package bootstrap

import (
	"fmt"

	"docchat-be/internal/config"
	"docchat-be/internal/model"
	"docchat-be/pkg/database"

	"gorm.io/gorm"
)

// OpenDatabase connects only when the store or the vector backend lives in
// postgres. It returns (nil, nil) otherwise.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.App.StoreBackend != "postgres" && cfg.Vector.Backend != "pgvector" {
		return nil, nil
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.App.StoreBackend == "postgres" {
		if err := database.AutoMigrate(db, &model.Document{}, &model.ChatSession{}); err != nil {
			return nil, fmt.Errorf("migrate tables: %w", err)
		}
	}
	return db, nil
}
