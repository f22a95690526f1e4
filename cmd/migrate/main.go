package main

import (
	"context"
	"log"

	"docchat-be/internal/config"
	"docchat-be/internal/model"
	"docchat-be/pkg/database"
	"docchat-be/pkg/vectorindex/pgvector"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.IsProduction())
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Pre-Migration: Extensions (things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. Document and session tables
	log.Println("Step 2: Running AutoMigrate for document store...")
	if err := database.AutoMigrate(db, &model.Document{}, &model.ChatSession{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Vector tables, only used with VECTOR_BACKEND=pgvector
	if cfg.Vector.Backend == "pgvector" {
		log.Println("Step 3: Migrating pgvector tables...")
		if err := pgvector.NewIndex(db).Migrate(context.Background()); err != nil {
			log.Fatalf("Error: pgvector migration failed: %v", err)
		}
	}

	log.Println("Success: Database migration completed successfully via GORM.")
}
