package main

import (
	"log"

	"helpdesk-be/internal/config"
	"helpdesk-be/internal/model"
	"helpdesk-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Running AutoMigrate...")
	if err := db.AutoMigrate(&model.Document{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// The operator list filters chats by status on every snapshot.
	log.Println("Step 2: Creating indexes...")
	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_documents_collection_status ON documents (collection, (data->>'status'));`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection_created ON documents (collection, created_at DESC);`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed.")
}
