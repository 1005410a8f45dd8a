package main

import (
	"log"
	"os"

	"ai-context-engine/internal/model"
	"ai-context-engine/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models (The Core Task)
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.Document{},
		&model.ChatSession{},
		&model.ConversationTurn{},
		&model.ProviderAccount{},
		&model.ServiceKey{},
	}

	// Migrate strictly
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Retrieval Indexes
	// GORM knows nothing about pgvector access methods or tsvector
	// expressions, so the two indexes hybrid search leans on are raw SQL.
	// The GIN expression must match the one HybridSearch queries with,
	// otherwise postgres falls back to a sequential scan.
	log.Println("Step 3: Creating Retrieval Indexes...")

	postMigrationSQL := []string{
		// HNSW over cosine distance for the <=> operator.
		`CREATE INDEX IF NOT EXISTS idx_documents_embedding_hnsw
		 ON documents USING hnsw (embedding vector_cosine_ops);`,

		// Full-text rank over title + content.
		`CREATE INDEX IF NOT EXISTS idx_documents_fts
		 ON documents USING gin (to_tsvector('english', coalesce(title, '') || ' ' || content));`,

		// One source re-indexes as a delete + bulk insert; this keeps the
		// delete cheap.
		`CREATE INDEX IF NOT EXISTS idx_documents_owner_source
		 ON documents (owner_id, source_id);`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
