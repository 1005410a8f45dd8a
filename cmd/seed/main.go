package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"

	"ai-context-engine/internal/model"
	"ai-context-engine/pkg/database"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Mints a service key for an ingestion bridge and prints the raw key once.
// Only the bcrypt hash is stored; a lost key means minting a new one.
func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	keyName := os.Getenv("SERVICE_KEY_NAME")
	if keyName == "" {
		keyName = "local-bridge"
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Printf("Minting service key '%s'...", keyName)

	// Refuse to overwrite an active key with the same name
	var existing model.ServiceKey
	if err := db.Where("name = ? AND revoked_at IS NULL", keyName).First(&existing).Error; err == nil {
		log.Fatalf("Error: An active key named '%s' already exists. Revoke it first or pick another SERVICE_KEY_NAME.", keyName)
	}

	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		log.Fatalf("Error: Failed to generate key material: %v", err)
	}
	rawKey := hex.EncodeToString(rawBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Error: Failed to hash key: %v", err)
	}

	key := model.ServiceKey{
		Name:    keyName,
		KeyHash: string(hash),
	}
	if err := db.Create(&key).Error; err != nil {
		log.Fatalf("Error: Failed to store key: %v", err)
	}

	log.Printf("Created service key: %s (%s)", key.Name, key.Id)
	log.Println("Raw key (shown once, store it in the bridge's X-Service-Key):")
	log.Println(rawKey)
}
