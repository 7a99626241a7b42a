// migrate_gorm.go - Run this file to apply GORM migrations standalone
// Usage: go run migrate_gorm.go

//go:build ignore

package main

import (
	"log"

	"github.com/inferly/content-tags/config"
	"github.com/inferly/content-tags/database"
)

func main() {
	if err := config.LoadENV(); err != nil {
		log.Fatal("Failed to load environment variables:", err)
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if err := store.HealthCheck(); err != nil {
		log.Fatal("Database health check failed:", err)
	}

	log.Println("All migrations completed successfully")
}
