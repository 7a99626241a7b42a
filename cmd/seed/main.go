// Command seed provisions a development API key for a user and prints
// the full token once.
//
// Usage: go run ./cmd/seed -user dev-user-1 -tier startup
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/inferly/content-tags/config"
	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/model"
	"github.com/inferly/content-tags/services"
)

func main() {
	userID := flag.String("user", "", "user id to provision a key for")
	tierName := flag.String("tier", "free", "plan tier (free, startup, growth, scale)")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}
	tier := model.Tier(*tierName)
	if !tier.IsValid() {
		log.Fatalf("unknown tier %q", *tierName)
	}

	if err := config.LoadENV(); err != nil {
		log.Fatal("failed to load environment:", err)
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("failed to run migrations:", err)
	}

	key, err := services.NewKeyService(store.DB()).CreateKey(context.Background(), *userID, tier)
	if err != nil {
		log.Fatal("failed to create key:", err)
	}

	fmt.Printf("user:    %s\n", key.UserID)
	fmt.Printf("tier:    %s\n", key.Tier)
	fmt.Printf("api key: %s\n", key.Token)
}
