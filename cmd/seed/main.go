package main

import (
	"context"
	"flag"
	"log"

	"github.com/example/faithconnect/internal/config"
	"github.com/example/faithconnect/internal/database"
	"github.com/example/faithconnect/internal/repository"
	"github.com/example/faithconnect/internal/seed"
)

func main() {
	path := flag.String("file", "seed/campaigns.yaml", "campaign definitions to load")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	file, err := seed.Load(*path)
	if err != nil {
		log.Fatalf("failed to load seed file: %v", err)
	}

	db := database.Connect(cfg.Database)
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	result, err := seed.Apply(ctx, repository.NewCampaignRepository(db), file)
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Printf("[Seed] done: %d created, %d skipped", result.Created, result.Skipped)
}
