package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"chamberhub/campaigns/internal/config"
	"chamberhub/campaigns/internal/db"
	"chamberhub/campaigns/internal/db/repositories"
)

// Issues an integration key for a chamber: api_key_gen <chamber-id>
func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <chamber-id>", os.Args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := db.InitPostgres(cfg.Postgres.DSN()); err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.DB.Close()

	key, err := repositories.NewApiKeysRepo(db.DB).Insert(context.Background(), os.Args[1])
	if err != nil {
		log.Fatalf("insert api key: %v", err)
	}

	fmt.Println("New API Key:", key)
}
