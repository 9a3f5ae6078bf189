package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samirrijal/hiitroute/internal/adapters/postgres"
	"github.com/samirrijal/hiitroute/internal/pkg/config"
	"github.com/samirrijal/hiitroute/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("hiitroute-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		applied, err := postgres.Migrate(ctx, db, migrations.FS)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		for _, v := range applied {
			fmt.Printf("OK  %s\n", v)
		}
		log.Printf("%d migration(s) applied", len(applied))
	case "down":
		version, err := postgres.Rollback(ctx, db, migrations.FS)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		if version == "" {
			log.Println("nothing to roll back")
			return
		}
		fmt.Printf("REVERTED  %s\n", version)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
