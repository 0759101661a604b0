package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/ignite/contact-mailer/internal/config"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
	"github.com/ignite/contact-mailer/internal/repository/postgres"
)

func main() {
	configPath := "config/config.yaml"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			configPath = a
		}
	}

	if listOnly {
		files, err := postgres.Migrations()
		if err != nil {
			logger.Error("list migrations failed", "error", err)
			os.Exit(1)
		}
		for _, f := range files {
			fmt.Println(" ", f)
		}
		fmt.Printf("Total: %d migrations\n", len(files))
		return
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Store.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Store.DatabaseURL)
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout()*6)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("ping failed", "error", err)
		os.Exit(1)
	}

	n, err := postgres.Migrate(ctx, db)
	if err != nil {
		logger.Error("migration failed", "applied", n, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete", "applied", n)
}
