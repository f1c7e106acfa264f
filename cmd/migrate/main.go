package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/indexer-coordinator/engine/pkg/config"
	"github.com/indexer-coordinator/engine/pkg/database"
	"github.com/indexer-coordinator/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.OpenPostgres(context.Background(), cfg.DatabaseURL, database.Options{
		Logger:     log,
		Verbose:    cfg.IsDevelopment(),
		MaxRetries: 5,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
