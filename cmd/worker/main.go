package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/indexer-coordinator/engine/internal/metadata"
	"github.com/indexer-coordinator/engine/internal/queue/tasks"
	"github.com/indexer-coordinator/engine/internal/repository"
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Logger:      logger.Named("asynq").Sugar(),
	})

	// Initialize DB and repositories for task handlers
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{
		Logger:     logger.Named("gorm"),
		Verbose:    cfg.IsDevelopment(),
		MaxRetries: 5,
	})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	client := asynq.NewClient(redisOpt)
	defer client.Close()

	handler := tasks.NewMetadataTaskHandler(
		repository.NewProjectRepository(db),
		metadata.NewHTTPFetcher(cfg.MetadataHTTPTimeout, 2, logger.Named("fetcher")),
		metadata.NewRedisCache(rdb, cfg.MetadataCacheTTL),
		tasks.NewRefreshEnqueuer(client, cfg.MetadataRefreshInterval),
	)
	mux := asynq.NewServeMux()
	handler.Register(mux)

	// The scheduler only enqueues the fan-out; refreshes run on the server above.
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: logger.Named("scheduler").Sugar(),
	})
	every := "@every " + cfg.MetadataRefreshInterval.String()
	if _, err := scheduler.Register(every, tasks.NewRefreshAllMetadataTask(), asynq.Unique(cfg.MetadataRefreshInterval)); err != nil {
		log.Fatal("register metadata schedule failed", zap.Error(err))
	}

	logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
	if err := srv.Start(mux); err != nil {
		log.Fatal("start worker failed", zap.Error(err))
	}
	logger.L().Info("metadata scheduler starting", zap.String("every", every))
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		log.Fatal("start scheduler failed", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
}
