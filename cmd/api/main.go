package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/indexer-coordinator/engine/internal/api"
	"github.com/indexer-coordinator/engine/internal/api/handlers"
	"github.com/indexer-coordinator/engine/internal/api/middleware"
	"github.com/indexer-coordinator/engine/internal/metadata"
	"github.com/indexer-coordinator/engine/internal/queue/tasks"
	"github.com/indexer-coordinator/engine/internal/repository"
	"github.com/indexer-coordinator/engine/internal/services"
	"github.com/indexer-coordinator/engine/pkg/config"
	"github.com/indexer-coordinator/engine/pkg/database"
	"github.com/indexer-coordinator/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting indexer coordinator",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{
		Logger:     logger.Named("gorm"),
		Verbose:    cfg.IsDevelopment(),
		MaxRetries: 5,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("database connected successfully")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis not reachable at startup; metadata will be missing until it is", zap.Error(err))
	}

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer queue.Close()

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		if !cfg.IsDevelopment() {
			log.Fatal("JWT_SECRET is required outside development")
		}
		log.Warn("JWT_SECRET not set, using development default")
		jwtSecret = []byte("change-me-in-production-please")
	}

	projectRepo := repository.NewProjectRepository(db)
	paygRepo := repository.NewPaygRepository(db)
	cache := metadata.NewRedisCache(rdb, cfg.MetadataCacheTTL)
	refresher := tasks.NewRefreshEnqueuer(queue, cfg.MetadataRefreshInterval)

	projectSvc := services.NewProjectService(projectRepo, paygRepo, cache, refresher)
	paygSvc := services.NewPaygService(paygRepo)

	limiter := middleware.NewIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.GC(ctx, 5*time.Minute, 10*time.Minute)

	router := api.NewRouter(api.Dependencies{
		HMACSecret:     jwtSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Limiter:        limiter,
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.Check{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		ProjectsHandler: handlers.NewProjectsHandler(projectSvc),
		PaygHandler:     handlers.NewPaygHandler(paygSvc),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
