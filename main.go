package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/cache"
	"github.com/serverdex/serverdex-engine/pkg/config"
	"github.com/serverdex/serverdex-engine/pkg/database"
	"github.com/serverdex/serverdex-engine/pkg/handlers"
	"github.com/serverdex/serverdex-engine/pkg/middleware"
	"github.com/serverdex/serverdex-engine/pkg/ratelimit"
	"github.com/serverdex/serverdex-engine/pkg/repositories"
	"github.com/serverdex/serverdex-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// Migrations run over database/sql; the app itself uses pgxpool.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database for migrations", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = sqlDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: without it the cache misses everything and the
	// rate limiter counts locally.
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, running degraded (no cache, local rate limits)", zap.Error(err))
		redisClient = nil
	}

	viewCache := cache.New(redisClient, logger)
	limiter := ratelimit.New(redisClient, ratelimit.SystemClock(),
		time.Duration(cfg.RateLimit.LocalGCIntervalSecs)*time.Second, logger)

	serverRepo := repositories.NewServerRepository(db)
	ratingRepo := repositories.NewRatingRepository(db)

	aggregates := services.NewAggregateService(serverRepo, ratingRepo, logger)
	ranking := services.NewRankingService(serverRepo, logger)
	categories := services.NewCategoryService(serverRepo, logger)
	ratings := services.NewRatingService(ratingRepo, aggregates, viewCache, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	serversHandler := handlers.NewServersHandler(cfg, ranking, categories, viewCache, logger)
	anonList := middleware.IPRateLimit(limiter, "anon-list", cfg.RateLimit.AnonListPerMinute, time.Minute)
	mux.Handle("GET /api/servers", anonList(http.HandlerFunc(serversHandler.List)))

	ratingsHandler := handlers.NewRatingsHandler(cfg, ratings, limiter, logger)
	ratingsHandler.RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)
	addr := cfg.BindAddr + ":" + cfg.Port

	logger.Info("Starting serverdex-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
