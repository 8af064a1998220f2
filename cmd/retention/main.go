package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanmandinski/aisearch-sub002/internal/adapters/cache"
	"github.com/ivanmandinski/aisearch-sub002/internal/adapters/database"
	"github.com/ivanmandinski/aisearch-sub002/internal/application/services"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/postgres"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/redis"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
	"github.com/ivanmandinski/aisearch-sub002/pkg/config"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-retention", cfg.Env)

	var days int
	var skipCTR bool
	flag.IntVar(&days, "days", cfg.Analytics.RetentionDays, "Delete analytics rows older than this many days")
	flag.BoolVar(&skipCTR, "skip-ctr", false, "Only clean up search events")
	flag.Parse()

	// Setup DB
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	// Cached rollups live in Redis; the in-process cache belongs to the API.
	var cacheProvider providers.CacheProvider
	if cfg.Redis.Enabled && cfg.Analytics.CacheEnabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, cached rollups will expire on their own")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
		}
	}

	analyticsCfg := services.DefaultAnalyticsConfig()
	analyticsCfg.CacheEnabled = cacheProvider != nil
	analyticsService := services.NewSearchAnalyticsService(
		database.NewSearchEventAdapter(pgClient), nil, cacheProvider, analyticsCfg, nil,
	)

	ctrCfg := services.DefaultCTRConfig()
	ctrCfg.CacheEnabled = cacheProvider != nil
	ctrService := services.NewCTRService(database.NewCTRAdapter(pgClient), cacheProvider, ctrCfg, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	log.Info().Int("days", days).Msg("Starting retention cleanup")

	deleted, err := analyticsService.RetentionCleanup(ctx, days)
	if err != nil {
		log.Fatal().Err(err).Msg("Search event cleanup failed")
	}
	log.Info().Int64("deleted", deleted).Msg("Search events cleaned up")

	if !skipCTR {
		deleted, err = ctrService.RetentionCleanup(ctx, days)
		if err != nil {
			log.Fatal().Err(err).Msg("CTR cleanup failed")
		}
		log.Info().Int64("deleted", deleted).Msg("CTR rows cleaned up")
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Retention cleanup complete")
}
