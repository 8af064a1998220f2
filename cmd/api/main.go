package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ivanmandinski/aisearch-sub002/internal/adapters/cache"
	"github.com/ivanmandinski/aisearch-sub002/internal/adapters/database"
	"github.com/ivanmandinski/aisearch-sub002/internal/adapters/search"
	"github.com/ivanmandinski/aisearch-sub002/internal/api/handlers"
	"github.com/ivanmandinski/aisearch-sub002/internal/api/routes"
	"github.com/ivanmandinski/aisearch-sub002/internal/application/services"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/postgres"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/redis"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/searchapi"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/typesense"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
	"github.com/ivanmandinski/aisearch-sub002/pkg/config"
)

const memoryCacheSize = 2048

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Search backend
	searchProvider, err := newSearchProvider(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.SearchAPI.Backend).Msg("Failed to initialize search backend")
	}

	// Analytics
	var (
		recorder         services.SearchRecorder
		analyticsHandler *handlers.AnalyticsHandler
	)
	if cfg.Analytics.Enabled {
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		cacheProvider := newCacheProvider(cfg)
		if closer, ok := cacheProvider.(interface{ Close() error }); ok {
			defer closer.Close()
		}

		analyticsService := services.NewSearchAnalyticsService(
			database.NewSearchEventAdapter(pgClient),
			services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), nil),
			cacheProvider,
			services.AnalyticsConfig{
				CacheEnabled:   cfg.Analytics.CacheEnabled,
				AggregateTTL:   cfg.Analytics.AggregateTTL,
				RecentTTL:      cfg.Analytics.RecentTTL,
				TopQueries:     services.DefaultAnalyticsConfig().TopQueries,
				BreakdownLimit: services.DefaultAnalyticsConfig().BreakdownLimit,
			},
			metrics,
		)
		ctrCfg := services.DefaultCTRConfig()
		ctrCfg.CacheEnabled = cfg.Analytics.CacheEnabled
		ctrCfg.AggregateTTL = cfg.Analytics.AggregateTTL
		ctrCfg.ClickWindow = cfg.Analytics.ClickWindow
		ctrService := services.NewCTRService(database.NewCTRAdapter(pgClient), cacheProvider, ctrCfg, metrics)

		recorder = analyticsService
		analyticsHandler = handlers.NewAnalyticsHandler(analyticsService, ctrService, cfg.Server.SessionCookie)
	} else {
		log.Info().Msg("Search analytics disabled")
	}

	searchService := services.NewSearchService(searchProvider, recorder, services.SearchServiceConfig{
		Ranking: services.RankingConfig{
			PriorityOrder:      cfg.Search.PriorityOrder,
			ProtectedCount:     cfg.Search.ProtectedCount,
			RelevanceThreshold: cfg.Search.RelevanceThreshold,
		},
		Intent: services.IntentKeywords{
			Navigational:  cfg.Search.NavigationalKeywords,
			Transactional: cfg.Search.TransactionalKeywords,
		},
		Pagination: services.PaginationConfig{
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
		},
		CandidateLimit:  cfg.Search.CandidateLimit,
		UpstreamTimeout: cfg.SearchAPI.Timeout,
		AIInstructions:  cfg.SearchAPI.AIInstructions,
	}, metrics)

	router := routes.NewRouter(
		handlers.NewSearchHandler(searchService, cfg.Server.SessionCookie),
		analyticsHandler,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SearchAPI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}

// newSearchProvider builds the configured upstream search backend.
func newSearchProvider(ctx context.Context, cfg *config.Config) (providers.SearchProvider, error) {
	switch cfg.SearchAPI.Backend {
	case "typesense":
		client, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			return nil, err
		}
		if err := client.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
		}
		log.Info().Str("collection", client.Collection()).Msg("Using Typesense search backend")
		return search.NewTypesenseAdapter(client, cfg.Typesense.QueryBy), nil
	default:
		client := searchapi.NewClient(searchapi.Config{
			BaseURL: cfg.SearchAPI.BaseURL,
			APIKey:  cfg.SearchAPI.APIKey,
			Timeout: cfg.SearchAPI.Timeout,
		})
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Health(healthCtx); err != nil {
			// The breaker sheds load until the service recovers.
			log.Warn().Err(err).Str("url", cfg.SearchAPI.BaseURL).Msg("Search API health check failed")
		}
		log.Info().Str("url", cfg.SearchAPI.BaseURL).Msg("Using hosted search API backend")
		return search.NewHTTPSearchAdapter(client), nil
	}
}

// newCacheProvider returns Redis when reachable and an in-process LRU otherwise.
func newCacheProvider(cfg *config.Config) providers.CacheProvider {
	if !cfg.Analytics.CacheEnabled {
		return nil
	}
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err == nil {
			return &closingCache{CacheProvider: cache.NewRedisAdapter(redisClient), closer: redisClient}
		}
		log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
	}
	return cache.NewMemoryAdapter(memoryCacheSize)
}

// closingCache releases the Redis connection on shutdown.
type closingCache struct {
	providers.CacheProvider
	closer interface{ Close() error }
}

func (c *closingCache) Close() error {
	return c.closer.Close()
}
