// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"jobsearch-api/internal/ai"
	"jobsearch-api/internal/api"
	"jobsearch-api/internal/audit"
	"jobsearch-api/internal/clients/francetravail"
	"jobsearch-api/internal/clients/geoapi"
	"jobsearch-api/internal/common/config"
	"jobsearch-api/internal/common/database"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/common/observability"
	"jobsearch-api/internal/history"
	"jobsearch-api/internal/models"
	"jobsearch-api/internal/search"
	"jobsearch-api/internal/users"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// instrumentedSearcher layers the otel counters over the orchestrator.
type instrumentedSearcher struct {
	inner *search.Orchestrator
	obs   *observability.Observability
}

func (s *instrumentedSearcher) SmartSearch(ctx context.Context, user *models.User, query string) ([]models.Listing, error) {
	start := time.Now()
	listings, err := s.inner.SmartSearch(ctx, user, query)

	status := "success"
	if err != nil {
		status = "failed"
	}
	s.obs.RecordSearchProcessed(ctx, status)
	s.obs.RecordSearchDuration(ctx, time.Since(start), status)

	return listings, err
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting api server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- External API clients ---
	geoClient := geoapi.NewClient(
		cfg.APIs.Geo.BaseURL,
		time.Duration(cfg.APIs.Geo.Timeout)*time.Millisecond,
		log,
	)

	providerClient := francetravail.NewClient(&francetravail.Config{
		BaseURL:      cfg.APIs.FranceTravail.BaseURL,
		TokenURL:     cfg.APIs.FranceTravail.TokenURL,
		ClientID:     cfg.APIs.FranceTravail.ClientID,
		ClientSecret: cfg.APIs.FranceTravail.ClientSecret,
		Timeout:      time.Duration(cfg.APIs.FranceTravail.Timeout) * time.Millisecond,
	}, log)

	expander, err := ai.NewLLMExpander(&ai.ExpanderConfig{
		BaseURL: cfg.APIs.GenAI.BaseURL,
		APIKey:  cfg.APIs.GenAI.APIKey,
		Model:   cfg.APIs.GenAI.Model,
		Timeout: time.Duration(cfg.APIs.GenAI.Timeout) * time.Millisecond,
	}, log)
	if err != nil {
		zapLog.Fatal("query expander init failed", zap.Error(err))
	}

	baseEmbedder, err := ai.NewOpenAIEmbedder(&ai.EmbedderConfig{
		BaseURL: cfg.APIs.Embeddings.BaseURL,
		APIKey:  cfg.APIs.Embeddings.APIKey,
		Model:   cfg.APIs.Embeddings.Model,
	}, log)
	if err != nil {
		zapLog.Fatal("embedder init failed", zap.Error(err))
	}
	embedder := ai.NewCachedEmbedder(baseEmbedder, redisClient, cfg.APIs.Embeddings.Model, 0, log)

	// --- Stores and pipeline ---
	historyStore := history.NewStore(pg.GetDB(), log)
	userStore := users.NewStore(pg.GetDB(), log)
	searchLog := audit.NewSearchLog(esClient, cfg.Database.Elasticsearch.AuditIndex, log)

	orchestrator := search.NewOrchestrator(
		expander,
		search.NewResolver(geoClient, redisClient, log),
		search.NewDispatcher(
			providerClient,
			cfg.Search.MaxConcurrency,
			time.Duration(cfg.Search.PacingDelayMs)*time.Millisecond,
			log,
		),
		providerClient,
		search.NewRanker(embedder, cfg.Search.DescriptionLimit, log),
		historyStore,
		searchLog,
		log,
	)

	readyCheck := func(ctx context.Context) error {
		if err := pg.Ping(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}

	server := api.NewServer(
		api.Config{
			Addr:            cfg.Server.Address,
			ReadTimeout:     time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
			WriteTimeout:    time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
			ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Millisecond,
		},
		&instrumentedSearcher{inner: orchestrator, obs: obs},
		historyStore,
		userStore,
		readyCheck,
		log,
	)

	go func() {
		if err := server.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	zapLog.Info("api server started", zap.String("addr", cfg.Server.Address))

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
