package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/catalog"
	"github.com/tessellate-ai/analyst-engine/pkg/config"
	"github.com/tessellate-ai/analyst-engine/pkg/datasource"
	"github.com/tessellate-ai/analyst-engine/pkg/handlers"
	"github.com/tessellate-ai/analyst-engine/pkg/ingest"
	"github.com/tessellate-ai/analyst-engine/pkg/llm"
	"github.com/tessellate-ai/analyst-engine/pkg/logging"
	"github.com/tessellate-ai/analyst-engine/pkg/services"
	"github.com/tessellate-ai/analyst-engine/pkg/vectorstore"

	// Dialect adapters register themselves.
	_ "github.com/tessellate-ai/analyst-engine/pkg/datasource/mysql"
	_ "github.com/tessellate-ai/analyst-engine/pkg/datasource/postgres"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("addr", cfg.Addr()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("durable_catalog", cfg.Catalog.Enabled()))

	completer, embedder, err := llm.NewClients(&llm.FactoryConfig{
		Provider:        cfg.LLM.Provider,
		Endpoint:        cfg.LLM.Endpoint,
		Model:           cfg.LLM.Model,
		APIKey:          cfg.LLM.APIKey,
		EmbeddingModel:  cfg.LLM.EmbeddingModel,
		AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
		AnthropicModel:  cfg.LLM.AnthropicModel,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create model clients", zap.Error(err))
	}

	var store vectorstore.Store
	if cfg.Vectors.Dir != "" {
		persistent, err := vectorstore.NewPersistent(cfg.Vectors.Dir, logger)
		if err != nil {
			logger.Fatal("failed to open vector store", zap.Error(err))
		}
		store = persistent
	} else {
		store = vectorstore.NewInMemory(logger)
	}

	// The catalog degrades to cache-only when the durable store is down, so
	// startup never blocks on Postgres.
	var durable catalog.Store
	var pool *pgxpool.Pool
	if cfg.Catalog.Enabled() {
		pool, err = pgxpool.New(context.Background(), cfg.Catalog.DSN())
		if err != nil {
			logger.Warn("invalid catalog database config, running cache-only", zap.Error(err))
		} else {
			pg := catalog.NewPostgresStore(pool)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.Warn("catalog schema bootstrap failed, continuing", zap.Error(err))
			}
			cancel()
			durable = pg
		}
	}
	cat := catalog.New(durable, logger)

	registry := datasource.NewRegistry(cat, logger)
	defer registry.CloseAll()

	processor := ingest.NewProcessor(embedder, store, cat, cfg.Ingest.ChunkSize, logger)
	retrieval := services.NewRetrievalAgent(completer, embedder, store, logger)
	sqlAgent := services.NewSQLAgent(completer, registry, logger)

	reports, err := services.NewReportWriter(cfg.Reports.Dir, logger)
	if err != nil {
		logger.Fatal("failed to prepare reports directory", zap.Error(err))
	}
	orchestrator := services.NewOrchestrator(completer, cat, retrieval, sqlAgent, reports, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDatasetHandler(processor, retrieval, logger).RegisterRoutes(mux)
	handlers.NewSQLHandler(registry, cat, sqlAgent, logger).RegisterRoutes(mux)
	handlers.NewUnifiedHandler(orchestrator, cat, logger).RegisterRoutes(mux)
	handlers.NewReportsHandler(reports, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting analyst-engine",
			zap.String("addr", cfg.Addr()),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if pool != nil {
		pool.Close()
	}
}
