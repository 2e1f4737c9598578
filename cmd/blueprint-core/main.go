package main

// @title           Blueprint Core API
// @version         1.0
// @description     Retrieval-augmented question answering over construction project documents. Blueprint Core ingests drawings, reports and specifications and answers questions grounded in their content.

// @contact.name   Blueprint Core
// @contact.url    https://github.com/leohan123123/blueprint-core/issues

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/leohan123123/blueprint-core/internal/adapters/driven/ai"
	"github.com/leohan123123/blueprint-core/internal/adapters/driven/memstore"
	"github.com/leohan123123/blueprint-core/internal/adapters/driven/postgres"
	redisadapter "github.com/leohan123123/blueprint-core/internal/adapters/driven/redis"
	"github.com/leohan123123/blueprint-core/internal/adapters/driven/vector/memory"
	"github.com/leohan123123/blueprint-core/internal/adapters/driven/vector/pinecone"
	"github.com/leohan123123/blueprint-core/internal/adapters/driving/http"
	"github.com/leohan123123/blueprint-core/internal/config"
	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
	"github.com/leohan123123/blueprint-core/internal/core/services"
	"github.com/leohan123123/blueprint-core/internal/runtime"
)

var version = "dev"

func main() {
	// Local development secrets live in .env; absence is fine
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("blueprint-core starting",
		"version", version,
		"vector_backend", cfg.Vector.Backend,
		"session_backend", cfg.Session.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("blueprint-core exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("blueprint-core stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dimensions := cfg.Embedding.Dimensions

	index, newIndex, cleanup, err := buildVectorIndex(ctx, cfg, dimensions, logger)
	if err != nil {
		return fmt.Errorf("failed to set up vector index: %w", err)
	}
	defer cleanup()

	conversations, err := buildConversationStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up session store: %w", err)
	}
	defer conversations.Close()

	runtimeConfig := domain.NewRuntimeConfig(cfg.Vector.Backend, cfg.Session.Backend)

	engine := runtime.NewServices(runtime.Config{
		RuntimeConfig: runtimeConfig,
		Factory:       ai.NewFactory(),
		NewIndex:      newIndex,
		Logger:        logger,
	})
	if err := engine.Bootstrap(cfg.AISettings(), index); err != nil {
		return fmt.Errorf("failed to bootstrap AI runtime: %w", err)
	}
	defer engine.Close()

	ingestService := services.NewIngestService(services.IngestConfig{
		Services:     engine,
		MaxChunkSize: cfg.Ingest.MaxChunkSize,
		PoolSize:     cfg.Ingest.PoolSize,
		Logger:       logger,
	})
	answerService := services.NewAnswerService(services.AnswerConfig{
		Services: engine,
		Logger:   logger,
	})
	knowledgeService := services.NewKnowledgeService(engine, logger)
	settingsService := services.NewSettingsService(engine, logger)

	server := http.NewServer(http.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}, ingestService, answerService, knowledgeService, settingsService, conversations, runtimeConfig)

	return server.Start(ctx)
}

// buildVectorIndex selects the vector backend from configuration. The
// returned rebuild function is nil for Pinecone because its index
// dimension is fixed at creation time; changing the embedding dimension
// there is an operator action, not something the engine can do.
func buildVectorIndex(ctx context.Context, cfg *config.Config, dimensions int, logger *slog.Logger) (driven.VectorIndex, func(context.Context, int) (driven.VectorIndex, error), func(), error) {
	noop := func() {}

	switch cfg.Vector.Backend {
	case "memory":
		index := memory.NewIndex(memory.Config{Dimensions: dimensions, Logger: logger})
		rebuild := func(_ context.Context, dims int) (driven.VectorIndex, error) {
			return memory.NewIndex(memory.Config{Dimensions: dims, Logger: logger}), nil
		}
		logger.Info("using in-memory vector index", "dimensions", dimensions)
		return index, rebuild, noop, nil

	case "pinecone":
		index, err := pinecone.NewIndex(pinecone.Config{
			BaseURL:    cfg.Vector.Pinecone.BaseURL,
			APIKey:     cfg.Vector.Pinecone.APIKey,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		logger.Info("using Pinecone vector index", "dimensions", dimensions)
		return index, nil, noop, nil

	case "postgres":
		pgCfg := postgres.DefaultConfig(cfg.Vector.Postgres.URL)
		if cfg.Vector.Postgres.MaxOpenConns > 0 {
			pgCfg.MaxOpenConns = cfg.Vector.Postgres.MaxOpenConns
		}
		if cfg.Vector.Postgres.MaxIdleConns > 0 {
			pgCfg.MaxIdleConns = cfg.Vector.Postgres.MaxIdleConns
		}
		db, err := postgres.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, noop, err
		}
		if err := db.InitSchema(ctx, dimensions); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("failed to initialise schema: %w", err)
		}
		index := postgres.NewVectorIndex(db, postgres.VectorIndexConfig{Dimensions: dimensions, Logger: logger})
		rebuild := func(ctx context.Context, dims int) (driven.VectorIndex, error) {
			if err := db.RebuildSchema(ctx, dims); err != nil {
				return nil, fmt.Errorf("failed to rebuild schema: %w", err)
			}
			return postgres.NewVectorIndex(db, postgres.VectorIndexConfig{Dimensions: dims, Logger: logger}), nil
		}
		logger.Info("using pgvector index", "dimensions", dimensions)
		return index, rebuild, func() { db.Close() }, nil

	default:
		return nil, nil, noop, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, cfg.Vector.Backend)
	}
}

func buildConversationStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (driven.ConversationStore, error) {
	ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute

	switch cfg.Session.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("using Redis session store", "ttl", ttl)
		return redisadapter.NewConversationStore(client, ttl), nil

	case "memory":
		logger.Info("using in-memory session store", "ttl", ttl)
		return memstore.NewConversationStore(ttl), nil

	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", domain.ErrInvalidInput, cfg.Session.Backend)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
