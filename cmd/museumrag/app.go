package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/museumrag/internal/config"
	dbRedis "github.com/kailas-cloud/museumrag/internal/db/redis"
	"github.com/kailas-cloud/museumrag/internal/domain"
	"github.com/kailas-cloud/museumrag/internal/domain/corpus"
	logpkg "github.com/kailas-cloud/museumrag/internal/logger"
	"github.com/kailas-cloud/museumrag/internal/metrics"
	"github.com/kailas-cloud/museumrag/internal/repository/chromem"
	"github.com/kailas-cloud/museumrag/internal/repository/chunk"
	"github.com/kailas-cloud/museumrag/internal/repository/embcache"
	"github.com/kailas-cloud/museumrag/internal/repository/qdrant"
	openaiT "github.com/kailas-cloud/museumrag/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/museumrag/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/museumrag/internal/usecase/health"
	indexuc "github.com/kailas-cloud/museumrag/internal/usecase/index"
	raguc "github.com/kailas-cloud/museumrag/internal/usecase/rag"
)

// embeddingProvider is the decorated embedder handed to services.
type embeddingProvider interface {
	domain.Embedder
	domain.HealthChecker
}

// generationProvider is the chat completion client handed to services.
type generationProvider interface {
	domain.Generator
	domain.HealthChecker
}

// app is the composition root shared by all commands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	docs   []domain.Document

	index     chunk.VectorIndex
	embedder  embeddingProvider  // nil without a credential
	generator generationProvider // nil without a credential
	credErr   error

	closers []func()
}

// newApp loads the corpus and builds every collaborator. A missing credential
// is not an error here: it is kept in credErr so serve can still start.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, credErr: cfg.RequireCredential()}

	docs, err := corpus.Load(corpus.Options{
		Source: corpus.Source(cfg.Corpus.Source),
		Path:   cfg.Corpus.Path,
		Title:  cfg.Corpus.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	a.docs = docs

	var store *dbRedis.Store
	if cfg.NeedsRedis() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Database.Addrs))
	}

	if a.credErr == nil {
		a.embedder = buildEmbedder(cfg, store, logger)
		a.generator = openaiT.NewGenerator(&openaiT.GeneratorConfig{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.Generation.Model,
			Temperature:    cfg.Generation.Temperature,
			MaxTokens:      cfg.Generation.MaxTokens,
			Provider:       cfg.OpenAI.Provider,
			RateLimitRPS:   cfg.Generation.RateLimitRPS,
			RateLimitBurst: cfg.Generation.RateLimitBurst,
			Logger:         logger,
		})
	}

	a.index, err = a.buildIndex(ctx, store)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) embeddingProvider {
	var embedder embeddingProvider = openaiT.NewEmbedder(&openaiT.EmbedderConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.OpenAI.Provider,
		Logger:     logger,
	})

	if cfg.Embedding.Cache && store != nil {
		embedder = embcache.New(embedder, store, cfg.Storage.KeyPrefix, cfg.Embedding.Model,
			metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.OpenAI.Provider, cfg.Embedding.Model, logger)
}

func (a *app) indexEmbeds() bool {
	return a.cfg.Index.EmbeddingMode == config.EmbeddingModeIndex
}

func (a *app) buildIndex(ctx context.Context, store *dbRedis.Store) (chunk.VectorIndex, error) {
	cfg := a.cfg
	// Nil interface, not a typed nil: chromem treats any non-nil value as an embedder.
	var indexEmbedder domain.Embedder
	if a.indexEmbeds() && a.embedder != nil {
		indexEmbedder = a.embedder
	}

	var idx chunk.VectorIndex
	switch cfg.Index.Backend {
	case config.BackendChromem:
		repo, err := chromem.New(chromem.Config{
			Collection: cfg.Index.Collection,
			Path:       cfg.Index.Chromem.Path,
			Compress:   cfg.Index.Chromem.Compress,
			Embedder:   indexEmbedder,
		})
		if err != nil {
			return nil, fmt.Errorf("open chromem index: %w", err)
		}
		// chromem embeds natively.
		return repo, nil

	case config.BackendRedis:
		repo := chunk.New(store, chunk.Config{
			KeyPrefix:   cfg.Storage.KeyPrefix,
			Collection:  cfg.Index.Collection,
			Dimensions:  cfg.VectorDimensions(),
			HNSWM:       cfg.Index.HNSWM,
			HNSWEFConst: cfg.Index.HNSWEFConst,
		})
		if err := repo.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure redis index: %w", err)
		}
		idx = repo

	case config.BackendQdrant:
		repo, closeFn, err := qdrant.Dial(qdrant.Config{
			Host:       cfg.Index.Qdrant.Host,
			Port:       cfg.Index.Qdrant.Port,
			APIKey:     cfg.Index.Qdrant.APIKey,
			UseTLS:     cfg.Index.Qdrant.UseTLS,
			Collection: cfg.Index.Collection,
			Dimensions: cfg.VectorDimensions(),
		})
		if err != nil {
			return nil, fmt.Errorf("dial qdrant: %w", err)
		}
		a.closers = append(a.closers, func() { _ = closeFn() })
		if err := repo.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("ensure qdrant collection: %w", err)
		}
		idx = repo

	default:
		return nil, fmt.Errorf("unknown index backend %q: %w", cfg.Index.Backend, domain.ErrConfiguration)
	}

	if indexEmbedder != nil {
		idx = chunk.WithEmbedder(idx, indexEmbedder)
	}
	return idx, nil
}

// callerEmbedder is the embedder used by services in caller mode, nil otherwise.
func (a *app) callerEmbedder() domain.Embedder {
	if a.indexEmbeds() || a.embedder == nil {
		return nil
	}
	return a.embedder
}

func (a *app) population() *indexuc.Service {
	return indexuc.New(a.index, a.callerEmbedder(), a.logger)
}

// rag returns the orchestrator, or nil without a credential.
func (a *app) rag() *raguc.Service {
	if a.generator == nil {
		return nil
	}
	return raguc.New(a.index, a.callerEmbedder(), a.generator, raguc.Config{
		DefaultK: a.cfg.RAG.DefaultK,
		MaxK:     a.cfg.RAG.MaxK,
		Timeout:  time.Duration(a.cfg.RAG.TimeoutSec) * time.Second,
	}, a.logger)
}

func (a *app) health() *healthuc.Service {
	var emb, gen healthuc.ProviderChecker
	if a.embedder != nil {
		emb = a.embedder
	}
	if a.generator != nil {
		gen = a.generator
	}
	return healthuc.New(a.index, emb, gen)
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// setup loads configuration and the logger and builds the app.
func setup(ctx context.Context) (*app, string, error) {
	cfg, env, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, "", fmt.Errorf("create logger: %w", err)
	}
	metrics.RegisterProviderMetrics()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, "", err
	}
	a.closers = append([]func(){func() { _ = logger.Sync() }}, a.closers...)
	return a, env, nil
}
