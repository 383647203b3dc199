// Package app wires the souq components from configuration. Both the API
// server and souqctl build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/souq/internal/config"
	dbRedis "github.com/kailas-cloud/souq/internal/db/redis"
	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/metrics"
	"github.com/kailas-cloud/souq/internal/repository/bleveindex"
	"github.com/kailas-cloud/souq/internal/repository/catalog"
	itemrepo "github.com/kailas-cloud/souq/internal/repository/item"
	"github.com/kailas-cloud/souq/internal/repository/postgres"
	"github.com/kailas-cloud/souq/internal/resilience"
	websearchclient "github.com/kailas-cloud/souq/internal/transport/websearch"
	catalogimport "github.com/kailas-cloud/souq/internal/usecase/catalog"
	copurchaseuc "github.com/kailas-cloud/souq/internal/usecase/copurchase"
	healthuc "github.com/kailas-cloud/souq/internal/usecase/health"
	itemuc "github.com/kailas-cloud/souq/internal/usecase/item"
	searchuc "github.com/kailas-cloud/souq/internal/usecase/search"
	transactionuc "github.com/kailas-cloud/souq/internal/usecase/transaction"
	websearchuc "github.com/kailas-cloud/souq/internal/usecase/websearch"
)

// Core holds the catalog storage and embedders shared by every command.
type Core struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    *dbRedis.Store
	Items    *itemrepo.Repo
	Indexes  *catalog.Indexes
	Bleve    *bleveindex.Index
	Executor *resilience.Executor
	Query    domain.Embedder
	Document domain.Embedder
}

// OpenCore connects to Redis and builds the embedder chains. The bleve
// index is opened when it is the configured lexical driver.
func OpenCore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Core, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}

	items := itemrepo.New(store, cfg.Redis.KeyPrefix)
	c := &Core{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Items:    items,
		Indexes:  catalog.NewIndexes(store, cfg.Redis.KeyPrefix, items.KeyPrefix()),
		Executor: resilience.NewExecutor(resilience.PolicyFromConfig(cfg.Resilience), logger),
	}

	if cfg.Lexical.Driver == config.LexicalBleve {
		c.Bleve, err = bleveindex.Open(cfg.Lexical.BlevePath, items)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open bleve index: %w", err)
		}
	}

	c.Query, err = buildEmbedder(cfg, "query", cfg.Embedding.QueryInstruction, store, c.Executor, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Document, err = buildEmbedder(cfg, "document", cfg.Embedding.DocumentInstruction, store, c.Executor, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("Core components ready",
		zap.String("lexical_driver", cfg.Lexical.Driver),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return c, nil
}

// Indexer returns the explicit lexical indexer, or nil when Redis indexes
// item hashes on write.
func (c *Core) Indexer() itemuc.Indexer {
	if c.Bleve == nil {
		return nil
	}
	return c.Bleve
}

// Lexical returns the configured lexical store.
func (c *Core) Lexical() searchuc.LexicalStore {
	if c.Bleve != nil {
		return c.Bleve
	}
	return catalog.NewLexicalStore(c.Store, c.Config.Redis.KeyPrefix, c.Items.KeyPrefix())
}

// SearchService builds the retrieval pipeline.
func (c *Core) SearchService() *searchuc.Service {
	t := c.Config.Search.Timeouts
	return searchuc.New(
		c.Query,
		c.Lexical(),
		searchuc.NewReranker(c.Document, c.Config.Search.RerankConcurrency, c.Logger),
		catalog.NewVectorStore(c.Store, c.Config.Redis.KeyPrefix, c.Items.KeyPrefix()),
		c.Items,
		searchuc.Options{
			Timeouts: searchuc.Timeouts{
				Embed:   config.Duration(t.Embed),
				Lexical: config.Duration(t.Lexical),
				Rerank:  config.Duration(t.Rerank),
				Vector:  config.Duration(t.Vector),
				Hydrate: config.Duration(t.Hydrate),
			},
			Logger: c.Logger,
		},
	)
}

// Importer builds the catalog seeding importer.
func (c *Core) Importer() *catalogimport.Importer {
	return catalogimport.NewImporter(c.Document, c.Items, catalogimport.Options{
		Workers:   c.Config.Search.Import.Workers,
		BatchSize: c.Config.Search.Import.BatchSize,
		Indexer:   c.Indexer(),
		Logger:    c.Logger,
	})
}

// Close releases the core connections.
func (c *Core) Close() {
	if c.Bleve != nil {
		if err := c.Bleve.Close(); err != nil {
			c.Logger.Warn("Failed to close bleve index", zap.Error(err))
		}
	}
	c.Store.Close()
}

// Services are the API use cases.
type Services struct {
	Search       *searchuc.Service
	Items        *itemuc.Service
	Transactions *transactionuc.Service
	CoPurchase   *copurchaseuc.Service
	WebSearch    *websearchuc.Service
	Health       *healthuc.Service
}

// App is the fully wired API application.
type App struct {
	*Core
	DB       *sql.DB
	Services Services
}

// New opens every dependency and builds the API use cases.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	core, err := OpenCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	txRepo := postgres.NewTransactionRepository(sqlDB)

	web := websearchclient.NewClient(websearchclient.Config{
		APIKey:         cfg.WebSearch.APIKey,
		BaseURL:        cfg.WebSearch.BaseURL,
		IncludeDomains: cfg.WebSearch.IncludeDomains,
		MaxResults:     cfg.WebSearch.MaxResults,
		SearchDepth:    cfg.WebSearch.SearchDepth,
		RatePerSec:     cfg.WebSearch.RatePerSec,
		Burst:          cfg.WebSearch.Burst,
		Timeout:        config.Duration(cfg.WebSearch.TimeoutMS),
		Executor:       core.Executor,
		Logger:         logger,
	})

	a := &App{Core: core, DB: sqlDB}
	a.Services = Services{
		Search:       core.SearchService(),
		Items:        itemuc.New(core.Items, core.Document).WithIndexer(core.Indexer()),
		Transactions: transactionuc.New(txRepo, core.Items),
		CoPurchase:   copurchaseuc.New(txRepo, core.Items, copurchaseuc.DefaultLimit),
		WebSearch:    websearchuc.New(core.Items, web),
		Health: healthuc.New(core.Store, txRepo, embeddingHealthChecker{core.Document}).
			WithIndexes(core.Indexes),
	}
	return a, nil
}

// Close releases every connection.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("Failed to close postgres", zap.Error(err))
	}
	a.Core.Close()
}

// embeddingHealthChecker forwards to the embedder when it supports health checks.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
