package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/souq/internal/config"
	dbRedis "github.com/kailas-cloud/souq/internal/db/redis"
	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/metrics"
	"github.com/kailas-cloud/souq/internal/repository/embcache"
	"github.com/kailas-cloud/souq/internal/resilience"
	openaiEmb "github.com/kailas-cloud/souq/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/souq/internal/usecase/embedding"
)

const embeddingProvider = "openai"

// buildEmbedder assembles the decorator chain:
// OpenAI -> Redis cache -> LRU -> Instrumented -> Instruction.
func buildEmbedder(
	cfg config.Config,
	role, instruction string,
	store *dbRedis.Store,
	exec *resilience.Executor,
	logger *zap.Logger,
) (domain.Embedder, error) {
	emb := cfg.Embedding
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   embeddingProvider,
		Executor:   exec,
		Logger:     logger,
	})

	// Cached vectors are keyed by the text after the instruction prefix is
	// applied, so the namespace only separates models and dimensions.
	if emb.RedisCache {
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix:  cfg.Redis.KeyPrefix,
			Namespace:  cacheNamespace(emb.Model, emb.Dimensions),
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	if emb.LRUSize > 0 {
		lru, err := embeddinguc.NewLRUEmbedder(embedder, emb.LRUSize, metrics.EmbeddingCacheTotal)
		if err != nil {
			return nil, fmt.Errorf("create %s lru: %w", role, err)
		}
		embedder = lru
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, embeddingProvider, emb.Model, role, logger)

	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), nil
	}
	return embedder, nil
}

func cacheNamespace(model string, dims int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s/%d", model, dims))
	return hex.EncodeToString(sum[:4])
}
