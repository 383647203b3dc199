package embedding

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/souq/internal/domain"
)

// LRUEmbedder keeps recent embeddings in process memory. Hits report zero tokens.
type LRUEmbedder struct {
	inner      domain.Embedder
	cache      *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
}

// NewLRUEmbedder creates an in-process cache of size entries. cacheTotal is
// labelled by result and tier and may be nil.
func NewLRUEmbedder(inner domain.Embedder, size int, cacheTotal *prometheus.CounterVec) (*LRUEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding lru: %w", err)
	}
	return &LRUEmbedder{inner: inner, cache: cache, cacheTotal: cacheTotal}, nil
}

// Embed returns a cached vector or delegates to the inner embedder.
func (e *LRUEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if vec, ok := e.cache.Get(text); ok {
		e.inc("hit")
		return domain.EmbeddingResult{Embedding: slices.Clone(vec)}, nil
	}
	e.inc("miss")

	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	if len(result.Embedding) > 0 {
		e.cache.Add(text, slices.Clone(result.Embedding))
	}
	return result, nil
}

// Len returns the number of cached vectors.
func (e *LRUEmbedder) Len() int { return e.cache.Len() }

// HealthCheck forwards to the inner embedder when it supports health checks.
func (e *LRUEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (e *LRUEmbedder) inc(result string) {
	if e.cacheTotal != nil {
		e.cacheTotal.WithLabelValues(result, "memory").Inc()
	}
}
