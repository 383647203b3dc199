package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/metrics"
)

func TestLRUEmbedder_CachesVectors(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}, TotalTokens: 3}}
	e, err := NewLRUEmbedder(inner, 2, metrics.EmbeddingCacheTotal)
	if err != nil {
		t.Fatalf("NewLRUEmbedder: %v", err)
	}
	hitsBefore := testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit", "memory"))

	first, err := e.Embed(context.Background(), "chair")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := e.Embed(context.Background(), "chair")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if first.TotalTokens != 3 || second.TotalTokens != 0 {
		t.Errorf("tokens = %d then %d", first.TotalTokens, second.TotalTokens)
	}
	if second.Embedding[1] != 2 {
		t.Errorf("cached vector = %v", second.Embedding)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit", "memory")); got != hitsBefore+1 {
		t.Errorf("hit counter = %v, want %v", got, hitsBefore+1)
	}
}

func TestLRUEmbedder_ReturnsCopies(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	e, _ := NewLRUEmbedder(inner, 2, nil)

	_, _ = e.Embed(context.Background(), "chair")
	hit, _ := e.Embed(context.Background(), "chair")
	hit.Embedding[0] = 99

	again, _ := e.Embed(context.Background(), "chair")
	if again.Embedding[0] != 1 {
		t.Errorf("cache entry was mutated through a returned slice: %v", again.Embedding)
	}
}

func TestLRUEmbedder_Evicts(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	e, _ := NewLRUEmbedder(inner, 1, nil)

	_, _ = e.Embed(context.Background(), "a")
	_, _ = e.Embed(context.Background(), "b")
	_, _ = e.Embed(context.Background(), "a")

	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 after eviction", inner.calls)
	}
	if e.Len() != 1 {
		t.Errorf("Len = %d", e.Len())
	}
}

func TestLRUEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	e, _ := NewLRUEmbedder(inner, 4, nil)

	for range 2 {
		if _, err := e.Embed(context.Background(), "chair"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
			t.Fatalf("expected provider error, got %v", err)
		}
	}
	if inner.calls != 2 || e.Len() != 0 {
		t.Errorf("calls=%d len=%d", inner.calls, e.Len())
	}
}

func TestNewLRUEmbedder_InvalidSize(t *testing.T) {
	if _, err := NewLRUEmbedder(&mockEmbedder{}, 0, nil); err == nil {
		t.Fatal("expected error for zero size")
	}
}
