package search

import (
	"context"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// LexicalStore runs full-text search over the language-specific search field.
// Hits are full records in the store's relevance order.
type LexicalStore interface {
	Search(
		ctx context.Context, lang language.Language, normalizedQuery string,
		filters filter.Expression, topK int,
	) ([]item.Item, error)
}

// VectorStore runs exact nearest-neighbor search and returns distinct ids
// scoring at least threshold, best first.
type VectorStore interface {
	Search(
		ctx context.Context, lang language.Language, vector []float32,
		topK int, threshold float64, filters filter.Expression,
	) ([]string, error)
}

// ItemReader resolves ids to items preserving order and skipping missing ids.
type ItemReader interface {
	GetMany(ctx context.Context, ids []string) ([]item.Item, error)
}
