package item

import (
	"context"

	"github.com/kailas-cloud/souq/internal/domain"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
)

// Repository stores catalog items.
type Repository interface {
	Save(ctx context.Context, it *domitem.Item) error
	Get(ctx context.Context, id string) (domitem.Item, error)
}

// Indexer receives items that a lexical driver must index explicitly.
type Indexer interface {
	Index(ctx context.Context, items ...domitem.Item) error
}

// Embedder vectorizes item text with the document-side instruction.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
