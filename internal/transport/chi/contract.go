package chi

import (
	"context"

	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/search/query"
	"github.com/kailas-cloud/souq/internal/domain/search/result"
	"github.com/kailas-cloud/souq/internal/domain/websearch"
	healthuc "github.com/kailas-cloud/souq/internal/usecase/health"
)

// SearchService runs the retrieval pipeline.
type SearchService interface {
	Search(ctx context.Context, q query.Query) (result.SearchResult, error)
}

// ItemService creates and reads catalog items.
type ItemService interface {
	Create(ctx context.Context, in domitem.Input) (domitem.Item, error)
	Get(ctx context.Context, id string) (domitem.Item, error)
}

// TransactionService records purchases.
type TransactionService interface {
	Create(ctx context.Context, userID string, itemIDs []string) (string, error)
}

// CoPurchaseService finds items bought together.
type CoPurchaseService interface {
	Related(ctx context.Context, itemID string) ([]domitem.Item, error)
}

// WebSearchService finds external listings for an item.
type WebSearchService interface {
	ForItem(ctx context.Context, itemID string) ([]websearch.Result, error)
}

// HealthService aggregates dependency checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
