// Package copurchase answers "customers who bought this also bought".
package copurchase

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/souq/internal/domain"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
)

// DefaultLimit is the number of co-purchased items returned.
const DefaultLimit = 10

// TransactionReader ranks items bought together with an item.
type TransactionReader interface {
	CoPurchased(ctx context.Context, itemID string, limit int) ([]string, error)
}

// ItemReader resolves catalog items.
type ItemReader interface {
	Exists(ctx context.Context, id string) (bool, error)
	GetMany(ctx context.Context, ids []string) ([]domitem.Item, error)
}

// Service finds items frequently purchased together.
type Service struct {
	txs   TransactionReader
	items ItemReader
	limit int
}

// New creates a co-purchase service returning up to limit items
// (DefaultLimit when limit <= 0).
func New(txs TransactionReader, items ItemReader, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{txs: txs, items: items, limit: limit}
}

// Related returns the items most often bought with itemID, most frequent
// first. Items no longer in the catalog are skipped.
func (s *Service) Related(ctx context.Context, itemID string) ([]domitem.Item, error) {
	ok, err := s.items.Exists(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("check item: %w", err)
	}
	if !ok {
		return nil, domain.ErrItemNotFound
	}

	ids, err := s.txs.CoPurchased(ctx, itemID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("co-purchased items: %w", err)
	}
	if len(ids) == 0 {
		return []domitem.Item{}, nil
	}

	items, err := s.items.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate items: %w", err)
	}
	return items, nil
}
