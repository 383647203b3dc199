// Package websearch looks up external listings for a catalog item.
package websearch

import (
	"context"
	"fmt"
	"strings"

	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/websearch"
)

// Searcher queries the web search provider.
type Searcher interface {
	Search(ctx context.Context, text string) ([]websearch.Result, error)
}

// ItemReader loads catalog items.
type ItemReader interface {
	Get(ctx context.Context, id string) (domitem.Item, error)
}

// Service searches the web by item name.
type Service struct {
	items    ItemReader
	searcher Searcher
}

// New creates a web search service.
func New(items ItemReader, searcher Searcher) *Service {
	return &Service{items: items, searcher: searcher}
}

// ForItem searches the web for the item's English name, or its Arabic name
// when the item has no English one.
func (s *Service) ForItem(ctx context.Context, itemID string) ([]websearch.Result, error) {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	name := strings.TrimSpace(it.Name().In(language.English))
	results, err := s.searcher.Search(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	return results, nil
}
