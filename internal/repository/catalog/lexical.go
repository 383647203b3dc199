package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/souq/internal/db"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	itemrepo "github.com/kailas-cloud/souq/internal/repository/item"
)

// textSearcher is the consumer interface for full-text search (ISP).
type textSearcher interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// LexicalStore runs BM25 search over the normalized search_<lang> field.
type LexicalStore struct {
	store      textSearcher
	prefix     string
	itemPrefix string
}

// NewLexicalStore creates a Redis-backed lexical store.
func NewLexicalStore(s textSearcher, keyPrefix, itemPrefix string) *LexicalStore {
	return &LexicalStore{store: s, prefix: keyPrefix, itemPrefix: itemPrefix}
}

// Search returns up to topK items matching the normalized query in
// descending relevance. Records come straight from the index, no hydration.
func (l *LexicalStore) Search(
	ctx context.Context, lang language.Language, normalizedQuery string, filters filter.Expression, topK int,
) ([]domitem.Item, error) {
	if strings.TrimSpace(normalizedQuery) == "" {
		return nil, nil
	}
	res, err := l.store.SearchText(ctx, &db.TextQuery{
		IndexName:    lang.IndexName(l.prefix),
		Field:        itemrepo.SearchField(lang),
		Query:        normalizedQuery,
		Filters:      fieldFilters(filters, lang),
		TopK:         topK,
		ReturnFields: itemrepo.ReturnFields(),
	})
	if err != nil {
		return nil, fmt.Errorf("lexical search %s: %w", lang, err)
	}

	items := make([]domitem.Item, 0, len(res.Entries))
	for _, e := range res.Entries {
		if it, ok := itemrepo.Decode(strings.TrimPrefix(e.Key, l.itemPrefix), e.Fields); ok {
			items = append(items, it)
		}
	}
	return items, nil
}
