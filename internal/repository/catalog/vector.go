package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/souq/internal/db"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	itemrepo "github.com/kailas-cloud/souq/internal/repository/item"
)

// knnSearcher is the consumer interface for vector search (ISP).
type knnSearcher interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// VectorStore runs exact cosine KNN over vec_<lang>.
type VectorStore struct {
	store      knnSearcher
	prefix     string
	itemPrefix string
}

// NewVectorStore creates a Redis-backed vector store.
func NewVectorStore(s knnSearcher, keyPrefix, itemPrefix string) *VectorStore {
	return &VectorStore{store: s, prefix: keyPrefix, itemPrefix: itemPrefix}
}

// Search returns at most topK distinct item ids whose similarity is at least
// threshold, best first.
func (v *VectorStore) Search(
	ctx context.Context, lang language.Language, vector []float32, topK int, threshold float64,
	filters filter.Expression,
) ([]string, error) {
	if topK <= 0 {
		return nil, nil
	}
	res, err := v.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    lang.IndexName(v.prefix),
		VectorField:  itemrepo.VectorField(lang),
		Filters:      fieldFilters(filters, lang),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{itemrepo.FieldID},
	})
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", lang, err)
	}

	ids := make([]string, 0, len(res.Entries))
	seen := make(map[string]struct{}, len(res.Entries))
	for _, e := range res.Entries {
		if e.Score < threshold {
			continue
		}
		id := strings.TrimPrefix(e.Key, v.itemPrefix)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == topK {
			break
		}
	}
	return ids, nil
}
