// Package result holds the output of a catalog search.
package result

import (
	"github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
)

// ScoredCandidate pairs an item with its similarity to a query.
type ScoredCandidate struct {
	Item  item.Item
	Score float64
}

// SearchResult is the two-bucket output of a search: reranked lexical hits
// and the disjoint vector backfill. Language is the classified query language.
type SearchResult struct {
	Results        []ScoredCandidate
	RelatedResults []item.Item
	Language       language.Language
}

// ResultIDs returns the identifiers of Results in order.
func (r SearchResult) ResultIDs() []string {
	ids := make([]string, len(r.Results))
	for i := range r.Results {
		ids[i] = r.Results[i].Item.ID()
	}
	return ids
}

// RelatedIDs returns the identifiers of RelatedResults in order.
func (r SearchResult) RelatedIDs() []string {
	return item.IDs(r.RelatedResults)
}

// Len returns the combined number of items in both buckets.
func (r SearchResult) Len() int { return len(r.Results) + len(r.RelatedResults) }
