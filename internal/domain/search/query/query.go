// Package query is the validated, immutable input of a catalog search.
package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
)

// Query parameter limits and defaults.
const (
	// MaxTextLength is the maximum query text size in bytes.
	MaxTextLength         = 4096
	DefaultLimit          = 10
	DefaultMaxLimit       = 100
	DefaultScoreThreshold = 0.3
)

// Query is a validated search query. It has no setters: the pipeline works
// on copies of its values.
type Query struct {
	text           string
	limit          int
	scoreThreshold float64
	filters        filter.Expression
}

// New validates the parameters and creates a Query. maxLimit <= 0 means
// DefaultMaxLimit. Every rejection wraps domain.ErrInvalidQuery.
func New(text string, limit int, scoreThreshold float64, filters filter.Expression, maxLimit int) (Query, error) {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if strings.TrimSpace(text) == "" {
		return Query{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}
	if len(text) > MaxTextLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidQuery, MaxTextLength)
	}
	if limit <= 0 {
		return Query{}, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidQuery)
	}
	if limit > maxLimit {
		return Query{}, fmt.Errorf("%w: limit exceeds maximum %d", domain.ErrInvalidQuery, maxLimit)
	}
	if math.IsNaN(scoreThreshold) || scoreThreshold < 0 || scoreThreshold > 1 {
		return Query{}, fmt.Errorf("%w: score_threshold must be between 0 and 1", domain.ErrInvalidQuery)
	}

	return Query{
		text:           text,
		limit:          limit,
		scoreThreshold: scoreThreshold,
		filters:        filters,
	}, nil
}

// Text returns the raw query text.
func (q Query) Text() string { return q.text }

// Limit returns the maximum number of results.
func (q Query) Limit() int { return q.limit }

// ScoreThreshold returns the minimum similarity for vector hits.
func (q Query) ScoreThreshold() float64 { return q.scoreThreshold }

// Filters returns the structured equality filters.
func (q Query) Filters() filter.Expression { return q.filters }
