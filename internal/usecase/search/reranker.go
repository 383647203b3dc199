package search

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/result"
	"github.com/kailas-cloud/souq/internal/logger"
	"github.com/kailas-cloud/souq/internal/metrics"
	"github.com/kailas-cloud/souq/internal/vectormath"
)

// DefaultRerankConcurrency bounds parallel document embeddings per request.
const DefaultRerankConcurrency = 8

// Skip reasons reported in search_rerank_skipped_total.
const (
	skipEmbedFailed = "embed_failed"
	skipUnscorable  = "unscorable"
	skipEmptyText   = "empty_text"
	skipTimeout     = "timeout"
)

// Reranker orders lexical candidates by cosine similarity between the query
// vector and each candidate's composite text embedding.
type Reranker struct {
	embed       Embedder
	concurrency int
	logger      *zap.Logger
}

// NewReranker creates a reranker that embeds documents with embed.
func NewReranker(embed Embedder, concurrency int, logger *zap.Logger) *Reranker {
	if concurrency <= 0 {
		concurrency = DefaultRerankConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{embed: embed, concurrency: concurrency, logger: logger}
}

// Rerank scores candidates against queryVec and returns them by descending
// score, keeping the original order among equal scores. A candidate that
// cannot be embedded or scored is dropped, never zero-scored. When ctx ends
// before every candidate is scored, the candidates scored so far are returned
// together with ctx's error.
func (r *Reranker) Rerank(
	ctx context.Context, queryVec []float32, candidates []item.Item, lang language.Language,
) ([]result.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	log := logger.FromContextOr(ctx, r.logger)

	scores := make([]float64, len(candidates))
	scored := make([]bool, len(candidates))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range candidates {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			cand := &candidates[i]
			text := cand.CompositeText(lang)
			if text == "" {
				r.skip(log, cand.ID(), skipEmptyText, nil)
				return nil
			}
			emb, err := r.embed.Embed(ctx, text)
			if err != nil {
				if ctx.Err() == nil {
					r.skip(log, cand.ID(), skipEmbedFailed, err)
				}
				return nil
			}
			score, err := vectormath.CosineSimilarity(queryVec, emb.Embedding)
			if err != nil {
				r.skip(log, cand.ID(), skipUnscorable, err)
				return nil
			}
			scores[i], scored[i] = score, true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]result.ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		if scored[i] {
			out = append(out, result.ScoredCandidate{Item: candidates[i], Score: scores[i]})
		}
	}
	slices.SortStableFunc(out, func(a, b result.ScoredCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if err := ctx.Err(); err != nil {
		if cut := len(candidates) - len(out); cut > 0 {
			metrics.SearchRerankSkippedTotal.WithLabelValues(skipTimeout).Add(float64(cut))
		}
		return out, err //nolint:wrapcheck // the caller decides between partial and failed
	}
	return out, nil
}

func (r *Reranker) skip(log *zap.Logger, id, reason string, err error) {
	metrics.SearchRerankSkippedTotal.WithLabelValues(reason).Inc()
	fields := []zap.Field{zap.String("item_id", id), zap.String("reason", reason)}
	if err != nil && !errors.Is(err, context.Canceled) {
		fields = append(fields, zap.Error(err))
	}
	log.Warn("Rerank candidate skipped", fields...)
}
