// Package search implements the hybrid retrieval pipeline: lexical search
// reranked by semantic similarity, backfilled by vector search.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	"github.com/kailas-cloud/souq/internal/domain/search/query"
	"github.com/kailas-cloud/souq/internal/domain/search/result"
	"github.com/kailas-cloud/souq/internal/logger"
	"github.com/kailas-cloud/souq/internal/metrics"
	"github.com/kailas-cloud/souq/internal/textnorm"
)

// Timeouts bound each external call of a search. Zero disables the bound.
type Timeouts struct {
	Embed   time.Duration
	Lexical time.Duration
	Rerank  time.Duration
	Vector  time.Duration
	Hydrate time.Duration
}

// Options configure a Service.
type Options struct {
	Timeouts Timeouts
	Logger   *zap.Logger
}

// Service orchestrates one search request.
type Service struct {
	embed    Embedder
	lexical  LexicalStore
	reranker *Reranker
	vectors  VectorStore
	items    ItemReader
	timeouts Timeouts
	logger   *zap.Logger
}

// New creates a search service. embed must produce query-side embeddings;
// the reranker owns the document-side embedder.
func New(
	embed Embedder, lexical LexicalStore, reranker *Reranker,
	vectors VectorStore, items ItemReader, opts Options,
) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		embed:    embed,
		lexical:  lexical,
		reranker: reranker,
		vectors:  vectors,
		items:    items,
		timeouts: opts.Timeouts,
		logger:   log,
	}
}

// Search runs the pipeline for q. The query embedding and the lexical search
// are mandatory: their failure fails the request with a *domain.StageError.
// A rerank timeout keeps the candidates scored in time. Vector backfill and
// its hydration degrade to empty RelatedResults.
func (s *Service) Search(ctx context.Context, q query.Query) (result.SearchResult, error) {
	cls, err := language.Classify(q.Text())
	if err != nil {
		return result.SearchResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	lang := cls.Primary
	ctx = logger.ContextWithLogger(ctx, logger.FromContextOr(ctx, s.logger).With(zap.String("language", string(lang))))
	limit := q.Limit()

	queryVec, hits, err := s.retrieve(ctx, q, lang)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(string(lang), "error").Inc()
		return result.SearchResult{}, err
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	var results []result.ScoredCandidate
	if len(hits) > 0 {
		results, err = s.rerank(ctx, queryVec, hits, lang)
		if err != nil {
			metrics.SearchRequestsTotal.WithLabelValues(string(lang), "error").Inc()
			return result.SearchResult{}, err
		}
	}

	out := result.SearchResult{Results: results, Language: lang}
	residual := limit - len(results)
	if residual > 0 {
		out.RelatedResults = s.backfill(ctx, lang, queryVec, residual, q.ScoreThreshold(), results)
	}

	metrics.SearchRequestsTotal.WithLabelValues(string(lang), "ok").Inc()
	logger.FromContext(ctx).Debug("Search completed",
		zap.Int("limit", limit),
		zap.Int("lexical_hits", len(hits)),
		zap.Int("results", len(out.Results)),
		zap.Int("related_results", len(out.RelatedResults)),
	)
	return out, nil
}

// retrieve embeds the original query text while the lexical store is queried
// with its normalized form.
func (s *Service) retrieve(ctx context.Context, q query.Query, lang language.Language) ([]float32, []item.Item, error) {
	var (
		queryVec []float32
		hits     []item.Item
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.stage(gctx, domain.StageEmbedQuery, s.timeouts.Embed, func(ctx context.Context) error {
			res, err := s.embed.Embed(ctx, q.Text())
			if err != nil {
				return err //nolint:wrapcheck // wrapped by stage
			}
			if len(res.Embedding) == 0 {
				return fmt.Errorf("empty query embedding: %w", domain.ErrEmbeddingProviderError)
			}
			queryVec = res.Embedding
			return nil
		})
	})
	g.Go(func() error {
		normalized := textnorm.Normalize(q.Text())
		return s.stage(gctx, domain.StageLexical, s.timeouts.Lexical, func(ctx context.Context) error {
			var err error
			hits, err = s.lexical.Search(ctx, lang, normalized, q.Filters(), q.Limit())
			return err //nolint:wrapcheck // wrapped by stage
		})
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err //nolint:wrapcheck // *domain.StageError
	}
	return queryVec, hits, nil
}

// rerank fails only when the caller's context ends; a rerank deadline keeps
// the candidates scored in time.
func (s *Service) rerank(
	ctx context.Context, queryVec []float32, hits []item.Item, lang language.Language,
) ([]result.ScoredCandidate, error) {
	var results []result.ScoredCandidate
	err := s.stage(ctx, domain.StageRerank, s.timeouts.Rerank, func(stageCtx context.Context) error {
		var err error
		results, err = s.reranker.Rerank(stageCtx, queryVec, hits, lang)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			// Only the rerank deadline expired: unscored candidates are dropped
			// and the backfill covers the larger residual.
			logger.FromContext(ctx).Warn("Rerank deadline exceeded",
				logger.Stage(string(domain.StageRerank)),
				zap.Int("candidates", len(hits)),
				zap.Int("scored", len(results)),
			)
			return nil
		}
		return err //nolint:wrapcheck // wrapped by stage
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// backfill fetches up to residual vector hits not already in results.
// Failures are logged and counted, never returned.
func (s *Service) backfill(
	ctx context.Context, lang language.Language, queryVec []float32,
	residual int, threshold float64, results []result.ScoredCandidate,
) []item.Item {
	log := logger.FromContext(ctx)

	var ids []string
	err := s.stage(ctx, domain.StageVector, s.timeouts.Vector, func(ctx context.Context) error {
		var err error
		ids, err = s.vectors.Search(ctx, lang, queryVec, residual, threshold, filter.Expression{})
		return err //nolint:wrapcheck // wrapped by stage
	})
	if err != nil {
		metrics.SearchBackfillDegradedTotal.Inc()
		log.Warn("Vector backfill degraded", logger.Stage(string(domain.StageVector)), zap.Error(err))
		return nil
	}
	if len(ids) > residual {
		ids = ids[:residual]
	}
	if len(ids) == 0 {
		return nil
	}

	var related []item.Item
	err = s.stage(ctx, domain.StageHydrate, s.timeouts.Hydrate, func(ctx context.Context) error {
		var err error
		related, err = s.items.GetMany(ctx, ids)
		return err //nolint:wrapcheck // wrapped by stage
	})
	if err != nil {
		metrics.SearchBackfillDegradedTotal.Inc()
		log.Warn("Vector backfill degraded", logger.Stage(string(domain.StageHydrate)), zap.Error(err))
		return nil
	}

	return excludeResults(related, results)
}

// excludeResults drops related items already present in results.
func excludeResults(related []item.Item, results []result.ScoredCandidate) []item.Item {
	if len(related) == 0 || len(results) == 0 {
		return related
	}
	seen := make(map[string]struct{}, len(results))
	for i := range results {
		seen[results[i].Item.ID()] = struct{}{}
	}
	out := related[:0:0]
	for i := range related {
		if _, dup := seen[related[i].ID()]; !dup {
			out = append(out, related[i])
		}
	}
	return out
}

// stage runs fn under the stage timeout, records its duration and wraps
// failures in *domain.StageError.
func (s *Service) stage(ctx context.Context, stage domain.Stage, timeout time.Duration, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchStageDuration.WithLabelValues(string(stage), status).Observe(time.Since(start).Seconds())

	if err != nil {
		return domain.NewStageError(stage, err)
	}
	return nil
}
