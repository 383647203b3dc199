package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	"github.com/kailas-cloud/souq/internal/domain/search/query"
	"github.com/kailas-cloud/souq/internal/domain/search/result"
	"github.com/kailas-cloud/souq/internal/metrics"
)

func mustQuery(t *testing.T, text string, limit int, threshold float64, filters filter.Expression) query.Query {
	t.Helper()
	q, err := query.New(text, limit, threshold, filters, 0)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}

func relatedIDs(items []item.Item) []string { return item.IDs(items) }

func TestSearch_ArabicQueryUsesArabicIndexAndNormalizedText(t *testing.T) {
	h, all := newHarness(t, 2)
	h.lexical.hits = all[:1]

	q := mustQuery(t, "مسمار حديدي", 5, 0.3, filter.Expression{})
	res, err := h.svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if res.Language != language.Arabic {
		t.Errorf("language = %q", res.Language)
	}
	lc := h.lexical.calls[0]
	if lc.lang != language.Arabic || lc.query != "مسمار حديدى" || lc.topK != 5 {
		t.Errorf("lexical call = %+v", lc)
	}
	if calls := h.queryEmb.calls(); len(calls) != 1 || calls[0] != "مسمار حديدي" {
		t.Errorf("query embedding must use the original text, got %q", calls)
	}
	if len(h.vectors.calls) != 1 || h.vectors.calls[0].lang != language.Arabic {
		t.Errorf("vector calls = %+v", h.vectors.calls)
	}
}

func TestSearch_BackfillsResidualAndExcludesLexicalHits(t *testing.T) {
	h, all := newHarness(t, 10)
	h.lexical.hits = all[:3]
	h.vectors.ids = []string{"item-b", "item-d", "item-a", "item-e", "item-f"}

	filters, _ := filter.FromMap(map[string]string{"category": "hardware"})
	q := mustQuery(t, "nail", 10, 0.42, filters)
	res, err := h.svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(res.Results) != 3 {
		t.Fatalf("results = %v", res.ResultIDs())
	}
	vc := h.vectors.calls[0]
	if vc.topK != 7 {
		t.Errorf("vector topK = %d, want 7", vc.topK)
	}
	if vc.threshold != 0.42 {
		t.Errorf("threshold = %v", vc.threshold)
	}
	if !vc.filters.IsEmpty() {
		t.Error("vector stage must not receive structured filters")
	}
	if h.lexical.calls[0].filters.Len() != 1 {
		t.Error("lexical stage must receive structured filters")
	}
	equalIDs(t, relatedIDs(res.RelatedResults), []string{"item-d", "item-e", "item-f"})
	if q.Limit() != 10 {
		t.Error("query limit must not change")
	}
}

func TestSearch_NoLexicalHitsReturnsVectorResults(t *testing.T) {
	h, _ := newHarness(t, 6)
	h.vectors.ids = []string{"item-c", "item-a", "item-f"}

	res, err := h.svc.Search(context.Background(), mustQuery(t, "hammer", 4, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 0 {
		t.Errorf("results = %v", res.ResultIDs())
	}
	if h.vectors.calls[0].topK != 4 {
		t.Errorf("topK = %d", h.vectors.calls[0].topK)
	}
	equalIDs(t, relatedIDs(res.RelatedResults), []string{"item-c", "item-a", "item-f"})
	if len(h.docEmb.calls()) != 0 {
		t.Error("reranker must not run without lexical hits")
	}
}

func TestSearch_QueryEmbeddingFailureFailsRequest(t *testing.T) {
	h, all := newHarness(t, 3)
	h.lexical.hits = all
	h.queryEmb.err = domain.ErrEmbeddingProviderError

	res, err := h.svc.Search(context.Background(), mustQuery(t, "hammer", 5, 0.3, filter.Expression{}))
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	var se *domain.StageError
	if !errors.As(err, &se) || se.Stage != domain.StageEmbedQuery {
		t.Fatalf("expected embed_query stage error, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Error("cause must stay matchable")
	}
	if res.Len() != 0 {
		t.Error("no partial result on failure")
	}
	if len(h.vectors.calls) != 0 {
		t.Error("vector store must not be called")
	}
}

func TestSearch_LexicalFailureFailsRequest(t *testing.T) {
	h, _ := newHarness(t, 1)
	h.lexical.err = errUnavailable

	_, err := h.svc.Search(context.Background(), mustQuery(t, "hammer", 5, 0.3, filter.Expression{}))
	var se *domain.StageError
	if !errors.As(err, &se) || se.Stage != domain.StageLexical {
		t.Fatalf("expected lexical stage error, got %v", err)
	}
	if !errors.Is(err, errUnavailable) {
		t.Error("cause must stay matchable")
	}
}

func TestSearch_QueryEmbeddingTimeoutIsDistinguishable(t *testing.T) {
	h, _ := newHarness(t, 1)
	h.queryEmb.delay = time.Second
	h.svc.timeouts.Embed = 10 * time.Millisecond

	_, err := h.svc.Search(context.Background(), mustQuery(t, "hammer", 5, 0.3, filter.Expression{}))
	var se *domain.StageError
	if !errors.As(err, &se) || !se.Timeout() {
		t.Fatalf("expected timed-out stage error, got %v", err)
	}
}

func TestSearch_FullLexicalQuotaSkipsVectorStage(t *testing.T) {
	h, all := newHarness(t, 8)
	h.lexical.hits = all

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 5, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 5 {
		t.Errorf("results = %d, want lexical hits truncated to 5", len(res.Results))
	}
	if len(h.docEmb.calls()) != 5 {
		t.Errorf("reranker embedded %d candidates, want 5", len(h.docEmb.calls()))
	}
	if len(h.vectors.calls) != 0 || len(res.RelatedResults) != 0 {
		t.Error("vector store must not be called when quota is met")
	}
}

func TestSearch_SkippedRerankCandidatesWidenResidual(t *testing.T) {
	h, all := newHarness(t, 6)
	h.lexical.hits = all[:3]
	h.docEmb.failFor = map[string]error{"name item-b": domain.ErrEmbeddingProviderError}
	h.vectors.ids = []string{"item-e", "item-f", "item-a"}

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 4, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	equalIDs(t, res.ResultIDs(), []string{"item-a", "item-c"})
	if h.vectors.calls[0].topK != 2 {
		t.Errorf("topK = %d, want 2", h.vectors.calls[0].topK)
	}
	equalIDs(t, relatedIDs(res.RelatedResults), []string{"item-e", "item-f"})
}

func TestSearch_VectorFailureDegrades(t *testing.T) {
	metrics.RegisterSearchMetrics()
	h, all := newHarness(t, 3)
	h.lexical.hits = all[:1]
	h.vectors.err = errUnavailable
	before := testutil.ToFloat64(metrics.SearchBackfillDegradedTotal)

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 5, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("vector failure must not fail the request: %v", err)
	}
	if len(res.Results) != 1 || len(res.RelatedResults) != 0 {
		t.Errorf("results=%v related=%v", res.ResultIDs(), res.RelatedIDs())
	}
	if got := testutil.ToFloat64(metrics.SearchBackfillDegradedTotal); got != before+1 {
		t.Errorf("degraded counter = %v, want %v", got, before+1)
	}
}

func TestSearch_VectorTimeoutDegrades(t *testing.T) {
	h, _ := newHarness(t, 3)
	h.vectors.delay = time.Second
	h.vectors.ids = []string{"item-a"}
	h.svc.timeouts.Vector = 10 * time.Millisecond

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 5, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.RelatedResults) != 0 {
		t.Errorf("related = %v", res.RelatedIDs())
	}
}

func TestSearch_RerankTimeoutFallsBackToVectors(t *testing.T) {
	h, all := newHarness(t, 3)
	h.lexical.hits = all[:2]
	h.docEmb.delay = time.Second
	h.vectors.ids = []string{"item-c"}
	h.svc.timeouts.Rerank = 20 * time.Millisecond

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 5, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 0 {
		t.Errorf("results = %v, want none scored in time", res.ResultIDs())
	}
	if len(h.vectors.calls) != 1 || h.vectors.calls[0].topK != 5 {
		t.Fatalf("vector calls = %+v, want one with topK 5", h.vectors.calls)
	}
	equalIDs(t, res.RelatedIDs(), []string{"item-c"})
}

func TestSearch_RerankTimeoutKeepsScoredCandidates(t *testing.T) {
	h, all := newHarness(t, 3)
	h.lexical.hits = all[:2]
	h.docEmb.delayFor = map[string]time.Duration{all[1].CompositeText(language.English): time.Second}
	h.vectors.ids = []string{"item-a", "item-c"}
	h.svc.timeouts.Rerank = 50 * time.Millisecond

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 3, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	equalIDs(t, res.ResultIDs(), []string{"item-a"})
	if len(h.vectors.calls) != 1 || h.vectors.calls[0].topK != 2 {
		t.Fatalf("vector calls = %+v, want one with topK 2", h.vectors.calls)
	}
	equalIDs(t, res.RelatedIDs(), []string{"item-c"})
}

func TestSearch_CallerDeadlineDuringRerankFails(t *testing.T) {
	h, all := newHarness(t, 3)
	h.lexical.hits = all[:2]
	h.docEmb.delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := h.svc.Search(ctx, mustQuery(t, "nail", 5, 0.3, filter.Expression{}))
	var se *domain.StageError
	if !errors.As(err, &se) || se.Stage != domain.StageRerank {
		t.Fatalf("expected rerank StageError, got %v", err)
	}
	if !se.Timeout() {
		t.Error("expected Timeout() for a caller deadline")
	}
	if len(h.vectors.calls) != 0 {
		t.Errorf("vector stage must not run after the caller gave up, got %d calls", len(h.vectors.calls))
	}
}

func TestSearch_HydrationFailureDegrades(t *testing.T) {
	h, _ := newHarness(t, 3)
	h.vectors.ids = []string{"item-a", "item-b"}
	h.items.err = errUnavailable

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 5, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.RelatedResults) != 0 {
		t.Errorf("related = %v", res.RelatedIDs())
	}
}

func TestSearch_HydrationSkipsMissingIDs(t *testing.T) {
	h, _ := newHarness(t, 3)
	h.vectors.ids = []string{"item-c", "gone", "item-a"}

	res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", 5, 0.3, filter.Expression{}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	equalIDs(t, relatedIDs(res.RelatedResults), []string{"item-c", "item-a"})
	equalIDs(t, h.items.calls[0], []string{"item-c", "gone", "item-a"})
}

func TestSearch_DisjointAndBoundedAcrossLimits(t *testing.T) {
	for limit := 1; limit <= 8; limit++ {
		for lexical := 0; lexical <= 8; lexical++ {
			h, all := newHarness(t, 8)
			h.lexical.hits = all[:lexical]
			h.vectors.ids = []string{"item-h", "item-a", "item-g", "item-b", "item-f", "item-c", "item-e", "item-d"}

			res, err := h.svc.Search(context.Background(), mustQuery(t, "nail", limit, 0.3, filter.Expression{}))
			if err != nil {
				t.Fatalf("limit=%d lexical=%d: %v", limit, lexical, err)
			}
			if len(res.Results) > limit || res.Len() > limit {
				t.Fatalf("limit=%d lexical=%d: bound violated (%d+%d)",
					limit, lexical, len(res.Results), len(res.RelatedResults))
			}
			seen := map[string]bool{}
			for _, id := range res.ResultIDs() {
				seen[id] = true
			}
			for _, id := range res.RelatedIDs() {
				if seen[id] {
					t.Fatalf("limit=%d lexical=%d: %s in both buckets", limit, lexical, id)
				}
			}
		}
	}
}

func TestExcludeResults_KeepsOrder(t *testing.T) {
	items, _ := catalog(t, 4)
	results := []result.ScoredCandidate{{Item: items[1], Score: 0.9}}

	got := excludeResults(items, results)
	equalIDs(t, item.IDs(got), []string{"item-a", "item-c", "item-d"})
}
