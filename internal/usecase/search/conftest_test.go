package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/souq/internal/domain"
	"github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
)

var errUnavailable = errors.New("connection refused")

// fakeEmbedder maps text to vectors; unknown text gets fallback.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	failFor  map[string]error
	err      error
	delay    time.Duration
	delayFor map[string]time.Duration
	texts    []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	delay := f.delay
	if d, ok := f.delayFor[text]; ok {
		delay = d
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	if err, ok := f.failFor[text]; ok {
		return domain.EmbeddingResult{}, err
	}
	if v, ok := f.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: f.fallback}, nil
}

func (f *fakeEmbedder) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type lexicalCall struct {
	lang    language.Language
	query   string
	filters filter.Expression
	topK    int
}

type fakeLexical struct {
	hits  []item.Item
	err   error
	calls []lexicalCall
}

func (f *fakeLexical) Search(
	_ context.Context, lang language.Language, q string, filters filter.Expression, topK int,
) ([]item.Item, error) {
	f.calls = append(f.calls, lexicalCall{lang: lang, query: q, filters: filters, topK: topK})
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type vectorCall struct {
	lang      language.Language
	vector    []float32
	topK      int
	threshold float64
	filters   filter.Expression
}

type fakeVectors struct {
	ids   []string
	err   error
	delay time.Duration
	calls []vectorCall
}

func (f *fakeVectors) Search(
	ctx context.Context, lang language.Language, vec []float32, topK int, threshold float64, filters filter.Expression,
) ([]string, error) {
	f.calls = append(f.calls, vectorCall{lang: lang, vector: vec, topK: topK, threshold: threshold, filters: filters})
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.ids) > topK {
		return f.ids[:topK], nil
	}
	return f.ids, nil
}

type fakeItems struct {
	byID  map[string]item.Item
	err   error
	calls [][]string
}

func (f *fakeItems) GetMany(_ context.Context, ids []string) ([]item.Item, error) {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]item.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := f.byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func newItem(t *testing.T, id, english, arabic string) item.Item {
	t.Helper()
	it, err := item.New(id, item.Input{
		Name:     item.Localized{English: english, Arabic: arabic},
		Category: "hardware",
		Price:    1,
	}, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("item.New(%s): %v", id, err)
	}
	return it
}

// catalog builds n English items "item-0".."item-n-1" named "name i".
func catalog(t *testing.T, n int) ([]item.Item, map[string]item.Item) {
	t.Helper()
	items := make([]item.Item, n)
	byID := make(map[string]item.Item, n)
	for i := range n {
		id := "item-" + string(rune('a'+i))
		items[i] = newItem(t, id, "name "+id, "")
		byID[id] = items[i]
	}
	return items, byID
}

type harness struct {
	queryEmb *fakeEmbedder
	docEmb   *fakeEmbedder
	lexical  *fakeLexical
	vectors  *fakeVectors
	items    *fakeItems
	svc      *Service
}

func newHarness(t *testing.T, n int) (*harness, []item.Item) {
	t.Helper()
	all, byID := catalog(t, n)
	h := &harness{
		queryEmb: &fakeEmbedder{fallback: []float32{1, 0}},
		docEmb:   &fakeEmbedder{fallback: []float32{1, 0}},
		lexical:  &fakeLexical{},
		vectors:  &fakeVectors{},
		items:    &fakeItems{byID: byID},
	}
	h.svc = New(h.queryEmb, h.lexical, NewReranker(h.docEmb, 4, nil), h.vectors, h.items, Options{})
	return h, all
}
