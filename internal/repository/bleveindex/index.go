// Package bleveindex is an embedded lexical driver backed by bleve. It keeps
// one document per catalog item with a language-analyzed search field per
// language and keyword fields for equality filters.
package bleveindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/ar"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	itemrepo "github.com/kailas-cloud/souq/internal/repository/item"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("lexical index is closed")

// analyzers maps each catalog language to its bleve analyzer.
var analyzers = map[language.Language]string{
	language.Arabic:  ar.AnalyzerName,
	language.English: en.AnalyzerName,
}

// hydrator loads items by id preserving order (ISP).
type hydrator interface {
	GetMany(ctx context.Context, ids []string) ([]domitem.Item, error)
}

// Index is a bleve-backed lexical store.
type Index struct {
	index bleve.Index
	items hydrator
}

// Open opens the index at path, creating it when missing. An empty path
// creates an in-memory index.
func Open(path string, items hydrator) (*Index, error) {
	m := newMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	return &Index{index: idx, items: items}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentStaticMapping()
	for _, lang := range language.All {
		text := bleve.NewTextFieldMapping()
		text.Analyzer = analyzers[lang]
		text.Store = false
		text.IncludeTermVectors = false
		doc.AddFieldMappingsAt(itemrepo.SearchField(lang), text)
		doc.AddFieldMappingsAt(itemrepo.ColorField(lang), keywordField())
	}
	doc.AddFieldMappingsAt(itemrepo.FieldCategory, keywordField())
	doc.AddFieldMappingsAt(itemrepo.FieldMaterial, keywordField())

	price := bleve.NewNumericFieldMapping()
	price.Store = false
	doc.AddFieldMappingsAt(itemrepo.FieldPrice, price)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

func keywordField() *mapping.FieldMapping {
	f := bleve.NewKeywordFieldMapping()
	f.Analyzer = keyword.Name
	f.Store = false
	return f
}

// document builds the indexed representation of it. Keyword values are
// lowercased to match tag semantics of the Redis driver.
func document(it *domitem.Item) map[string]any {
	doc := map[string]any{
		itemrepo.FieldPrice: it.Price(),
	}
	if v := it.Category(); v != "" {
		doc[itemrepo.FieldCategory] = strings.ToLower(v)
	}
	if v := it.Material(); v != "" {
		doc[itemrepo.FieldMaterial] = strings.ToLower(v)
	}
	for _, lang := range language.All {
		if text := itemrepo.SearchText(it, lang); text != "" {
			doc[itemrepo.SearchField(lang)] = text
		}
		if c := it.Color().Exact(lang); c != "" {
			doc[itemrepo.ColorField(lang)] = strings.ToLower(c)
		}
	}
	return doc
}

// Index adds or replaces items in one batch.
func (x *Index) Index(_ context.Context, items ...domitem.Item) error {
	if x.index == nil {
		return ErrClosed
	}
	if len(items) == 0 {
		return nil
	}
	batch := x.index.NewBatch()
	for i := range items {
		if err := batch.Index(items[i].ID(), document(&items[i])); err != nil {
			return fmt.Errorf("index item %s: %w", items[i].ID(), err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// Search returns up to topK items matching normalizedQuery in lang, best first.
func (x *Index) Search(
	ctx context.Context, lang language.Language, normalizedQuery string, filters filter.Expression, topK int,
) ([]domitem.Item, error) {
	if x.index == nil {
		return nil, ErrClosed
	}
	if strings.TrimSpace(normalizedQuery) == "" || topK <= 0 {
		return nil, nil
	}

	match := bleve.NewMatchQuery(normalizedQuery)
	match.SetField(itemrepo.SearchField(lang))

	var q query.Query = match
	if conds := filterQueries(filters, lang); len(conds) > 0 {
		q = bleve.NewConjunctionQuery(append([]query.Query{match}, conds...)...)
	}

	req := bleve.NewSearchRequestOptions(q, topK, 0, false)
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search %s: %w", lang, err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	items, err := x.items.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate lexical hits: %w", err)
	}
	return items, nil
}

func filterQueries(expr filter.Expression, lang language.Language) []query.Query {
	if expr.IsEmpty() {
		return nil
	}
	conds := expr.Conditions()
	out := make([]query.Query, 0, len(conds))
	for _, c := range conds {
		switch c.Attribute() {
		case filter.Price:
			n, inclusive := c.Number(), true
			r := bleve.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
			r.SetField(itemrepo.FieldPrice)
			out = append(out, r)
		default:
			field := string(c.Attribute())
			if c.Attribute() == filter.Color {
				field = itemrepo.ColorField(lang)
			}
			t := bleve.NewTermQuery(strings.ToLower(c.Value()))
			t.SetField(field)
			out = append(out, t)
		}
	}
	return out
}

// Count returns the number of indexed documents.
func (x *Index) Count() (uint64, error) {
	if x.index == nil {
		return 0, ErrClosed
	}
	n, err := x.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return n, nil
}

// Close releases the index.
func (x *Index) Close() error {
	if x.index == nil {
		return nil
	}
	err := x.index.Close()
	x.index = nil
	if err != nil {
		return fmt.Errorf("close lexical index: %w", err)
	}
	return nil
}
