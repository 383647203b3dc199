// Package item implements catalog item creation and lookup.
package item

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/souq/internal/domain"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
)

// Service creates items with one document embedding per catalog language.
type Service struct {
	repo    Repository
	embed   Embedder
	indexer Indexer
	now     func() time.Time
	newID   func() string
}

// New creates an item service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed, now: time.Now, newID: uuid.NewString}
}

// WithIndexer sets the lexical indexer used by drivers that do not index
// item hashes on their own.
func (s *Service) WithIndexer(idx Indexer) *Service {
	s.indexer = idx
	return s
}

// Create validates in, embeds it and stores the new item.
func (s *Service) Create(ctx context.Context, in domitem.Input) (domitem.Item, error) {
	it, err := domitem.New(s.newID(), in, s.now())
	if err != nil {
		return domitem.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}

	vectors, err := Vectorize(ctx, s.embed, &it)
	if err != nil {
		return domitem.Item{}, err
	}
	it = it.WithVectors(vectors)

	if err := s.repo.Save(ctx, &it); err != nil {
		return domitem.Item{}, fmt.Errorf("save item: %w", err)
	}
	if s.indexer != nil {
		if err := s.indexer.Index(ctx, it); err != nil {
			return domitem.Item{}, fmt.Errorf("index item: %w", err)
		}
	}
	return it, nil
}

// Get returns an item or domain.ErrItemNotFound.
func (s *Service) Get(ctx context.Context, id string) (domitem.Item, error) {
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return domitem.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// Vectorize embeds the composite text of it in every catalog language.
func Vectorize(ctx context.Context, embed Embedder, it *domitem.Item) (map[language.Language][]float32, error) {
	vecs := make([][]float32, len(language.All))

	g, gctx := errgroup.WithContext(ctx)
	for i, lang := range language.All {
		g.Go(func() error {
			res, err := embed.Embed(gctx, it.CompositeText(lang))
			if err != nil {
				return fmt.Errorf("vectorize %s text: %w", lang, err)
			}
			if len(res.Embedding) == 0 {
				return fmt.Errorf("vectorize %s text: %w", lang, domain.ErrEmbeddingProviderError)
			}
			vecs[i] = res.Embedding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped per language
	}

	out := make(map[language.Language][]float32, len(language.All))
	for i, lang := range language.All {
		out[lang] = vecs[i]
	}
	return out, nil
}
