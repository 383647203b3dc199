// Package catalog serves the lexical and vector retrieval channels from the
// per-language Redis FT indexes built over item hashes.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/souq/internal/db"
	"github.com/kailas-cloud/souq/internal/domain/language"
	itemrepo "github.com/kailas-cloud/souq/internal/repository/item"
)

// indexManager is the consumer interface for index lifecycle (ISP).
type indexManager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// stemmer maps catalog languages to FT.CREATE LANGUAGE values.
var stemmer = map[language.Language]string{
	language.Arabic:  "arabic",
	language.English: "english",
}

// Indexes manages the per-language catalog indexes.
type Indexes struct {
	store      indexManager
	prefix     string
	itemPrefix string
}

// NewIndexes creates an index manager. keyPrefix is the deployment prefix
// (e.g. "souq:"), itemPrefix the item hash prefix from the item repository.
func NewIndexes(s indexManager, keyPrefix, itemPrefix string) *Indexes {
	return &Indexes{store: s, prefix: keyPrefix, itemPrefix: itemPrefix}
}

// Definition returns the FT schema of the lang index.
func (ix *Indexes) Definition(lang language.Language, dims int) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(lang.IndexName(ix.prefix)).
		Prefix(ix.itemPrefix).
		Language(stemmer[lang]).
		TextWithOpts(itemrepo.SearchField(lang), 1, lang == language.Arabic).
		Tag(itemrepo.FieldCategory).
		Tag(itemrepo.FieldMaterial).
		Tag(itemrepo.ColorField(lang)).
		Numeric(itemrepo.FieldPrice).
		VectorFlat(itemrepo.VectorField(lang), dims, db.DistanceCosine, 0).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build %s index: %w", lang, err)
	}
	return def, nil
}

// EnsureIndexes creates every missing language index. Existing indexes are
// left untouched. It returns the names of indexes it created.
func (ix *Indexes) EnsureIndexes(ctx context.Context, dims int) ([]string, error) {
	var created []string
	for _, lang := range language.All {
		def, err := ix.Definition(lang, dims)
		if err != nil {
			return created, err
		}
		if err := ix.store.CreateIndex(ctx, def); err != nil {
			if errors.Is(err, db.ErrIndexExists) {
				continue
			}
			return created, fmt.Errorf("create index %s: %w", def.Name, err)
		}
		created = append(created, def.Name)
	}
	return created, nil
}

// DropIndexes removes the language indexes; item hashes are kept.
func (ix *Indexes) DropIndexes(ctx context.Context) error {
	for _, lang := range language.All {
		name := lang.IndexName(ix.prefix)
		if err := ix.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}

// Ready reports whether every language index exists.
func (ix *Indexes) Ready(ctx context.Context) (bool, error) {
	for _, lang := range language.All {
		ok, err := ix.store.IndexExists(ctx, lang.IndexName(ix.prefix))
		if err != nil {
			return false, fmt.Errorf("probe index %s: %w", lang, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
