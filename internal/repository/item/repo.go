// Package item stores catalog items as Redis hashes, one per item, carrying
// the localized fields, the normalized search text and one vector per
// language for the catalog FT indexes.
package item

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/souq/internal/db"
	"github.com/kailas-cloud/souq/internal/domain"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
)

// store is the consumer interface for items (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements the item repository over Redis hashes.
type Repo struct {
	store  store
	prefix string
}

// New creates an item repository. keyPrefix namespaces every key (e.g. "souq:").
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix + "item:"}
}

// KeyPrefix is the prefix shared by every item hash; FT indexes cover it.
func (r *Repo) KeyPrefix() string { return r.prefix }

// Key returns the hash key of an item.
func (r *Repo) Key(id string) string { return r.prefix + id }

// IDFromKey extracts the item id from a hash key.
func (r *Repo) IDFromKey(key string) string { return strings.TrimPrefix(key, r.prefix) }

// Save writes one item.
func (r *Repo) Save(ctx context.Context, it *domitem.Item) error {
	key := r.Key(it.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(it)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// SaveMany writes items in one pipelined round-trip.
func (r *Repo) SaveMany(ctx context.Context, items []domitem.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]db.HashSetItem, len(items))
	for i := range items {
		batch[i] = db.HashSetItem{Key: r.Key(items[i].ID()), Fields: buildHashFields(&items[i])}
	}
	if err := r.store.HSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("hset batch of %d: %w", len(items), err)
	}
	return nil
}

// Get returns one item or domain.ErrItemNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domitem.Item, error) {
	key := r.Key(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domitem.Item{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	it, ok := parseHashFields(id, m)
	if !ok {
		return domitem.Item{}, domain.ErrItemNotFound
	}
	return it, nil
}

// Exists reports whether an item hash is present.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	key := r.Key(id)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return ok, nil
}

// GetMany resolves ids in order, skipping ids that no longer resolve to a record.
func (r *Repo) GetMany(ctx context.Context, ids []string) ([]domitem.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.Key(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall batch of %d: %w", len(ids), err)
	}

	out := make([]domitem.Item, 0, len(ids))
	for i, m := range maps {
		if i >= len(ids) {
			break
		}
		if it, ok := parseHashFields(ids[i], m); ok {
			out = append(out, it)
		}
	}
	return out, nil
}
