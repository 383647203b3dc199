package item

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/souq/internal/db"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	existsFn       func(ctx context.Context, key string) (bool, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "souq:"), ms
}

func testItem(t *testing.T, id string) domitem.Item {
	t.Helper()
	it, err := domitem.New(id, domitem.Input{
		Name:        domitem.Localized{Arabic: "كرسي خشبي", English: "Wooden chair"},
		Description: domitem.Localized{Arabic: "كرسي للحديقة", English: "Garden chair"},
		Color:       domitem.Localized{Arabic: "بني", English: "Brown"},
		Material:    "wood",
		Category:    "furniture",
		Price:       49.9,
	}, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build item: %v", err)
	}
	return it.WithVectors(map[language.Language][]float32{
		language.Arabic:  {0.1, 0.2, 0.3},
		language.English: {0.3, 0.2, 0.1},
	})
}
