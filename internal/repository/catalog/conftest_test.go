package catalog

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/db"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
)

// mockStore implements the consumer interfaces for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)

	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
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

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "neusearch:", zap.NewNop()), ms
}

func price(v float64) *float64 { return &v }

func testItem(t *testing.T) item.Item {
	t.Helper()
	color := "Black"
	it, err := item.New(item.Fields{
		ID:           "p-1",
		ExternalID:   "ext-1",
		Title:        "Trail Runner",
		Handle:       "trail-runner",
		Description:  "Lightweight trail shoe",
		BodyHTML:     "<p>Lightweight trail shoe</p>",
		Price:        price(79.5),
		ComparePrice: price(99),
		Vendor:       "Hunnit",
		ProductType:  "Shoes",
		Category:     "Footwear",
		Tags:         []string{"Running", "trail"},
		ImageURLs:    []string{"https://cdn.example.com/a.jpg"},
		Variants:     item.VariantAttributes{Color: &color, Raw: map[string]string{"color": "Black"}},
	})
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it
}
