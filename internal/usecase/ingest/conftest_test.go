package ingest

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
)

type mockCatalog struct {
	upsertFn  func(ctx context.Context, items []item.Item) error
	listFn    func(ctx context.Context, limit int) ([]item.Item, error)
	setFn     func(ctx context.Context, id string, vec []float32) error
	upserted  [][]item.Item
	embedded  map[string][]float32
	listLimit int
}

func (m *mockCatalog) Upsert(ctx context.Context, items []item.Item) error {
	m.upserted = append(m.upserted, append([]item.Item(nil), items...))
	if m.upsertFn != nil {
		return m.upsertFn(ctx, items)
	}
	return nil
}

func (m *mockCatalog) ListMissingEmbedding(ctx context.Context, limit int) ([]item.Item, error) {
	m.listLimit = limit
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCatalog) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	if m.setFn != nil {
		if err := m.setFn(ctx, id, vec); err != nil {
			return err
		}
	}
	if m.embedded == nil {
		m.embedded = make(map[string][]float32)
	}
	m.embedded[id] = vec
	return nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
	batches [][]string
	purpose domain.Purpose
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string, purpose domain.Purpose) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	m.purpose = purpose
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func newTestService(t *testing.T, c Catalog, e BatchEmbedder) *Service {
	t.Helper()
	return New(c, e, zap.NewNop())
}

func testItems(t *testing.T, ids ...string) []item.Item {
	t.Helper()
	out := make([]item.Item, 0, len(ids))
	for _, id := range ids {
		it, err := item.New(item.Fields{ID: id, Title: "Item " + id})
		if err != nil {
			t.Fatalf("item %s: %v", id, err)
		}
		out = append(out, it)
	}
	return out
}
