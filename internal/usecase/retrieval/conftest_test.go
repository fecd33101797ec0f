package retrieval

import (
	"context"
	"math"
	"slices"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
)

type searchCall struct {
	limit     int
	threshold float64
}

// mockIndex serves a fixed pool honoring limit and threshold. searchFn,
// when set, replaces the pool for the given 1-based call number.
type mockIndex struct {
	pool     []result.Result
	calls    []searchCall
	searchFn func(call int, limit int, threshold float64) ([]result.Result, error)
}

func (m *mockIndex) Search(_ context.Context, vector []float32, limit int, threshold float64) ([]result.Result, error) {
	m.calls = append(m.calls, searchCall{limit: limit, threshold: threshold})
	if domain.IsZeroVector(vector) {
		return []result.Result{}, nil
	}
	if m.searchFn != nil {
		return m.searchFn(len(m.calls), limit, threshold)
	}
	return result.Clip(slices.Clone(m.pool), limit, threshold), nil
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string, purpose domain.Purpose) ([]float32, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if purpose != domain.PurposeQuery {
		return nil, domain.NewInputError("purpose", "retrieval must embed queries")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.vec, nil
}

func newTestEngine(t *testing.T, idx VectorIndex, emb Embedder) *Engine {
	t.Helper()
	return New(idx, emb, DefaultOptions(), zap.NewNop())
}

func unitEmbedder() *mockEmbedder {
	return &mockEmbedder{vec: []float32{1, 0}}
}

func price(v float64) *float64 { return &v }

func mustItem(t *testing.T, id string, p *float64) item.Item {
	t.Helper()
	it, err := item.New(item.Fields{ID: id, Title: "Item " + id, Price: p})
	if err != nil {
		t.Fatalf("item %s: %v", id, err)
	}
	return it
}

func hit(t *testing.T, id string, score float64, p *float64) result.Result {
	t.Helper()
	return result.Result{Item: mustItem(t, id, p), Score: score}
}

func ids(rs []result.Result) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].ID()
	}
	return out
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func threshold(v float64) *float64 { return &v }
