package recommend

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
	"github.com/kailas-cloud/neusearch/internal/retry"
	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
)

type mockRetriever struct {
	retrieveFn func(ctx context.Context, req retrieval.Request) (retrieval.Response, error)
	requests   []retrieval.Request
}

func (m *mockRetriever) Retrieve(ctx context.Context, req retrieval.Request) (retrieval.Response, error) {
	m.requests = append(m.requests, req)
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, req)
	}
	return retrieval.Response{Results: []result.Result{}}, nil
}

func returning(resp retrieval.Response) *mockRetriever {
	return &mockRetriever{retrieveFn: func(context.Context, retrieval.Request) (retrieval.Response, error) {
		return resp, nil
	}}
}

type mockGenerator struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
	prompts    []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return "These match what you described.", nil
}

func replying(text string) *mockGenerator {
	return &mockGenerator{generateFn: func(context.Context, string) (string, error) { return text, nil }}
}

func testOptions() Options {
	return Options{Policy: retry.Policy{Attempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}}
}

func newTestOrchestrator(t *testing.T, r Retriever, g TextGenerator) *Orchestrator {
	t.Helper()
	return New(r, g, testOptions(), zap.NewNop())
}

func price(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func product(t *testing.T, f item.Fields, score float64) result.Result {
	t.Helper()
	it, err := item.New(f)
	if err != nil {
		t.Fatalf("item %s: %v", f.ID, err)
	}
	return result.Result{Item: it, Score: score}
}

func twoProducts(t *testing.T) []result.Result {
	t.Helper()
	return []result.Result{
		product(t, item.Fields{ID: "tee", Title: "Dri-Fit Tee", Price: price(45), Vendor: "Acme"}, 0.9),
		product(t, item.Fields{ID: "bra", Title: "Sports Bra", Vendor: "Acme"}, 0.8),
	}
}
