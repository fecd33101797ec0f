package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
	healthuc "github.com/kailas-cloud/neusearch/internal/usecase/health"
	"github.com/kailas-cloud/neusearch/internal/usecase/recommend"
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

type mockRecommender struct {
	recommendFn func(ctx context.Context, req recommend.Request) (recommend.Response, error)
	requests    []recommend.Request
}

func (m *mockRecommender) Recommend(ctx context.Context, req recommend.Request) (recommend.Response, error) {
	m.requests = append(m.requests, req)
	if m.recommendFn != nil {
		return m.recommendFn(ctx, req)
	}
	return recommend.Response{}, nil
}

type mockItems struct {
	items map[string]item.Item
	err   error
}

func (m *mockItems) Get(_ context.Context, id string) (item.Item, error) {
	if m.err != nil {
		return item.Item{}, m.err
	}
	it, ok := m.items[id]
	if !ok {
		return item.Item{}, domain.ErrNotFound
	}
	return it, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	retriever   *mockRetriever
	recommender *mockRecommender
	items       *mockItems
	health      *mockHealth
	handler     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		retriever:   &mockRetriever{},
		recommender: &mockRecommender{},
		items:       &mockItems{items: map[string]item.Item{}},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{healthuc.CheckCatalog: healthuc.CheckOK},
		}},
	}
	s := NewServer(f.retriever, f.recommender, f.items, f.health, Options{AutoAdjust: true}, zap.NewNop())
	f.handler = NewRouter(s, zap.NewNop())
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func price(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func mustItem(t *testing.T, f item.Fields) item.Item {
	t.Helper()
	it, err := item.New(f)
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it
}
