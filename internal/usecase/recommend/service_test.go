package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/query"
	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
)

func TestRecommend_Discovery(t *testing.T) {
	r := returning(retrieval.Response{Results: twoProducts(t)})
	g := replying("Both pieces wick sweat and move with you. Do you prefer long sleeves?")
	o := newTestOrchestrator(t, r, g)

	resp, err := o.Recommend(context.Background(), Request{Query: "gym top", Count: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Intent != query.IntentDiscovery {
		t.Errorf("expected discovery intent, got %s", resp.Intent)
	}
	if len(resp.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(resp.Items))
	}
	if !resp.NeedsClarification {
		t.Error("a reply asking a question needs clarification")
	}
	if len(r.requests) != 1 || r.requests[0].Count != 3 || r.requests[0].Query != "gym top" {
		t.Errorf("unexpected retrieval request: %+v", r.requests)
	}
	if len(g.prompts) != 1 || !strings.Contains(g.prompts[0], "User Query: gym top") {
		t.Errorf("prompt must carry the query, got %v", g.prompts)
	}
}

func TestRecommend_InformationalOmitsItems(t *testing.T) {
	r := returning(retrieval.Response{Results: twoProducts(t)})
	g := replying("Yes, it also comes in black.")
	o := newTestOrchestrator(t, r, g)

	resp, err := o.Recommend(context.Background(), Request{Query: "Does this come in black?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Intent != query.IntentInformational {
		t.Fatalf("expected informational intent, got %s", resp.Intent)
	}
	if resp.Items != nil {
		t.Errorf("informational reply must omit items, got %d", len(resp.Items))
	}
	if len(r.requests) != 1 {
		t.Error("retrieval must still run to locate the referenced item")
	}
	if !strings.Contains(g.prompts[0], "asking about a product they already have in view") {
		t.Error("informational prompt must use the answer instructions")
	}
	if resp.Text != "Yes, it also comes in black." {
		t.Errorf("unexpected text %q", resp.Text)
	}
}

func TestRecommend_NoResults(t *testing.T) {
	g := &mockGenerator{}
	o := newTestOrchestrator(t, &mockRetriever{}, g)

	resp, err := o.Recommend(context.Background(), Request{Query: "flux capacitor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != TextNoResults {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("discovery reply must carry an empty item list, got %v", resp.Items)
	}
	if len(g.prompts) != 0 {
		t.Error("generator must not be called without items")
	}
}

func TestRecommend_NoResultsInPriceRange(t *testing.T) {
	o := newTestOrchestrator(t, returning(retrieval.Response{
		PriceConstrained: true,
		Price:            &query.PriceConstraint{Max: price(5)},
	}), &mockGenerator{})

	resp, _ := o.Recommend(context.Background(), Request{Query: "shoes under 5"})
	if resp.Text != TextNoResultsPrice {
		t.Errorf("expected price-range reply, got %q", resp.Text)
	}
}

func TestRecommend_GenerationFailureFallsBack(t *testing.T) {
	g := &mockGenerator{generateFn: func(context.Context, string) (string, error) {
		return "", fmt.Errorf("503: %w", domain.ErrGenerationFailed)
	}}
	o := newTestOrchestrator(t, returning(retrieval.Response{Results: twoProducts(t)}), g)

	resp, err := o.Recommend(context.Background(), Request{Query: "gym top"})
	if err != nil {
		t.Fatalf("provider failure must not surface: %v", err)
	}
	if resp.Text != "I found 2 product(s) that might match your query." {
		t.Errorf("unexpected fallback %q", resp.Text)
	}
	if len(resp.Items) != 2 {
		t.Errorf("fallback must keep items, got %d", len(resp.Items))
	}
	if len(g.prompts) != 2 {
		t.Errorf("transient failure must be retried once, got %d calls", len(g.prompts))
	}
	if resp.NeedsClarification {
		t.Error("templated reply never needs clarification")
	}
}

func TestRecommend_PermanentGenerationFailureNotRetried(t *testing.T) {
	g := &mockGenerator{generateFn: func(context.Context, string) (string, error) {
		return "", fmt.Errorf("401: %w", domain.ErrProviderUnauthorized)
	}}
	o := newTestOrchestrator(t, returning(retrieval.Response{Results: twoProducts(t)}), g)

	_, _ = o.Recommend(context.Background(), Request{Query: "gym top"})
	if len(g.prompts) != 1 {
		t.Errorf("auth failure must not be retried, got %d calls", len(g.prompts))
	}
}

func TestRecommend_RetrySucceeds(t *testing.T) {
	calls := 0
	g := &mockGenerator{generateFn: func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", domain.ErrRateLimited
		}
		return "Great picks for the gym.", nil
	}}
	o := newTestOrchestrator(t, returning(retrieval.Response{Results: twoProducts(t)}), g)

	resp, _ := o.Recommend(context.Background(), Request{Query: "gym top"})
	if resp.Text != "Great picks for the gym." {
		t.Errorf("expected generated text after retry, got %q", resp.Text)
	}
}

func TestRecommend_NilGenerator(t *testing.T) {
	o := newTestOrchestrator(t, returning(retrieval.Response{Results: twoProducts(t)}), nil)

	resp, err := o.Recommend(context.Background(), Request{Query: "gym top"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "I found 2 product(s) that might match your query." {
		t.Errorf("unexpected text %q", resp.Text)
	}
}

func TestRecommend_CleansListedProducts(t *testing.T) {
	reply := "These fit a gym-to-office day.\n- Dri-Fit Tee: breathable\n- Sports Bra: supportive\n\n\n\nWant more colors?"
	o := newTestOrchestrator(t, returning(retrieval.Response{Results: twoProducts(t)}), replying(reply))

	resp, _ := o.Recommend(context.Background(), Request{Query: "gym top"})
	if strings.Contains(resp.Text, "Dri-Fit Tee") || strings.Contains(resp.Text, "Sports Bra") {
		t.Errorf("listed products must be stripped, got %q", resp.Text)
	}
	if strings.Contains(resp.Text, "\n\n\n") {
		t.Errorf("blank runs must collapse, got %q", resp.Text)
	}
}

func TestRecommend_EmptyQuery(t *testing.T) {
	r := &mockRetriever{retrieveFn: func(context.Context, retrieval.Request) (retrieval.Response, error) {
		return retrieval.Response{}, domain.ErrEmptyQuery
	}}
	o := newTestOrchestrator(t, r, &mockGenerator{})

	_, err := o.Recommend(context.Background(), Request{Query: "  "})
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestRecommend_RetrievalErrorDegrades(t *testing.T) {
	r := &mockRetriever{retrieveFn: func(context.Context, retrieval.Request) (retrieval.Response, error) {
		return retrieval.Response{}, errors.New("boom")
	}}
	o := newTestOrchestrator(t, r, &mockGenerator{})

	resp, err := o.Recommend(context.Background(), Request{Query: "gym top"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != TextError {
		t.Errorf("unexpected text %q", resp.Text)
	}
}

func TestRecommend_AutoAdjustPassedThrough(t *testing.T) {
	r := &mockRetriever{}
	opts := testOptions()
	opts.AutoAdjust = true
	o := New(r, &mockGenerator{}, opts, zap.NewNop())

	_, _ = o.Recommend(context.Background(), Request{Query: "shoes"})
	if !r.requests[0].AutoAdjust {
		t.Error("auto-adjust option must reach retrieval")
	}
}

func TestRecommend_HistoryValidation(t *testing.T) {
	tests := []struct {
		name    string
		history []Message
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", []Message{{RoleUser, "hi"}, {RoleAssistant, "hello"}}, false},
		{"bad role", []Message{{"system", "be terse"}}, true},
		{"blank content", []Message{{RoleUser, "   "}}, true},
		{"too long", make([]Message, MaxHistory+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &mockRetriever{}
			o := newTestOrchestrator(t, r, &mockGenerator{})

			_, err := o.Recommend(context.Background(), Request{Query: "shoes", History: tt.history})
			if tt.wantErr {
				var ie *domain.InputError
				if !errors.As(err, &ie) {
					t.Fatalf("expected InputError, got %v", err)
				}
				if len(r.requests) != 0 {
					t.Error("invalid history must be rejected before retrieval")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
