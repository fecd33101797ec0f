// Package recommend wraps retrieval with intent detection and a generated
// explanation of the results.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/query"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
	"github.com/kailas-cloud/neusearch/internal/metrics"
	"github.com/kailas-cloud/neusearch/internal/retry"
	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxHistory caps the conversation history a caller may send.
const MaxHistory = 50

// Templated replies used when generation is skipped or fails.
const (
	TextNoResults      = "I couldn't find any products matching your query. Could you try rephrasing your request or be more specific about what you're looking for?"
	TextNoResultsPrice = "I couldn't find any products within that price range. Try adjusting your budget or broadening your search."
	TextError          = "I'm sorry, I encountered an error while processing your request. Please try again."
)

// Fallback reasons.
const (
	reasonNoResults      = "no_results"
	reasonNoResultsPrice = "no_results_price"
	reasonNoGenerator    = "generator_unavailable"
	reasonGeneration     = "generation_failed"
	reasonRetrieval      = "retrieval_failed"
)

// Message is one prior conversation turn.
type Message struct {
	Role    string
	Content string
}

// Request is one recommendation call.
type Request struct {
	Query   string
	Count   int
	History []Message
}

// Response carries the reply text. Items is nil for informational queries.
type Response struct {
	Text               string
	Items              []result.Result
	NeedsClarification bool
	Intent             query.Intent
}

// Options configures the orchestrator.
type Options struct {
	AutoAdjust bool
	Policy     retry.Policy // generator call site
}

// Orchestrator answers recommendation requests. It holds no per-request
// state. A nil generator answers every request with templated text.
type Orchestrator struct {
	retriever Retriever
	generator TextGenerator
	opts      Options
	logger    *zap.Logger
}

// New creates an orchestrator.
func New(retriever Retriever, generator TextGenerator, opts Options, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{retriever: retriever, generator: generator, opts: opts, logger: logger}
}

// Recommend retrieves items for the query and explains them. Only input
// errors are returned; provider failures degrade to templated text.
func (o *Orchestrator) Recommend(ctx context.Context, req Request) (Response, error) {
	if err := validateHistory(req.History); err != nil {
		return Response{}, err
	}

	intent := query.DetectIntent(req.Query)
	metrics.RecommendRequestsTotal.WithLabelValues(string(intent)).Inc()

	found, err := o.retriever.Retrieve(ctx, retrieval.Request{
		Query:      req.Query,
		Count:      req.Count,
		AutoAdjust: o.opts.AutoAdjust,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return Response{}, err
		}
		o.logger.Error("Retrieval failed", zap.Error(err))
		return o.fallback(reasonRetrieval, TextError, intent, nil), nil
	}

	if len(found.Results) == 0 {
		if found.PriceConstrained {
			return o.fallback(reasonNoResultsPrice, TextNoResultsPrice, intent, found.Results), nil
		}
		return o.fallback(reasonNoResults, TextNoResults, intent, found.Results), nil
	}

	if o.generator == nil {
		return o.fallback(reasonNoGenerator, foundText(len(found.Results)), intent, found.Results), nil
	}

	prompt := BuildPrompt(strings.TrimSpace(req.Query), intent, found.Results, req.History, o.logger)
	reply, err := retry.Do(ctx, o.opts.Policy, domain.IsTransient, func(ctx context.Context) (string, error) {
		return o.generator.Generate(ctx, prompt)
	})
	if err != nil {
		o.logger.Warn("Text generation failed, using templated reply",
			zap.Int("items", len(found.Results)),
			zap.Error(err),
		)
		return o.fallback(reasonGeneration, foundText(len(found.Results)), intent, found.Results), nil
	}

	text := Clean(reply)
	return Response{
		Text:               text,
		Items:              itemsFor(intent, found.Results),
		NeedsClarification: NeedsClarification(text),
		Intent:             intent,
	}, nil
}

func (o *Orchestrator) fallback(reason, text string, intent query.Intent, items []result.Result) Response {
	metrics.RecommendFallbacksTotal.WithLabelValues(reason).Inc()
	return Response{Text: text, Items: itemsFor(intent, items), Intent: intent}
}

func itemsFor(intent query.Intent, items []result.Result) []result.Result {
	if intent == query.IntentInformational {
		return nil
	}
	if items == nil {
		return []result.Result{}
	}
	return items
}

func foundText(n int) string {
	return fmt.Sprintf("I found %d product(s) that might match your query.", n)
}

func validateHistory(history []Message) error {
	if len(history) > MaxHistory {
		return domain.NewInputError("history", fmt.Sprintf("must have at most %d messages", MaxHistory))
	}
	for i, m := range history {
		switch m.Role {
		case RoleUser, RoleAssistant:
		default:
			return domain.NewInputError(fmt.Sprintf("history[%d].role", i), "must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			return domain.NewInputError(fmt.Sprintf("history[%d].content", i), "is required")
		}
	}
	return nil
}
