// Package retrieval implements the adaptive search loop: threshold
// selection, recall retry, price filtering, and backfill.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/query"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
	"github.com/kailas-cloud/neusearch/internal/metrics"
)

// Options holds request defaults.
type Options struct {
	DefaultThreshold float64 // used when a request omits the threshold
	DefaultCount     int     // used when a request passes 0
	Enhance          bool    // used when a request omits Enhance
}

// DefaultOptions returns the stock defaults.
func DefaultOptions() Options {
	return Options{DefaultThreshold: DefaultThreshold, DefaultCount: DefaultCount, Enhance: true}
}

// Request is one retrieval call.
type Request struct {
	Query      string
	Count      int      // clamped to [1,20]; 0 means the default
	Threshold  *float64 // clamped to [0,1]; nil means the default
	AutoAdjust bool
	Enhance    *bool
}

// Response is the ranked outcome. Results may be empty; Price tells the
// caller whether a price constraint was in play so it can phrase "no matches".
type Response struct {
	Results          []result.Result
	PriceConstrained bool
	Price            *query.PriceConstraint
	Threshold        float64 // selected in step one, before retry relaxation
}

// Engine runs retrieval requests. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	index    VectorIndex
	embedder Embedder
	opts     Options
	logger   *zap.Logger
}

// New creates an engine.
func New(index VectorIndex, embedder Embedder, opts Options, logger *zap.Logger) *Engine {
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = DefaultCount
	}
	if math.IsNaN(opts.DefaultThreshold) || opts.DefaultThreshold <= 0 {
		opts.DefaultThreshold = DefaultThreshold
	}
	opts.DefaultThreshold = clamp(opts.DefaultThreshold, 0, 1)
	opts.DefaultCount = clampCount(opts.DefaultCount)
	return &Engine{index: index, embedder: embedder, opts: opts, logger: logger}
}

// queryContext is the request-scoped state shared by the passes.
type queryContext struct {
	raw      string
	enhanced string
	vector   []float32
	embedErr error
	embedded bool
}

// Retrieve runs the search loop. Only an empty query is rejected; provider
// and index failures degrade to fewer results.
func (e *Engine) Retrieve(ctx context.Context, req Request) (Response, error) {
	raw := strings.TrimSpace(req.Query)
	if raw == "" {
		return Response{}, domain.ErrEmptyQuery
	}
	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	count := e.opts.DefaultCount
	if req.Count != 0 {
		count = clampCount(req.Count)
	}
	threshold := e.opts.DefaultThreshold
	if req.Threshold != nil && !math.IsNaN(*req.Threshold) {
		threshold = clamp(*req.Threshold, 0, 1)
	}
	if req.AutoAdjust {
		threshold = AdjustThreshold(threshold, len(strings.Fields(raw)))
	}

	enhance := e.opts.Enhance
	if req.Enhance != nil {
		enhance = *req.Enhance
	}
	qc := &queryContext{raw: raw, enhanced: raw}
	if enhance {
		if enhanced := query.Enhance(raw); enhanced != "" {
			qc.enhanced = enhanced
		}
	}
	price := query.ParsePrice(raw)

	// First pass, then one relaxed retry when recall is short.
	active := threshold
	candidates := e.pass(ctx, qc, metrics.PassFirst, firstPassFactor*count, active)
	if len(candidates) < count && canRetry(active) {
		active = relax(active, retryDelta)
		if more := e.pass(ctx, qc, metrics.PassRetry, firstPassFactor*count, active); len(more) > len(candidates) {
			candidates = more
		}
	}

	filtered := filterByPrice(candidates, price)
	if price.Active() && len(filtered) < count {
		before := len(filtered)
		more := e.pass(ctx, qc, metrics.PassBackfill, backfillFactor*count, relax(active, backfillDelta))
		filtered = union(filtered, filterByPrice(more, price))
		e.logger.Debug("Backfill merged",
			zap.Int("before", before),
			zap.Int("after", len(filtered)),
		)
	}

	final := finalize(filtered, count)
	metrics.RetrievalResults.Observe(float64(len(final)))

	e.logger.Debug("Retrieval completed",
		zap.String("query", raw),
		zap.Int("count", count),
		zap.Float64("threshold", threshold),
		zap.Float64("final_threshold", active),
		zap.Bool("price_constrained", price.Active()),
		zap.Int("results", len(final)),
	)

	return Response{
		Results:          final,
		PriceConstrained: price.Active(),
		Price:            price,
		Threshold:        threshold,
	}, nil
}

// pass runs one search. Failures are absorbed as zero candidates.
func (e *Engine) pass(ctx context.Context, qc *queryContext, name string, limit int, threshold float64) []result.Result {
	metrics.RetrievalPassesTotal.WithLabelValues(name).Inc()

	vec, err := e.vector(ctx, qc)
	if err != nil {
		metrics.RetrievalPassFailuresTotal.WithLabelValues(name, "embed").Inc()
		e.logger.Warn("Search pass skipped: query embedding unavailable",
			zap.String("pass", name),
			zap.Error(err),
		)
		return nil
	}

	hits, err := e.index.Search(ctx, vec, limit, threshold)
	if err != nil {
		metrics.RetrievalPassFailuresTotal.WithLabelValues(name, "search").Inc()
		e.logger.Warn("Search pass failed",
			zap.String("pass", name),
			zap.Float64("threshold", threshold),
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return nil
	}

	// The index contract already guarantees this; a misbehaving backend
	// must not break the floor or the cap.
	hits = result.Clip(slices.Clone(hits), limit, threshold)

	metrics.RetrievalPassHits.WithLabelValues(name).Observe(float64(len(hits)))
	e.logger.Debug("Search pass",
		zap.String("pass", name),
		zap.Float64("threshold", threshold),
		zap.Int("limit", limit),
		zap.Int("hits", len(hits)),
	)
	return hits
}

// vector embeds the enhanced query once per request. A failure is kept so
// later passes do not call the provider again.
func (e *Engine) vector(ctx context.Context, qc *queryContext) ([]float32, error) {
	if !qc.embedded {
		qc.embedded = true
		qc.vector, qc.embedErr = e.embedder.Embed(ctx, qc.enhanced, domain.PurposeQuery)
		if qc.embedErr != nil {
			qc.embedErr = fmt.Errorf("embed query: %w", qc.embedErr)
		}
	}
	return qc.vector, qc.embedErr
}

// filterByPrice keeps items the constraint allows. Missing prices pass a
// max-only constraint and fail any min bound.
func filterByPrice(rs []result.Result, c *query.PriceConstraint) []result.Result {
	if !c.Active() {
		return rs
	}
	out := make([]result.Result, 0, len(rs))
	for _, r := range rs {
		if c.Allows(r.Item.Price()) {
			out = append(out, r)
		}
	}
	return out
}

// union appends b to a, skipping IDs already present. The first occurrence wins.
func union(a, b []result.Result) []result.Result {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]result.Result, 0, len(a)+len(b))
	for _, set := range [][]result.Result{a, b} {
		for _, r := range set {
			id := r.ID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// finalize drops hits without an item, dedupes, ranks and truncates.
func finalize(rs []result.Result, count int) []result.Result {
	kept := make([]result.Result, 0, len(rs))
	for _, r := range rs {
		if r.ID() != "" {
			kept = append(kept, r)
		}
	}
	kept = union(kept, nil)
	result.Sort(kept)
	if len(kept) > count {
		kept = kept[:count]
	}
	return kept
}
