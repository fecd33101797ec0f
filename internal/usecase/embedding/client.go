// Package embedding turns text into index-ready vectors.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/metrics"
	"github.com/kailas-cloud/neusearch/internal/retry"
)

// Client implements domain.TextEmbedder over one provider chain per purpose.
// Both chains must produce the same vector space and dimension.
type Client struct {
	chains    map[domain.Purpose]domain.Embedder
	dimension int
	policy    retry.Policy
	logger    *zap.Logger
}

var _ domain.TextEmbedder = (*Client)(nil)

// NewClient builds a client. dimension is the configured D; 0 accepts
// whatever the provider returns.
func NewClient(document, query domain.Embedder, dimension int, policy retry.Policy, logger *zap.Logger) *Client {
	return &Client{
		chains: map[domain.Purpose]domain.Embedder{
			domain.PurposeDocument: document,
			domain.PurposeQuery:    query,
		},
		dimension: dimension,
		policy:    policy,
		logger:    logger,
	}
}

// Embed returns a vector for text. Blank text yields domain.ErrEmptyText.
// Output is unit length unless D is the provider-native normalized dimension.
func (c *Client) Embed(ctx context.Context, text string, purpose domain.Purpose) ([]float32, error) {
	inner, err := c.chain(purpose)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("Embedding requested for blank text", zap.String("purpose", string(purpose)))
		c.count(purpose, "empty")
		return nil, domain.ErrEmptyText
	}

	res, err := retry.Do(ctx, c.policy, domain.IsTransient, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return inner.Embed(ctx, text)
	})
	if err != nil {
		c.count(purpose, "error")
		return nil, fmt.Errorf("embed %s text: %w", purpose, err)
	}

	vec, err := c.finalize(res.Embedding)
	if err != nil {
		c.count(purpose, "error")
		return nil, err
	}
	c.count(purpose, "success")
	return vec, nil
}

// EmbedBatch is positionally aligned with texts. Blank inputs and elements
// that fail yield nil. When the provider rejects the whole batch each text is
// retried alone, so one bad element costs one nil.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, purpose domain.Purpose) ([][]float32, error) {
	inner, err := c.chain(purpose)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	idx := make([]int, 0, len(texts))
	send := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		send = append(send, t)
	}
	if skipped := len(texts) - len(send); skipped > 0 {
		c.logger.Debug("Skipped blank texts in batch", zap.Int("skipped", skipped))
	}
	if len(send) == 0 {
		return out, nil
	}

	be, ok := inner.(domain.BatchEmbedder)
	if !ok {
		c.embedEach(ctx, texts, idx, purpose, out)
		return out, ctx.Err()
	}

	res, err := retry.Do(ctx, c.policy, domain.IsTransient, func(ctx context.Context) (domain.BatchEmbeddingResult, error) {
		return be.BatchEmbed(ctx, send)
	})
	if err == nil && len(res.Embeddings) != len(send) {
		err = fmt.Errorf("%w: %d vectors for %d texts", domain.ErrEmbeddingProviderError, len(res.Embeddings), len(send))
	}
	if err != nil {
		if ctx.Err() != nil {
			return out, fmt.Errorf("embed batch: %w", ctx.Err())
		}
		c.logger.Warn("Batch embedding failed, falling back to single requests",
			zap.String("purpose", string(purpose)),
			zap.Int("batch_size", len(send)),
			zap.Error(err),
		)
		c.embedEach(ctx, texts, idx, purpose, out)
		return out, ctx.Err()
	}

	for j, i := range idx {
		vec, err := c.finalize(res.Embeddings[j])
		if err != nil {
			c.logger.Debug("Dropped invalid vector from batch", zap.Int("index", i), zap.Error(err))
			c.count(purpose, "error")
			continue
		}
		out[i] = vec
		c.count(purpose, "success")
	}
	return out, nil
}

func (c *Client) embedEach(ctx context.Context, texts []string, idx []int, purpose domain.Purpose, out [][]float32) {
	for _, i := range idx {
		if ctx.Err() != nil {
			return
		}
		vec, err := c.Embed(ctx, texts[i], purpose)
		if err != nil {
			c.logger.Debug("Batch element failed", zap.Int("index", i), zap.Error(err))
			continue
		}
		out[i] = vec
	}
}

func (c *Client) chain(purpose domain.Purpose) (domain.Embedder, error) {
	inner, ok := c.chains[purpose]
	if !ok || inner == nil {
		return nil, domain.NewInputError("purpose", fmt.Sprintf("unknown purpose %q", purpose))
	}
	return inner, nil
}

// finalize validates the provider vector and applies the normalization branch.
func (c *Client) finalize(vec []float32) ([]float32, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty vector: %w", domain.ErrEmbeddingProviderError)
	}
	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, fmt.Errorf("got %d dimensions, want %d: %w", len(vec), c.dimension, domain.ErrVectorDimMismatch)
	}
	if domain.IsZeroVector(vec) {
		return nil, fmt.Errorf("zero vector: %w", domain.ErrEmbeddingProviderError)
	}
	if len(vec) == domain.NativeNormalizedDimension {
		return vec, nil
	}
	return domain.Normalize(vec), nil
}

func (c *Client) count(purpose domain.Purpose, status string) {
	metrics.EmbeddingPurposeTotal.WithLabelValues(string(purpose), status).Inc()
}
