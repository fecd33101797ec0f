package embedding

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
)

// DefaultMaxAPIBatchSize caps the number of texts sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// Labels identify one decorator chain in logs.
type Labels struct {
	Provider string
	Model    string
	Purpose  domain.Purpose
}

func (l Labels) fields() []zap.Field {
	return []zap.Field{
		zap.String("provider", l.Provider),
		zap.String("model", l.Model),
		zap.String("purpose", string(l.Purpose)),
	}
}

// InstrumentedEmbedder is the outermost layer of a per-purpose chain. It logs
// each call and splits large batches into provider-sized chunks. Transport
// metrics are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner     domain.Embedder
	chunkSize int
	base      []zap.Field
	logger    *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. chunkSize <= 0 selects DefaultMaxAPIBatchSize.
func NewInstrumentedEmbedder(inner domain.Embedder, labels Labels, chunkSize int, logger *zap.Logger) *InstrumentedEmbedder {
	if chunkSize <= 0 {
		chunkSize = DefaultMaxAPIBatchSize
	}
	return &InstrumentedEmbedder{
		inner:     inner,
		chunkSize: chunkSize,
		base:      labels.fields(),
		logger:    logger,
	}
}

func (p *InstrumentedEmbedder) with(extra ...zap.Field) []zap.Field {
	return append(slices.Clone(p.base), extra...)
}

// Embed delegates a single text.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Warn("Embedding request failed", p.with(zap.Duration("duration", elapsed), zap.Error(err))...)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed", p.with(
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)...)
	return result, nil
}

// BatchEmbed embeds texts chunk by chunk. The result holds exactly one vector
// per input text in input order.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}

	for chunk := range slices.Chunk(texts, p.chunkSize) {
		res, err := p.batchChunk(ctx, chunk)
		if err != nil {
			p.logger.Warn("Batch embedding chunk failed", p.with(
				zap.Int("chunk_offset", len(out.Embeddings)),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)...)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.logger.Debug("Batch embedding completed", p.with(
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)...)
	return out, nil
}

func (p *InstrumentedEmbedder) batchChunk(ctx context.Context, chunk []string) (domain.BatchEmbeddingResult, error) {
	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, chunk)
	} else {
		res, err = domain.BatchFallback(ctx, p.inner, chunk)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(res.Embeddings) != len(chunk) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("provider returned %d vectors for %d texts", len(res.Embeddings), len(chunk))
	}
	return res, nil
}
