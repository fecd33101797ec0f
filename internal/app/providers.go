package app

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/config"
	"github.com/kailas-cloud/neusearch/internal/db"
	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/metrics"
	"github.com/kailas-cloud/neusearch/internal/repository/embcache"
	"github.com/kailas-cloud/neusearch/internal/retry"
	openaiTransport "github.com/kailas-cloud/neusearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/neusearch/internal/usecase/embedding"
)

// Embedding is the assembled embedding client plus the raw provider for probes.
type Embedding struct {
	Client   *embeddinguc.Client
	Provider *openaiTransport.Embedder
}

// NewEmbedding builds one decorator chain per purpose over a shared provider:
// provider -> instruction -> cache -> instrumentation. The cache layer is
// skipped when cache is nil or the TTL is zero.
func NewEmbedding(cfg config.Config, cache db.KVStore, logger *zap.Logger) Embedding {
	ec := cfg.Embedding
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     logger,
	})

	chain := func(purpose domain.Purpose, instruction string) domain.Embedder {
		var e domain.Embedder = base
		if instruction != "" {
			e = domain.NewInstructionEmbedder(e, instruction)
		}
		if cache != nil && ec.CacheTTLSec > 0 {
			e = embcache.New(e, cache, embcache.Options{
				KeyPrefix: cfg.Database.KeyPrefix,
				Namespace: ec.Model + ":" + strconv.Itoa(ec.Dimensions) + ":" + string(purpose),
				TTL:       time.Duration(ec.CacheTTLSec) * time.Second,
			}, metrics.EmbeddingCacheTotal, logger)
		}
		return embeddinguc.NewInstrumentedEmbedder(e, embeddinguc.Labels{
			Provider: ec.Provider,
			Model:    ec.Model,
			Purpose:  purpose,
		}, 0, logger)
	}

	client := embeddinguc.NewClient(
		chain(domain.PurposeDocument, ec.DocumentInstruction),
		chain(domain.PurposeQuery, ec.QueryInstruction),
		ec.Dimensions,
		Policy(ec.MaxAttempts, ec.TimeoutSec),
		logger,
	)
	return Embedding{Client: client, Provider: base}
}

// NewGenerator returns nil when no API key is configured; replies then fall
// back to templated text.
func NewGenerator(cfg config.GenerationConfig, logger *zap.Logger) *openaiTransport.Generator {
	if cfg.APIKey == "" {
		return nil
	}
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Logger:      logger,
	})
}

// Policy maps attempt and timeout settings onto a retry policy.
func Policy(attempts, timeoutSec int) retry.Policy {
	p := retry.DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if timeoutSec > 0 {
		p.Timeout = time.Duration(timeoutSec) * time.Second
	}
	return p
}

// Describe summarizes the provider settings for the startup log line.
func Describe(cfg config.Config) []zap.Field {
	return []zap.Field{
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("embedding_cache", cfg.Embedding.CacheTTLSec > 0),
		zap.String("generation_model", cfg.Generation.Model),
		zap.Bool("generation_enabled", cfg.Generation.APIKey != ""),
	}
}
