package ingest

import (
	"context"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
)

// Catalog is the write side of the item store.
type Catalog interface {
	Upsert(ctx context.Context, items []item.Item) error
	ListMissingEmbedding(ctx context.Context, limit int) ([]item.Item, error)
	SetEmbedding(ctx context.Context, id string, vec []float32) error
}

// BatchEmbedder vectorizes texts position by position. A nil entry marks
// a text that could not be embedded.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, purpose domain.Purpose) ([][]float32, error)
}
