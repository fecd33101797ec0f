package retrieval

import (
	"context"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
)

// VectorIndex answers "k most similar items at or above a similarity floor".
// Implementations return at most limit results, all scoring >= threshold,
// sorted by descending score, and an empty slice for a nil or zero vector.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]result.Result, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string, purpose domain.Purpose) ([]float32, error)
}
