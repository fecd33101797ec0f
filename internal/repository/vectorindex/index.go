// Package vectorindex answers similarity queries with FT.SEARCH KNN over
// catalog hashes.
package vectorindex

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/db"
	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
	"github.com/kailas-cloud/neusearch/internal/repository/catalog"
)

// store is the consumer interface for KNN search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Index implements retrieval.VectorIndex.
type Index struct {
	store     store
	indexName string
	logger    *zap.Logger
}

// New creates a KNN-backed vector index.
func New(s store, indexName string, logger *zap.Logger) *Index {
	return &Index{store: s, indexName: indexName, logger: logger}
}

// Search returns up to limit items with similarity >= threshold, best first.
// A zero vector or non-positive limit yields an empty result.
func (x *Index) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]result.Result, error) {
	if limit <= 0 || domain.IsZeroVector(vector) {
		return []result.Result{}, nil
	}

	sr, err := x.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    x.indexName,
		Vector:       domain.Normalize(vector),
		K:            limit,
		ReturnFields: catalog.ReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", x.indexName, err)
	}

	hits := make([]result.Result, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if e.Similarity < threshold {
			continue
		}
		it, err := catalog.DecodeHash(e.Fields)
		if err != nil {
			x.logger.Debug("Skipping undecodable hit", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		hits = append(hits, result.Result{Item: it, Score: e.Score})
	}
	return result.Clip(hits, limit, threshold), nil
}
