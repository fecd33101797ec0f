// Package memindex is an in-process catalog with brute-force cosine search.
// It backs the "memory" database driver and tests.
package memindex

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
)

// Index holds items keyed by ID. Safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	items map[string]item.Item
}

// New creates an empty index.
func New() *Index {
	return &Index{items: make(map[string]item.Item)}
}

// Ping always succeeds.
func (x *Index) Ping(context.Context) error { return nil }

// Len returns the number of stored items.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

// Get returns an item by ID, or domain.ErrNotFound.
func (x *Index) Get(_ context.Context, id string) (item.Item, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	it, ok := x.items[id]
	if !ok {
		return item.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return it, nil
}

// Upsert stores items. A stored embedding survives when the incoming item has none.
func (x *Index) Upsert(_ context.Context, items []item.Item) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, it := range items {
		if prev, ok := x.items[it.ID()]; ok && !it.HasEmbedding() && prev.HasEmbedding() {
			it = it.WithEmbedding(prev.Embedding())
		}
		x.items[it.ID()] = it
	}
	return nil
}

// SetEmbedding attaches a vector to an existing item.
func (x *Index) SetEmbedding(_ context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrVectorDimMismatch)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	it, ok := x.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	x.items[id] = it.WithEmbedding(slices.Clone(vec))
	return nil
}

// ListMissingEmbedding returns up to limit items without embeddings, by ID.
// limit <= 0 means no limit.
func (x *Index) ListMissingEmbedding(_ context.Context, limit int) ([]item.Item, error) {
	x.mu.RLock()
	ids := make([]string, 0, len(x.items))
	for id, it := range x.items {
		if !it.HasEmbedding() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]item.Item, len(ids))
	for i, id := range ids {
		out[i] = x.items[id]
	}
	x.mu.RUnlock()
	return out, nil
}

// Search scores every embedded item against vector. Items whose embedding
// dimension differs from the query are skipped.
func (x *Index) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]result.Result, error) {
	if limit <= 0 || domain.IsZeroVector(vector) {
		return []result.Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	hits := make([]result.Result, 0, min(len(x.items), limit*4))
	for _, it := range x.items {
		emb := it.Embedding()
		if len(emb) != len(vector) {
			continue
		}
		sim := domain.CosineSimilarity(vector, emb)
		if sim >= threshold {
			hits = append(hits, result.Result{Item: it, Score: min(1, max(0, sim))})
		}
	}
	x.mu.RUnlock()

	return result.Clip(hits, limit, threshold), nil
}
