// Package catalog stores items as hashes in Valkey/Redis.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/db"
	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
)

const scanBatch = 100

// store is the consumer interface for catalog hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo reads and writes catalog items.
type Repo struct {
	store  store
	prefix string
	logger *zap.Logger
}

// New creates a catalog repository. Item keys are <keyPrefix>item:<id>.
func New(s store, keyPrefix string, logger *zap.Logger) *Repo {
	return &Repo{store: s, prefix: keyPrefix + "item:", logger: logger}
}

// ItemPrefix is the key prefix the search index watches.
func (r *Repo) ItemPrefix() string { return r.prefix }

// Key returns the hash key for an item ID.
func (r *Repo) Key(id string) string { return r.prefix + id }

// IDFromKey strips the item prefix from a hash key.
func (r *Repo) IDFromKey(key string) string { return strings.TrimPrefix(key, r.prefix) }

// Get returns an item by ID, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (item.Item, error) {
	m, err := r.store.HGetAll(ctx, r.Key(id))
	if err != nil {
		return item.Item{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 {
		return item.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	it, err := DecodeHash(m)
	if err != nil {
		return item.Item{}, fmt.Errorf("decode %s: %w: %w", id, domain.ErrInvalidItem, err)
	}
	return it, nil
}

// Upsert writes items in one pipeline. Fields are overwritten; a stored
// embedding survives when the incoming item carries none.
func (r *Repo) Upsert(ctx context.Context, items []item.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]db.HashSetItem, 0, len(items))
	for i := range items {
		fields, err := EncodeHash(&items[i])
		if err != nil {
			return fmt.Errorf("encode %s: %w", items[i].ID(), err)
		}
		batch = append(batch, db.HashSetItem{Key: r.Key(items[i].ID()), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("upsert %d items: %w", len(items), err)
	}
	return nil
}

// SetEmbedding stores the vector for an item, which adds it to the vector index.
func (r *Repo) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrVectorDimMismatch)
	}
	if err := r.store.HSet(ctx, r.Key(id), map[string]string{fieldEmbedding: db.VectorToBytes(vec)}); err != nil {
		return fmt.Errorf("set embedding %s: %w", id, err)
	}
	return nil
}

// ListMissingEmbedding returns up to limit items that have no embedding,
// ordered by key. limit <= 0 means no limit. Undecodable hashes are skipped.
func (r *Repo) ListMissingEmbedding(ctx context.Context, limit int) ([]item.Item, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	slices.Sort(keys)

	var out []item.Item
	for chunk := range slices.Chunk(keys, scanBatch) {
		hashes, err := r.store.HGetAllMulti(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("load items: %w", err)
		}
		for i, m := range hashes {
			if len(m) == 0 || m[fieldEmbedding] != "" {
				continue
			}
			it, err := DecodeHash(m)
			if err != nil {
				r.logger.Debug("Skipping undecodable item", zap.String("key", chunk[i]), zap.Error(err))
				continue
			}
			out = append(out, it)
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}
