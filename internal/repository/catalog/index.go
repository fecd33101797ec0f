package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/neusearch/internal/db"
)

// HNSW build parameters for the item vector field.
const (
	hnswM           = 16
	hnswEFConstruct = 200
)

// indexStore is the consumer interface for index lifecycle (ISP).
type indexStore interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// IndexManager owns the FT index over catalog hashes.
type IndexManager struct {
	store  indexStore
	name   string
	prefix string
}

// NewIndexManager creates a manager for the index name over itemPrefix keys.
func NewIndexManager(s indexStore, name, itemPrefix string) *IndexManager {
	return &IndexManager{store: s, name: name, prefix: itemPrefix}
}

// Definition builds the catalog schema: title text, category/vendor/tags tags,
// price numeric and a cosine vector field of dim dimensions.
func (m *IndexManager) Definition(dim int, algo db.VectorAlgorithm) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(m.name).
		Prefix(m.prefix).
		Text(fieldTitle).
		Tag(fieldCategory, tagSeparator).
		Tag(fieldVendor, tagSeparator).
		Tag(fieldTags, tagSeparator).
		Numeric(fieldPrice).
		Vector(fieldEmbedding, dim, algo, hnswM, hnswEFConstruct).
		Build()
	if err != nil {
		return nil, fmt.Errorf("catalog index: %w", err)
	}
	return def, nil
}

// Ensure creates the index when missing. It reports whether it created one.
func (m *IndexManager) Ensure(ctx context.Context, dim int, algo db.VectorAlgorithm) (bool, error) {
	exists, err := m.store.IndexExists(ctx, m.name)
	if err != nil {
		return false, fmt.Errorf("probe index %s: %w", m.name, err)
	}
	if exists {
		return false, nil
	}

	def, err := m.Definition(dim, algo)
	if err != nil {
		return false, err
	}
	if err := m.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", m.name, err)
	}
	return true, nil
}

// Recreate drops the index (keeping hashes) and builds it again.
func (m *IndexManager) Recreate(ctx context.Context, dim int, algo db.VectorAlgorithm) error {
	if err := m.store.DropIndex(ctx, m.name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", m.name, err)
	}
	if _, err := m.Ensure(ctx, dim, algo); err != nil {
		return err
	}
	return nil
}
