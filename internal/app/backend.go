// Package app assembles storage and provider chains from configuration.
// Both binaries share it so the API and the ingest tool see the same catalog.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/config"
	"github.com/kailas-cloud/neusearch/internal/db"
	dbRedis "github.com/kailas-cloud/neusearch/internal/db/redis"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/repository/catalog"
	"github.com/kailas-cloud/neusearch/internal/repository/memindex"
	"github.com/kailas-cloud/neusearch/internal/repository/pgcatalog"
	"github.com/kailas-cloud/neusearch/internal/repository/vectorindex"
	"github.com/kailas-cloud/neusearch/internal/usecase/health"
	"github.com/kailas-cloud/neusearch/internal/usecase/retrieval"
)

// Catalog is the item store every driver provides.
type Catalog interface {
	Get(ctx context.Context, id string) (item.Item, error)
	Upsert(ctx context.Context, items []item.Item) error
	SetEmbedding(ctx context.Context, id string, vec []float32) error
	ListMissingEmbedding(ctx context.Context, limit int) ([]item.Item, error)
}

// Backend is the storage side of the composition root.
type Backend struct {
	Driver  string
	Catalog Catalog
	Index   retrieval.VectorIndex
	Pinger  health.Pinger
	// Cache is the key-value store for embeddings, nil when the driver has none.
	Cache db.KVStore

	ensure func(ctx context.Context, recreate bool) error
	close  func()
}

// OpenBackend connects the configured driver. For valkey and redis it waits
// for the server to accept commands.
func OpenBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	dim := cfg.Embedding.Dimensions

	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		algo, err := db.ParseVectorAlgorithm(cfg.Database.VectorAlgorithm)
		if err != nil {
			return nil, err
		}
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("%s not ready: %w", cfg.Database.Driver, err)
		}

		repo := catalog.New(store, cfg.Database.KeyPrefix, logger)
		mgr := catalog.NewIndexManager(store, cfg.Database.IndexName, repo.ItemPrefix())
		return &Backend{
			Driver:  cfg.Database.Driver,
			Catalog: repo,
			Index:   vectorindex.New(store, cfg.Database.IndexName, logger),
			Pinger:  store,
			Cache:   store,
			ensure: func(ctx context.Context, recreate bool) error {
				if recreate {
					return mgr.Recreate(ctx, dim, algo)
				}
				created, err := mgr.Ensure(ctx, dim, algo)
				if err != nil {
					return err
				}
				if created {
					logger.Info("Created search index",
						zap.String("index", cfg.Database.IndexName),
						zap.String("algorithm", string(algo)),
						zap.Int("dimensions", dim),
					)
				}
				return nil
			},
			close: store.Close,
		}, nil

	case config.DriverPostgres:
		conn, err := pgcatalog.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		repo := pgcatalog.New(conn, dim, logger)
		return &Backend{
			Driver:  cfg.Database.Driver,
			Catalog: repo,
			Index:   repo,
			Pinger:  repo,
			ensure: func(ctx context.Context, recreate bool) error {
				if recreate {
					logger.Warn("Recreate is not supported for postgres, running migrations only")
				}
				return repo.Migrate(ctx)
			},
			close: repo.Close,
		}, nil

	case config.DriverMemory:
		idx := memindex.New()
		return &Backend{
			Driver:  cfg.Database.Driver,
			Catalog: idx,
			Index:   idx,
			Pinger:  idx,
			ensure:  func(context.Context, bool) error { return nil },
			close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// EnsureIndex creates the vector index or schema when missing. recreate
// drops and rebuilds it where the driver supports that.
func (b *Backend) EnsureIndex(ctx context.Context, recreate bool) error {
	if err := b.ensure(ctx, recreate); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Close releases connections.
func (b *Backend) Close() {
	b.close()
}
