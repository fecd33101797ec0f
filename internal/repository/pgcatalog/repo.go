// Package pgcatalog stores items in PostgreSQL and searches them with pgvector.
package pgcatalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/domain/result"
)

const itemColumns = `id, external_id, title, handle, description, body_html, price, compare_price,
	vendor, product_type, category, tags, image_urls, variants`

const (
	getQuery = `SELECT ` + itemColumns + `, embedding::text FROM products WHERE id = $1`

	upsertQuery = `INSERT INTO products (` + itemColumns + `, embedding, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::vector, now())
	ON CONFLICT (id) DO UPDATE SET
		external_id = EXCLUDED.external_id, title = EXCLUDED.title, handle = EXCLUDED.handle,
		description = EXCLUDED.description, body_html = EXCLUDED.body_html,
		price = EXCLUDED.price, compare_price = EXCLUDED.compare_price,
		vendor = EXCLUDED.vendor, product_type = EXCLUDED.product_type, category = EXCLUDED.category,
		tags = EXCLUDED.tags, image_urls = EXCLUDED.image_urls, variants = EXCLUDED.variants,
		embedding = COALESCE(EXCLUDED.embedding, products.embedding), updated_at = now()`

	setEmbeddingQuery = `UPDATE products SET embedding = $2::vector, updated_at = now() WHERE id = $1`

	missingQuery = `SELECT ` + itemColumns + ` FROM products WHERE embedding IS NULL ORDER BY id LIMIT $1`

	// <=> is cosine distance; similarity = 1 - distance.
	searchQuery = `SELECT ` + itemColumns + `, 1 - (embedding <=> $1::vector) AS similarity
	FROM products
	WHERE embedding IS NOT NULL AND (embedding <=> $1::vector) <= $2
	ORDER BY embedding <=> $1::vector, id
	LIMIT $3`
)

// Repo implements the catalog and retrieval.VectorIndex over one table.
type Repo struct {
	db     *sql.DB
	dim    int
	logger *zap.Logger
}

// Open connects through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

// New wraps an open database. dim sizes the embedding column on Migrate.
func New(conn *sql.DB, dim int, logger *zap.Logger) *Repo {
	return &Repo{db: conn, dim: dim, logger: logger}
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the pool.
func (r *Repo) Close() {
	if err := r.db.Close(); err != nil {
		r.logger.Warn("Failed to close postgres pool", zap.Error(err))
	}
}

// Migrate creates the extension, table and HNSW index when missing.
func (r *Repo) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	external_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	handle TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	body_html TEXT NOT NULL DEFAULT '',
	price DOUBLE PRECISION,
	compare_price DOUBLE PRECISION,
	vendor TEXT NOT NULL DEFAULT '',
	product_type TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	tags TEXT[] NOT NULL DEFAULT '{}',
	image_urls TEXT[] NOT NULL DEFAULT '{}',
	variants JSONB,
	embedding vector(%d),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, r.dim),
		`CREATE INDEX IF NOT EXISTS products_embedding_idx ON products USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Get returns an item by ID, or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (item.Item, error) {
	var emb sql.NullString
	it, err := scanItem(r.db.QueryRowContext(ctx, getQuery, id), &emb)
	if errors.Is(err, sql.ErrNoRows) {
		return item.Item{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return item.Item{}, fmt.Errorf("get %s: %w", id, err)
	}
	if emb.Valid {
		vec, err := parseVector(emb.String)
		if err != nil {
			return item.Item{}, fmt.Errorf("get %s: %w: %w", id, domain.ErrInvalidItem, err)
		}
		it = it.WithEmbedding(vec)
	}
	return it, nil
}

// Upsert writes items in one transaction. A NULL incoming embedding keeps the stored one.
func (r *Repo) Upsert(ctx context.Context, items []item.Item) (err error) {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		args, err := upsertArgs(&items[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", items[i].ID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SetEmbedding stores the vector for an existing item.
func (r *Repo) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrVectorDimMismatch)
	}
	res, err := r.db.ExecContext(ctx, setEmbeddingQuery, id, vectorLiteral(vec))
	if err != nil {
		return fmt.Errorf("set embedding %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set embedding %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListMissingEmbedding returns up to limit items with a NULL embedding, by ID.
// limit <= 0 means no limit.
func (r *Repo) ListMissingEmbedding(ctx context.Context, limit int) ([]item.Item, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := r.db.QueryContext(ctx, missingQuery, lim)
	if err != nil {
		return nil, fmt.Errorf("list missing embeddings: %w", err)
	}
	defer rows.Close()

	var out []item.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if errors.Is(err, domain.ErrInvalidItem) {
			r.logger.Debug("Skipping undecodable item", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list missing embeddings: %w", err)
	}
	return out, nil
}

// Search returns up to limit items with cosine similarity >= threshold.
func (r *Repo) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]result.Result, error) {
	if limit <= 0 || domain.IsZeroVector(vector) {
		return []result.Result{}, nil
	}

	rows, err := r.db.QueryContext(ctx, searchQuery, vectorLiteral(domain.Normalize(vector)), 1-threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	hits := make([]result.Result, 0, limit)
	for rows.Next() {
		var sim float64
		it, err := scanItem(rows, &sim)
		if errors.Is(err, domain.ErrInvalidItem) {
			r.logger.Debug("Skipping undecodable hit", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, result.Result{Item: it, Score: min(1, max(0, sim))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return result.Clip(hits, limit, threshold), nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanItem reads itemColumns followed by any extra destinations. A row that
// scans but does not decode yields an error wrapping domain.ErrInvalidItem.
func scanItem(s scanner, extra ...any) (item.Item, error) {
	var (
		f             item.Fields
		price, cmp    sql.NullFloat64
		tags, images  []string
		variantsBytes []byte
	)
	dest := []any{
		&f.ID, &f.ExternalID, &f.Title, &f.Handle, &f.Description, &f.BodyHTML,
		&price, &cmp, &f.Vendor, &f.ProductType, &f.Category,
		pq.Array(&tags), pq.Array(&images), &variantsBytes,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return item.Item{}, err
	}
	if price.Valid {
		f.Price = &price.Float64
	}
	if cmp.Valid {
		f.ComparePrice = &cmp.Float64
	}
	f.Tags, f.ImageURLs = tags, images
	if len(variantsBytes) > 0 {
		var v variantsDTO
		if err := json.Unmarshal(variantsBytes, &v); err != nil {
			return item.Item{}, fmt.Errorf("item %s: %w: variants: %w", f.ID, domain.ErrInvalidItem, err)
		}
		f.Variants = item.VariantAttributes{Color: v.Color, Size: v.Size, Raw: v.Raw}
	}
	return item.Reconstruct(f, nil), nil
}

type variantsDTO struct {
	Color *string           `json:"color,omitempty"`
	Size  *string           `json:"size,omitempty"`
	Raw   map[string]string `json:"raw,omitempty"`
}

func upsertArgs(it *item.Item) ([]any, error) {
	v := it.Variants()
	var variants any
	if !v.IsZero() {
		b, err := json.Marshal(variantsDTO{Color: v.Color, Size: v.Size, Raw: v.Raw})
		if err != nil {
			return nil, fmt.Errorf("marshal variants %s: %w", it.ID(), err)
		}
		variants = b
	}
	var emb any
	if it.HasEmbedding() {
		emb = vectorLiteral(it.Embedding())
	}
	return []any{
		it.ID(), it.ExternalID(), it.Title(), it.Handle(), it.Description(), it.BodyHTML(),
		nullFloat(it.Price()), nullFloat(it.ComparePrice()),
		it.Vendor(), it.ProductType(), it.Category(),
		pq.Array(nonNil(it.Tags())), pq.Array(nonNil(it.ImageURLs())), variants, emb,
	}, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// vectorLiteral renders v in pgvector text form: [1,2.5,-3].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
