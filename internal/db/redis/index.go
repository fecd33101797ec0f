package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/neusearch/internal/db"
)

// Redis Stack says "Unknown index name"; valkey-search says "... not found".
func isMissingIndex(err error) bool {
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "not found")
}

// CreateIndex issues FT.CREATE for def over hashes.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	err = s.do(ctx, s.b().Arbitrary("FT.CREATE").Args(args...).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isRedisErr(err, "index already exists"):
		return db.ErrIndexExists
	default:
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
}

// DropIndex removes the index only; item hashes survive so a rebuild can
// re-index them without re-ingesting.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	err := s.do(ctx, s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()).Error()
	switch {
	case err == nil:
		return nil
	case isMissingIndex(err):
		return db.ErrIndexNotFound
	default:
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
}

// IndexExists reports whether FT.INFO knows the index.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case isMissingIndex(err):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
}

// schemaWriter accumulates FT.CREATE arguments.
type schemaWriter struct {
	args []string
}

func (w *schemaWriter) put(a ...string) { w.args = append(w.args, a...) }

func buildCreateArgs(def *db.IndexDefinition) ([]string, error) {
	if def.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(def.Fields) == 0 {
		return nil, errors.New("index schema has no fields")
	}

	w := &schemaWriter{args: make([]string, 0, 8+6*len(def.Fields))}
	w.put(def.Name, "ON", "HASH")
	if n := len(def.Prefixes); n > 0 {
		w.put("PREFIX", strconv.Itoa(n))
		w.put(def.Prefixes...)
	}
	w.put("SCHEMA")

	for i := range def.Fields {
		fa, err := buildFieldArgs(&def.Fields[i])
		if err != nil {
			return nil, err
		}
		w.put(fa...)
	}
	return w.args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Name == "" {
		return nil, errors.New("field name is required")
	}

	switch f.Type {
	case db.IndexFieldText:
		return []string{f.Name, "TEXT"}, nil
	case db.IndexFieldNumeric:
		return []string{f.Name, "NUMERIC"}, nil
	case db.IndexFieldTag:
		if f.TagSeparator == "" {
			return []string{f.Name, "TAG"}, nil
		}
		return []string{f.Name, "TAG", "SEPARATOR", f.TagSeparator}, nil
	case db.IndexFieldVector:
		va, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		return append([]string{f.Name}, va...), nil
	}
	return nil, fmt.Errorf("field %s: unknown field type %d", f.Name, f.Type)
}

// buildVectorFieldArgs renders "VECTOR <algo> <nattrs> attrs...". HNSW tuning
// attributes are emitted only when set and only for HNSW.
func buildVectorFieldArgs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, fmt.Errorf("field %s: vector DIM must be positive", f.Name)
	}
	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorHNSW
	}

	attrs := []string{"TYPE", "FLOAT32", "DIM", strconv.Itoa(f.VectorDim), "DISTANCE_METRIC", db.DistanceCosine}
	if algo == db.VectorHNSW {
		for _, p := range []struct {
			name string
			v    int
		}{{"M", f.VectorM}, {"EF_CONSTRUCTION", f.VectorEFConstruct}} {
			if p.v > 0 {
				attrs = append(attrs, p.name, strconv.Itoa(p.v))
			}
		}
	}

	return append([]string{"VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...), nil
}
