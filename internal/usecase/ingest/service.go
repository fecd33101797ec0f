// Package ingest loads catalog records and backfills missing embeddings.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/neusearch/internal/domain"
	"github.com/kailas-cloud/neusearch/internal/domain/item"
	"github.com/kailas-cloud/neusearch/internal/metrics"
)

// DefaultBatchSize is the number of items per upsert or embedding call.
const DefaultBatchSize = 32

const maxLineBytes = 4 << 20

// RecordError describes a rejected catalog line. ID is the external ID when the line parsed.
type RecordError struct {
	Line int
	ID   string
	Err  error
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Read    int
	Loaded  int
	Invalid []RecordError
}

// EmbedReport summarizes an EmbedMissing call.
type EmbedReport struct {
	Listed   int
	Embedded int
	Skipped  int
}

// Service runs ingestion jobs.
type Service struct {
	catalog   Catalog
	embedder  BatchEmbedder
	batchSize int
	logger    *zap.Logger
}

// New creates an ingestion service.
func New(catalog Catalog, embedder BatchEmbedder, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, embedder: embedder, batchSize: DefaultBatchSize, logger: logger}
}

// WithBatchSize configures the batch size.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Load reads one JSON record per line and upserts the valid ones. Bad
// records are reported and skipped; a storage failure stops the load.
func (s *Service) Load(ctx context.Context, r io.Reader) (LoadReport, error) {
	var report LoadReport
	batch := make([]item.Item, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.catalog.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upsert %d items: %w", len(batch), err)
		}
		report.Loaded += len(batch)
		metrics.IngestRecordsTotal.WithLabelValues("loaded").Add(float64(len(batch)))
		batch = batch[:0]
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		report.Read++

		external, it, err := decodeRecord(raw)
		if err != nil {
			report.Invalid = append(report.Invalid, RecordError{Line: line, ID: external, Err: err})
			metrics.IngestRecordsTotal.WithLabelValues("invalid").Inc()
			s.logger.Debug("Skipping invalid record", zap.Int("line", line), zap.Error(err))
			continue
		}
		batch = append(batch, it)
		if len(batch) == s.batchSize {
			if err := flush(); err != nil {
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
	if err := sc.Err(); err != nil {
		return report, fmt.Errorf("read line %d: %w", line+1, err)
	}
	if err := flush(); err != nil {
		return report, err
	}

	s.logger.Info("Catalog loaded",
		zap.Int("read", report.Read),
		zap.Int("loaded", report.Loaded),
		zap.Int("invalid", len(report.Invalid)),
	)
	return report, nil
}

// decodeRecord returns the record's external ID alongside the item for error reports.
func decodeRecord(raw string) (string, item.Item, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", item.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}
	it, err := rec.ToItem()
	return string(rec.ID), it, err
}

// EmbedMissing embeds up to limit items that have no vector (limit <= 0
// means all). Items the provider cannot embed are skipped and stay
// missing for the next run.
func (s *Service) EmbedMissing(ctx context.Context, limit int) (EmbedReport, error) {
	items, err := s.catalog.ListMissingEmbedding(ctx, limit)
	if err != nil {
		return EmbedReport{}, fmt.Errorf("list missing embeddings: %w", err)
	}
	report := EmbedReport{Listed: len(items)}

	for chunk := range slices.Chunk(items, s.batchSize) {
		texts := make([]string, len(chunk))
		for i := range chunk {
			texts[i] = item.PrepareText(&chunk[i])
		}

		vecs, err := s.embedder.EmbedBatch(ctx, texts, domain.PurposeDocument)
		if err != nil {
			return report, fmt.Errorf("embed batch: %w", err)
		}

		for i := range chunk {
			id := chunk[i].ID()
			if i >= len(vecs) || vecs[i] == nil {
				report.Skipped++
				metrics.IngestEmbeddingsTotal.WithLabelValues("skipped").Inc()
				s.logger.Debug("Skipping item without embedding", zap.String("id", id))
				continue
			}
			if err := s.catalog.SetEmbedding(ctx, id, vecs[i]); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					report.Skipped++
					metrics.IngestEmbeddingsTotal.WithLabelValues("skipped").Inc()
					s.logger.Debug("Item removed before embedding was stored", zap.String("id", id))
					continue
				}
				return report, fmt.Errorf("set embedding %s: %w", id, err)
			}
			report.Embedded++
			metrics.IngestEmbeddingsTotal.WithLabelValues("embedded").Inc()
		}

		s.logger.Info("Embedding batch stored",
			zap.Int("embedded", report.Embedded),
			zap.Int("skipped", report.Skipped),
			zap.Int("listed", report.Listed),
		)
	}
	return report, nil
}
