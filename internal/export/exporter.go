// Package export orchestrates a full export run: execute the query,
// infer the result schema, write the columnar artifact, and optionally
// catalog and publish it.
package export

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/colport/colport/internal/encoder"
	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/internal/manifest"
	"github.com/colport/colport/internal/schema"
	"github.com/colport/colport/internal/source"
	"github.com/colport/colport/internal/storage"
	"github.com/colport/colport/pkg/types"
)

// Result describes a completed export.
type Result struct {
	ExportID   string
	Query      string
	OutputPath string
	RowCount   int64
	SizeBytes  int64
	Schema     types.Schema
	Stats      []ColumnStats
	Duration   time.Duration
	CreatedAt  time.Time
}

// Exporter runs export operations against an open connection.
type Exporter struct {
	catalog     *manifest.Catalog
	store       storage.ArtifactStore
	storePrefix string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithManifest records each completed export in the given catalog.
func WithManifest(c *manifest.Catalog) Option {
	return func(e *Exporter) {
		e.catalog = c
	}
}

// WithArtifactStore publishes each completed artifact to the given store
// under the prefix.
func WithArtifactStore(s storage.ArtifactStore, prefix string) Option {
	return func(e *Exporter) {
		e.store = s
		e.storePrefix = prefix
	}
}

// New creates an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export runs the query on conn, infers the schema of the result, and
// writes the columnar artifact to outputPath. The source, inference,
// encoding, and IO error categories pass through unmodified so callers
// can tell the failure stages apart.
func (e *Exporter) Export(ctx context.Context, conn *source.Connection, query, outputPath string) (*Result, error) {
	start := time.Now()

	rs, err := source.Execute(ctx, conn, query)
	if err != nil {
		return nil, err
	}

	sch, err := schema.Infer(rs)
	if err != nil {
		return nil, err
	}

	tracker := NewStatsTracker(sch)
	for _, row := range rs.Rows {
		if err := tracker.Update(row); err != nil {
			return nil, err
		}
	}

	if err := encoder.Write(rs, sch, outputPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, colerrors.NewIOError(colerrors.CodeWriteFailed,
			"failed to stat artifact", err)
	}

	result := &Result{
		ExportID:   uuid.New().String(),
		Query:      query,
		OutputPath: outputPath,
		RowCount:   int64(rs.RowCount()),
		SizeBytes:  info.Size(),
		Schema:     sch,
		Stats:      tracker.Collect(),
		Duration:   time.Since(start),
		CreatedAt:  time.Now().UTC(),
	}

	if e.catalog != nil {
		if err := e.record(ctx, result); err != nil {
			return nil, err
		}
	}

	if e.store != nil {
		objectPath := path.Join(e.storePrefix, path.Base(outputPath))
		if err := e.store.Put(ctx, outputPath, objectPath); err != nil {
			return nil, err
		}
		log.Printf("export: published %s to store as %s", outputPath, objectPath)
	}

	log.Printf("export: %s wrote %d rows (%d bytes) to %s in %v",
		result.ExportID, result.RowCount, result.SizeBytes, outputPath, result.Duration)

	return result, nil
}

func (e *Exporter) record(ctx context.Context, result *Result) error {
	statsJSON, err := json.Marshal(result.Stats)
	if err != nil {
		return colerrors.NewManifestError(colerrors.CodeRecordFailed,
			"failed to marshal column stats", err)
	}

	return e.catalog.Record(ctx, &manifest.Record{
		ExportID:     result.ExportID,
		Query:        result.Query,
		ArtifactPath: result.OutputPath,
		RowCount:     result.RowCount,
		SizeBytes:    result.SizeBytes,
		Schema:       result.Schema,
		Stats:        statsJSON,
		CreatedAt:    result.CreatedAt,
	})
}
