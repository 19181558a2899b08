// Package manifest records completed exports in a SQLite catalog so past
// runs can be inspected without re-reading every artifact.
package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	colerrors "github.com/colport/colport/internal/errors"
	"github.com/colport/colport/pkg/types"
)

// Record is one catalog entry describing a completed export.
type Record struct {
	ExportID     string
	Query        string
	ArtifactPath string
	RowCount     int64
	SizeBytes    int64
	Schema       types.Schema
	Stats        json.RawMessage
	CreatedAt    time.Time
}

// Catalog is a SQLite-backed export catalog. The exporter appends one
// record per successful export; readers list or look up past runs.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the catalog database at the given path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, colerrors.NewManifestError(colerrors.CodeCatalogOpenFailed,
			fmt.Sprintf("failed to open catalog at %s", path), err)
	}
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, path: path}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS exports (
			export_id     TEXT PRIMARY KEY,
			query         TEXT NOT NULL,
			artifact_path TEXT NOT NULL,
			row_count     INTEGER NOT NULL,
			size_bytes    INTEGER NOT NULL,
			schema_json   TEXT NOT NULL,
			stats_json    TEXT,
			created_at    INTEGER NOT NULL
		)
	`
	if _, err := c.db.Exec(ddl); err != nil {
		return colerrors.NewManifestError(colerrors.CodeCatalogOpenFailed,
			"failed to initialize catalog schema", err)
	}
	return nil
}

// Path returns the catalog database path.
func (c *Catalog) Path() string {
	return c.path
}

// Record appends one export record to the catalog.
func (c *Catalog) Record(ctx context.Context, rec *Record) error {
	schemaJSON, err := json.Marshal(rec.Schema)
	if err != nil {
		return colerrors.NewManifestError(colerrors.CodeRecordFailed,
			"failed to marshal schema", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO exports (export_id, query, artifact_path, row_count, size_bytes, schema_json, stats_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ExportID, rec.Query, rec.ArtifactPath, rec.RowCount, rec.SizeBytes,
		string(schemaJSON), nullableString(rec.Stats), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return colerrors.NewManifestError(colerrors.CodeRecordFailed,
			fmt.Sprintf("failed to record export %s", rec.ExportID), err)
	}
	return nil
}

// Get retrieves a single export record by ID.
func (c *Catalog) Get(ctx context.Context, exportID string) (*Record, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT export_id, query, artifact_path, row_count, size_bytes, schema_json, stats_json, created_at
		FROM exports WHERE export_id = ?`, exportID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, colerrors.NewManifestError(colerrors.CodeExportNotFound,
			fmt.Sprintf("export %s not found", exportID), nil)
	}
	if err != nil {
		return nil, colerrors.NewManifestError(colerrors.CodeRecordFailed,
			fmt.Sprintf("failed to read export %s", exportID), err)
	}
	return rec, nil
}

// List returns all export records, newest first.
func (c *Catalog) List(ctx context.Context) ([]*Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT export_id, query, artifact_path, row_count, size_bytes, schema_json, stats_json, created_at
		FROM exports ORDER BY created_at DESC`)
	if err != nil {
		return nil, colerrors.NewManifestError(colerrors.CodeRecordFailed,
			"failed to list exports", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, colerrors.NewManifestError(colerrors.CodeRecordFailed,
				"failed to scan export record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, colerrors.NewManifestError(colerrors.CodeRecordFailed,
			"failed to iterate exports", err)
	}
	return records, nil
}

// Close closes the catalog database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		schemaJSON string
		statsJSON  sql.NullString
		createdAt  int64
	)
	if err := row.Scan(&rec.ExportID, &rec.Query, &rec.ArtifactPath, &rec.RowCount,
		&rec.SizeBytes, &schemaJSON, &statsJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(schemaJSON), &rec.Schema); err != nil {
		return nil, err
	}
	if statsJSON.Valid {
		rec.Stats = json.RawMessage(statsJSON.String)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

func nullableString(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
