// Package export writes projections and datasets to files: chart snapshots
// (SVG/PNG), markdown detail reports and SQLite databases readable by
// internal/datasource.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/opscost/internal/datasource"
	"github.com/vanderheijden86/opscost/pkg/model"
	"github.com/vanderheijden86/opscost/pkg/version"
)

// SchemaVersion is stored in the meta table of exported databases.
const SchemaVersion = 1

// SQLiteExportConfig configures SQLite export.
type SQLiteExportConfig struct {
	// PageSize is the SQLite page size.
	PageSize int
	// Title is stored in the meta table when set.
	Title string
}

// DefaultSQLiteExportConfig returns sensible defaults for export configuration.
func DefaultSQLiteExportConfig() SQLiteExportConfig {
	return SQLiteExportConfig{PageSize: 4096}
}

// SQLiteExporter writes a dataset to a SQLite database.
type SQLiteExporter struct {
	Dataset *model.Dataset
	Config  SQLiteExportConfig
}

// NewSQLiteExporter creates a new exporter for ds.
func NewSQLiteExporter(ds *model.Dataset) *SQLiteExporter {
	return &SQLiteExporter{
		Dataset: ds,
		Config:  DefaultSQLiteExportConfig(),
	}
}

// Export writes the database to path, replacing any existing file.
func (e *SQLiteExporter) Export(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if _, err := db.ExecContext(ctx, datasource.Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.insertDevices(ctx, tx); err != nil {
		return fmt.Errorf("insert devices: %w", err)
	}
	if err := e.insertOps(ctx, tx); err != nil {
		return fmt.Errorf("insert ops: %w", err)
	}
	if err := e.insertMeasurements(ctx, tx); err != nil {
		return fmt.Errorf("insert measurements: %w", err)
	}
	if err := e.insertMeta(ctx, tx); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := OptimizeDatabase(db, e.Config.PageSize); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	dbClosed = true
	return nil
}

func (e *SQLiteExporter) insertDevices(ctx context.Context, tx *sql.Tx) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO devices (seq, id, name, type) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, d := range e.Dataset.Devices {
		if _, err := stmt.ExecContext(ctx, i, d.ID, d.Name, d.Type); err != nil {
			return fmt.Errorf("insert device %s: %w", d.ID, err)
		}
	}
	return nil
}

func (e *SQLiteExporter) insertOps(ctx context.Context, tx *sql.Tx) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ops (seq, id, name, class) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, o := range e.Dataset.Ops {
		if _, err := stmt.ExecContext(ctx, i, o.ID, o.Name, o.Class); err != nil {
			return fmt.Errorf("insert op %s: %w", o.ID, err)
		}
	}
	return nil
}

func (e *SQLiteExporter) insertMeasurements(ctx context.Context, tx *sql.Tx) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO measurements (
			seq, op_id, device_id, metric_family, value, unit, aggregation,
			measured_at, tags, conditions, source, recipe
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range e.Dataset.Measurements {
		m := &e.Dataset.Measurements[i]

		var tags, conditions, source, recipe *string
		if tags, err = jsonColumn(m.Tags, len(m.Tags) > 0); err != nil {
			return err
		}
		if conditions, err = jsonColumn(m.Conditions, m.Conditions != nil); err != nil {
			return err
		}
		if source, err = jsonColumn(m.Source, m.Source != nil); err != nil {
			return err
		}
		if recipe, err = jsonColumn(m.Recipe, m.Recipe != nil); err != nil {
			return err
		}

		_, err = stmt.ExecContext(ctx,
			i, m.OpID, m.DeviceID, m.MetricFamily, m.Value, m.Unit, m.Aggregation,
			m.MeasuredAt, tags, conditions, source, recipe,
		)
		if err != nil {
			return fmt.Errorf("insert measurement %s/%s: %w", m.OpID, m.DeviceID, err)
		}
	}
	return nil
}

// jsonColumn encodes v for a JSON text column, or NULL when present is false.
func jsonColumn(v any, present bool) (*string, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// insertMeta inserts export metadata.
func (e *SQLiteExporter) insertMeta(ctx context.Context, tx *sql.Tx) error {
	meta := map[string]string{
		"version":           version.Version,
		"generated_at":      time.Now().UTC().Format(time.RFC3339),
		"device_count":      strconv.Itoa(len(e.Dataset.Devices)),
		"op_count":          strconv.Itoa(len(e.Dataset.Ops)),
		"measurement_count": strconv.Itoa(len(e.Dataset.Measurements)),
		"schema_version":    strconv.Itoa(SchemaVersion),
	}
	if e.Dataset.UpdatedAt != nil {
		meta[datasource.MetaUpdatedAt] = *e.Dataset.UpdatedAt
	}
	if e.Config.Title != "" {
		meta["title"] = e.Config.Title
	}

	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("insert meta %s: %w", key, err)
		}
	}
	return nil
}

// OptimizeDatabase compacts the database for distribution.
// Call this as the final step before closing the database.
func OptimizeDatabase(db *sql.DB, pageSize int) error {
	if pageSize <= 0 {
		pageSize = 4096
	}

	optimizations := []string{
		`PRAGMA journal_mode=DELETE`,
		fmt.Sprintf(`PRAGMA page_size=%d`, pageSize),
		`ANALYZE`,
		`PRAGMA optimize`,
	}
	for _, stmt := range optimizations {
		// Some pragmas may fail depending on state, continue
		_, _ = db.Exec(stmt)
	}

	// VACUUM must be last and outside transaction
	if _, err := db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}
