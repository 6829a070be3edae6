package datasource

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/opscost/pkg/loader"
	"github.com/vanderheijden86/opscost/pkg/metrics"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// Schema creates the tables read by SQLiteReader. Row order within each
// table is the dataset order (seq).
const Schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);
CREATE TABLE IF NOT EXISTS devices (
	seq  INTEGER PRIMARY KEY,
	id   TEXT NOT NULL,
	name TEXT,
	type TEXT
);
CREATE TABLE IF NOT EXISTS ops (
	seq   INTEGER PRIMARY KEY,
	id    TEXT NOT NULL,
	name  TEXT,
	class TEXT
);
CREATE TABLE IF NOT EXISTS measurements (
	seq           INTEGER PRIMARY KEY,
	op_id         TEXT NOT NULL,
	device_id     TEXT NOT NULL,
	metric_family TEXT NOT NULL,
	value         REAL,
	unit          TEXT,
	aggregation   TEXT,
	measured_at   TEXT,
	tags          TEXT,
	conditions    TEXT,
	source        TEXT,
	recipe        TEXT
);
CREATE INDEX IF NOT EXISTS idx_measurements_family ON measurements(metric_family, op_id);
`

// MetaUpdatedAt is the meta key holding the dataset's updated_at.
const MetaUpdatedAt = "updated_at"

// SQLiteReader provides read access to an opscost SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string

	// WarningHandler receives one message per skipped row. Defaults to
	// loader.DefaultWarningHandler.
	WarningHandler func(string)
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000", // 16MB cache
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		// Non-fatal
		_, _ = db.Exec(pragma)
	}

	return &SQLiteReader{
		db:             db,
		path:           source.Path,
		WarningHandler: loader.DefaultWarningHandler(),
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteReader) warn(format string, args ...any) {
	if r.WarningHandler != nil {
		r.WarningHandler(fmt.Sprintf(format, args...))
	}
}

// LoadDataset reads the whole dataset. Rows that cannot be decoded or fail
// validation are skipped with a warning, as the JSON loader does.
func (r *SQLiteReader) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	devices, err := r.loadDevices(ctx)
	if err != nil {
		return nil, err
	}
	ops, err := r.loadOps(ctx)
	if err != nil {
		return nil, err
	}
	measurements, err := r.loadMeasurements(ctx)
	if err != nil {
		return nil, err
	}
	updatedAt, err := r.UpdatedAt(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewDataset(devices, ops, measurements, updatedAt), nil
}

func (r *SQLiteReader) loadDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type FROM devices ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for i := 0; rows.Next(); i++ {
		var d model.Device
		var name, typ sql.NullString
		if err := rows.Scan(&d.ID, &name, &typ); err != nil {
			r.warn("skipping device %d: %v", i, err)
			continue
		}
		d.Name, d.Type = name.String, typ.String
		if err := d.Validate(); err != nil {
			r.warn("skipping device %d: %v", i, err)
			continue
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}

func (r *SQLiteReader) loadOps(ctx context.Context) ([]model.Op, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, class FROM ops ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	var ops []model.Op
	for i := 0; rows.Next(); i++ {
		var o model.Op
		var name, class sql.NullString
		if err := rows.Scan(&o.ID, &name, &class); err != nil {
			r.warn("skipping op %d: %v", i, err)
			continue
		}
		o.Name, o.Class = name.String, class.String
		if err := o.Validate(); err != nil {
			r.warn("skipping op %d: %v", i, err)
			continue
		}
		ops = append(ops, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ops: %w", err)
	}
	return ops, nil
}

func (r *SQLiteReader) loadMeasurements(ctx context.Context) ([]model.Measurement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT op_id, device_id, metric_family, value, unit, aggregation,
		       measured_at, tags, conditions, source, recipe
		FROM measurements
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []model.Measurement
	for i := 0; rows.Next(); i++ {
		var m model.Measurement
		var value sql.NullFloat64
		var unit, aggregation, measuredAt sql.NullString
		var tags, conditions, source, recipe sql.NullString

		if err := rows.Scan(
			&m.OpID, &m.DeviceID, &m.MetricFamily, &value, &unit, &aggregation,
			&measuredAt, &tags, &conditions, &source, &recipe,
		); err != nil {
			r.warn("skipping measurement %d: %v", i, err)
			continue
		}

		if value.Valid {
			v := value.Float64
			m.Value = &v
		}
		m.Unit = unit.String
		m.Aggregation = nullString(aggregation)
		m.MeasuredAt = nullString(measuredAt)

		if err := decodeColumns(
			jsonColumn{"tags", tags, &m.Tags},
			jsonColumn{"conditions", conditions, &m.Conditions},
			jsonColumn{"source", source, &m.Source},
			jsonColumn{"recipe", recipe, &m.Recipe},
		); err != nil {
			r.warn("skipping measurement %d: %v", i, err)
			continue
		}
		if err := m.Validate(); err != nil {
			r.warn("skipping measurement %d: %v", i, err)
			continue
		}
		m.MetricFamily = loader.NormalizeMetricFamily(m.MetricFamily)
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating measurements: %w", err)
	}
	return measurements, nil
}

// CountMeasurements returns the number of measurement rows.
func (r *SQLiteReader) CountMeasurements() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM measurements").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdatedAt returns the stored updated_at, or nil when absent.
func (r *SQLiteReader) UpdatedAt(ctx context.Context) (*string, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, MetaUpdatedAt).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	return nullString(value), nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

type jsonColumn struct {
	name string
	col  sql.NullString
	dst  any
}

func decodeColumns(cols ...jsonColumn) error {
	for _, c := range cols {
		if err := decodeColumn(c.col, c.dst); err != nil {
			return fmt.Errorf("malformed %s column: %w", c.name, err)
		}
	}
	return nil
}

// decodeColumn unmarshals a JSON text column; NULL, "" and "null" leave v untouched.
func decodeColumn(col sql.NullString, v any) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), v)
}
