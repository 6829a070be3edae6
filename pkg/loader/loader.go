package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/opscost/pkg/metrics"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// DataDirEnvVar is the name of the environment variable for a custom data directory.
const DataDirEnvVar = "OPSCOST_DATA_DIR"

// DefaultDataDirName is the data directory looked up under the working directory.
const DefaultDataDirName = "data"

// PreferredDatasetNames defines the priority order for looking up dataset files.
var PreferredDatasetNames = []string{"metrics.json", "dataset.json"}

// DefaultMaxBytes is the largest dataset document read (64MB).
const DefaultMaxBytes = 64 << 20

// GetDataDir returns the data directory, respecting OPSCOST_DATA_DIR.
// Otherwise it falls back to data/ in root (or cwd if empty).
func GetDataDir(root string) (string, error) {
	if envDir := os.Getenv(DataDirEnvVar); envDir != "" {
		return envDir, nil
	}

	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
	}
	return filepath.Join(root, DefaultDataDirName), nil
}

// FindDatasetPath locates the dataset JSON file in dir.
// Prefers metrics.json, skips backups and editor artifacts.
func FindDatasetPath(dir string) (string, error) {
	return FindDatasetPathWithWarnings(dir, nil)
}

// FindDatasetPathWithWarnings is like FindDatasetPath but reports skipped
// backup files via warnFunc.
func FindDatasetPathWithWarnings(dir string, warnFunc func(msg string)) (string, error) {
	candidates, err := DatasetCandidates(dir)
	if err != nil {
		return "", err
	}

	var skipped []string
	var names []string
	for _, path := range candidates {
		name := filepath.Base(path)
		if isBackupName(name) {
			skipped = append(skipped, name)
			continue
		}
		names = append(names, name)
	}
	if len(skipped) > 0 && warnFunc != nil {
		warnFunc(fmt.Sprintf("Ignoring backup dataset files: %s", strings.Join(skipped, ", ")))
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no dataset JSON file found in %s", dir)
	}

	for _, preferred := range PreferredDatasetNames {
		for _, name := range names {
			if name == preferred {
				path := filepath.Join(dir, name)
				if info, err := os.Stat(path); err == nil && info.Size() > 0 {
					return path, nil
				}
			}
		}
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return path, nil
		}
	}

	return filepath.Join(dir, names[0]), nil
}

// DatasetCandidates lists every *.json file directly inside dir, sorted by name.
func DatasetCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

func isBackupName(name string) bool {
	return strings.Contains(name, ".backup") ||
		strings.Contains(name, ".orig") ||
		strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~.json")
}

// LoadDataset reads the dataset from the data directory under root.
// Respects OPSCOST_DATA_DIR.
func LoadDataset(root string) (*model.Dataset, error) {
	dir, err := GetDataDir(root)
	if err != nil {
		return nil, err
	}
	path, err := FindDatasetPath(dir)
	if err != nil {
		return nil, err
	}
	return LoadDatasetFromFile(path)
}

// ParseOptions configures the behavior of ParseDataset.
type ParseOptions struct {
	// WarningHandler is called with warning messages (e.g., invalid entities).
	// If nil, warnings are printed to os.Stderr unless OPSCOST_ROBOT=1.
	WarningHandler func(string)

	// MaxBytes caps the document size. If 0, uses DefaultMaxBytes.
	MaxBytes int64

	// MeasurementFilter optionally filters parsed measurements. Return true to include.
	MeasurementFilter func(*model.Measurement) bool
}

// LoadDatasetFromFile reads a dataset from a JSON file.
func LoadDatasetFromFile(path string) (*model.Dataset, error) {
	return LoadDatasetFromFileWithOptions(path, ParseOptions{})
}

// LoadDatasetFromFileWithOptions reads a dataset from a JSON file with custom options.
func LoadDatasetFromFileWithOptions(path string, opts ParseOptions) (*model.Dataset, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no dataset found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	return ParseDatasetWithOptions(file, opts)
}

// ParseDataset parses a JSON dataset document.
// Handles UTF-8 BOM stripping and per-entity validation.
func ParseDataset(r io.Reader) (*model.Dataset, error) {
	return ParseDatasetWithOptions(r, ParseOptions{})
}

type rawDataset struct {
	Devices      []json.RawMessage `json:"devices"`
	Ops          []json.RawMessage `json:"ops"`
	Measurements []json.RawMessage `json:"measurements"`
	UpdatedAt    *string           `json:"updated_at"`
}

// ParseDatasetWithOptions parses a JSON dataset document with custom options.
// A malformed document is an error; malformed or invalid entities are skipped
// with a warning.
func ParseDatasetWithOptions(r io.Reader, opts ParseOptions) (*model.Dataset, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("dataset exceeds %d bytes", maxBytes)
	}
	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	warn := opts.WarningHandler
	if warn == nil {
		warn = DefaultWarningHandler()
	}

	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed dataset JSON: %w", err)
	}

	devices := make([]model.Device, 0, len(raw.Devices))
	for i, msg := range raw.Devices {
		var d model.Device
		if err := decodeEntity(msg, &d, d.Validate); err != nil {
			warn(fmt.Sprintf("skipping device %d: %v", i, err))
			continue
		}
		devices = append(devices, d)
	}

	ops := make([]model.Op, 0, len(raw.Ops))
	for i, msg := range raw.Ops {
		var o model.Op
		if err := decodeEntity(msg, &o, o.Validate); err != nil {
			warn(fmt.Sprintf("skipping op %d: %v", i, err))
			continue
		}
		ops = append(ops, o)
	}

	measurements := make([]model.Measurement, 0, len(raw.Measurements))
	for i, msg := range raw.Measurements {
		var m model.Measurement
		if err := decodeEntity(msg, &m, m.Validate); err != nil {
			warn(fmt.Sprintf("skipping measurement %d: %v", i, err))
			continue
		}
		m.MetricFamily = NormalizeMetricFamily(m.MetricFamily)
		if opts.MeasurementFilter != nil && !opts.MeasurementFilter(&m) {
			continue
		}
		measurements = append(measurements, m)
	}

	return model.NewDataset(devices, ops, measurements, raw.UpdatedAt), nil
}

// decodeEntity unmarshals msg into v and runs validate on the result.
func decodeEntity(msg json.RawMessage, v any, validate func() error) error {
	if err := json.Unmarshal(msg, v); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return validate()
}

// DefaultWarningHandler prints skipped-entity warnings to stderr, or drops
// them when OPSCOST_ROBOT=1 keeps stdout and stderr machine-readable.
func DefaultWarningHandler() func(string) {
	if os.Getenv("OPSCOST_ROBOT") == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

// NormalizeMetricFamily trims and lower-cases a metric family so every
// source matches the lower-case selection keys.
func NormalizeMetricFamily(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}
