// Package datasource discovers, validates and selects the freshest valid
// dataset source in a data directory: SQLite databases exported by opscost
// and JSON dataset files.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/opscost/pkg/loader"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database (metrics.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a JSON dataset document
	SourceTypeJSON SourceType = "json"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSON   = 50
)

// DefaultSQLiteName is the database file looked for in the data directory.
const DefaultSQLiteName = "metrics.db"

// ErrNoSources is returned when discovery finds nothing loadable.
var ErrNoSources = errors.New("no valid sources discovered")

// DataSource represents a potential source of dataset content
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are equal (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// MeasurementCount is the number of measurements (set during validation)
	MeasurementCount int `json:"measurement_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, measurements=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.MeasurementCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// DataDir is the data directory (optional, resolved via loader.GetDataDir if empty)
	DataDir string
	// Root is the directory holding data/ (optional, uses cwd if empty)
	Root string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

func (o *DiscoveryOptions) logf(format string, args ...any) {
	if o.Verbose && o.Logger != nil {
		o.Logger(fmt.Sprintf(format, args...))
	}
}

// DiscoverSources finds all potential data sources in the data directory,
// freshest first. Equal modification times fall back to priority.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = loader.GetDataDir(opts.Root)
		if err != nil {
			return nil, err
		}
	}

	opts.logf("Discovering sources in: %s", dataDir)

	var sources []DataSource
	sources = append(sources, discoverSQLiteSources(dataDir, &opts)...)

	jsonSources, err := discoverJSONSources(dataDir, &opts)
	if err != nil {
		opts.logf("JSON discovery warning: %v", err)
	}
	sources = append(sources, jsonSources...)

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil {
				opts.logf("Validation failed for %s: %v", sources[i].Path, err)
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	opts.logf("Discovered %d sources", len(sources))
	return sources, nil
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

// discoverSQLiteSources finds the SQLite database in the data directory
func discoverSQLiteSources(dataDir string, opts *DiscoveryOptions) []DataSource {
	dbPath := filepath.Join(dataDir, DefaultSQLiteName)
	info, err := os.Stat(dbPath)
	if err != nil || info.IsDir() {
		return nil
	}
	opts.logf("Found SQLite: %s (mod=%s)", dbPath, info.ModTime().Format(time.RFC3339))
	return []DataSource{{
		Type:     SourceTypeSQLite,
		Path:     dbPath,
		Priority: PrioritySQLite,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}}
}

// discoverJSONSources finds dataset JSON files in the data directory
func discoverJSONSources(dataDir string, opts *DiscoveryOptions) ([]DataSource, error) {
	paths, err := loader.DatasetCandidates(dataDir)
	if err != nil {
		return nil, err
	}

	var sources []DataSource
	for _, path := range paths {
		name := filepath.Base(path)
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		sources = append(sources, DataSource{
			Type:     SourceTypeJSON,
			Path:     path,
			Priority: PriorityJSON,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
		opts.logf("Found JSON: %s (mod=%s)", path, info.ModTime().Format(time.RFC3339))
	}
	return sources, nil
}

// ValidateSource checks that source can be loaded and records the result on
// it. An empty dataset is valid.
func ValidateSource(source *DataSource) error {
	count, err := countMeasurements(source)
	if err != nil {
		source.Valid = false
		source.ValidationError = err.Error()
		return err
	}
	source.Valid = true
	source.ValidationError = ""
	source.MeasurementCount = count
	return nil
}

func countMeasurements(source *DataSource) (int, error) {
	if source.Size == 0 {
		return 0, errors.New("file is empty")
	}
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(*source)
		if err != nil {
			return 0, err
		}
		defer reader.Close()
		return reader.CountMeasurements()

	case SourceTypeJSON:
		ds, err := loader.LoadDatasetFromFileWithOptions(source.Path, loader.ParseOptions{
			WarningHandler: func(string) {},
		})
		if err != nil {
			return 0, err
		}
		return len(ds.Measurements), nil

	default:
		return 0, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// SelectBestSource returns the freshest valid source; SQLite wins ties.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, ErrNoSources
	}
	sortSources(valid)
	return valid[0], nil
}
