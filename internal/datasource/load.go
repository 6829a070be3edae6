package datasource

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/opscost/pkg/debug"
	"github.com/vanderheijden86/opscost/pkg/loader"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// LoadOptions configures Load.
type LoadOptions struct {
	// Path loads this file directly, skipping discovery. A .db suffix selects SQLite.
	Path string
	// DataDir is searched when Path is empty (optional, see loader.GetDataDir)
	DataDir string
	// Root is the directory holding data/ when DataDir is empty
	Root string
	// Logger receives discovery messages
	Logger func(msg string)
	// WarningHandler receives one message per skipped entity, whichever
	// source is loaded. Defaults to loader.DefaultWarningHandler.
	WarningHandler func(msg string)
}

// Load performs multi-source detection and loading.
// It discovers all available sources (SQLite, JSON), validates them, selects
// the freshest valid source, and loads the dataset from it. SQLite is
// preferred over JSON at equal freshness.
//
// Falls back to plain JSON lookup via loader.FindDatasetPath if detection
// finds no valid sources.
func Load(ctx context.Context, opts LoadOptions) (*model.Dataset, DataSource, error) {
	if opts.Path != "" {
		src := sourceForPath(opts.Path)
		ds, err := loadFromSource(ctx, src, opts.WarningHandler)
		return ds, src, err
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		var err error
		dataDir, err = loader.GetDataDir(opts.Root)
		if err != nil {
			return nil, DataSource{}, err
		}
	}

	ds, src, smartErr := loadSmart(ctx, dataDir, opts)
	if smartErr == nil {
		return ds, src, nil
	}
	debug.Log("source detection in %s failed: %v", dataDir, smartErr)

	path, err := loader.FindDatasetPath(dataDir)
	if err != nil {
		return nil, DataSource{}, errors.Join(smartErr, err)
	}
	src = DataSource{Type: SourceTypeJSON, Path: path, Priority: PriorityJSON}
	ds, err = loader.LoadDatasetFromFileWithOptions(path, loader.ParseOptions{WarningHandler: opts.WarningHandler})
	return ds, src, err
}

// loadSmart discovers sources, validates, selects the best, and loads from it.
func loadSmart(ctx context.Context, dataDir string, opts LoadOptions) (*model.Dataset, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dataDir,
		ValidateAfterDiscovery: true,
		Verbose:                opts.Logger != nil,
		Logger:                 opts.Logger,
	})
	if err != nil {
		return nil, DataSource{}, err
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, DataSource{}, err
	}
	debug.Log("selected source %s", best)

	ds, err := loadFromSource(ctx, best, opts.WarningHandler)
	return ds, best, err
}

// LoadFromSource loads the dataset from a specific DataSource, dispatching to
// the appropriate reader based on source type.
func LoadFromSource(ctx context.Context, source DataSource) (*model.Dataset, error) {
	return loadFromSource(ctx, source, nil)
}

// loadFromSource reports skipped entities to warn, or to the default handler
// when warn is nil.
func loadFromSource(ctx context.Context, source DataSource, warn func(string)) (*model.Dataset, error) {
	switch source.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		if warn != nil {
			reader.WarningHandler = warn
		}
		return reader.LoadDataset(ctx)

	case SourceTypeJSON:
		return loader.LoadDatasetFromFileWithOptions(source.Path, loader.ParseOptions{WarningHandler: warn})

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

func sourceForPath(path string) DataSource {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return DataSource{Type: SourceTypeSQLite, Path: path, Priority: PrioritySQLite}
	default:
		return DataSource{Type: SourceTypeJSON, Path: path, Priority: PriorityJSON}
	}
}
