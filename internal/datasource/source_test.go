package datasource

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeJSON(t *testing.T, dir, name, content string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if !mod.IsZero() {
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}
	return path
}

const validJSON = `{
  "devices": [{"id": "d1", "name": "One", "type": "cpu"}],
  "ops": [{"id": "op1", "name": "Add", "class": "compute"}],
  "measurements": [
    {"op_id": "op1", "device_id": "d1", "metric_family": "latency", "value": 1, "unit": "ms"}
  ]
}`

func TestSortSources(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sources := []DataSource{
		{Path: "old.json", Type: SourceTypeJSON, Priority: PriorityJSON, ModTime: base},
		{Path: "tie.json", Type: SourceTypeJSON, Priority: PriorityJSON, ModTime: base.Add(time.Hour)},
		{Path: "tie.db", Type: SourceTypeSQLite, Priority: PrioritySQLite, ModTime: base.Add(time.Hour)},
		{Path: "new.json", Type: SourceTypeJSON, Priority: PriorityJSON, ModTime: base.Add(2 * time.Hour)},
	}
	sortSources(sources)

	want := []string{"new.json", "tie.db", "tie.json", "old.json"}
	for i, w := range want {
		if sources[i].Path != w {
			t.Errorf("position %d = %s, want %s", i, sources[i].Path, w)
		}
	}
}

func TestSelectBestSource(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		sources []DataSource
		want    string
		wantErr error
	}{
		{
			name:    "no sources",
			wantErr: ErrNoSources,
		},
		{
			name: "all invalid",
			sources: []DataSource{
				{Path: "a.json", Valid: false, ModTime: base},
			},
			wantErr: ErrNoSources,
		},
		{
			name: "freshest valid wins",
			sources: []DataSource{
				{Path: "stale.db", Type: SourceTypeSQLite, Priority: PrioritySQLite, Valid: true, ModTime: base},
				{Path: "fresh.json", Type: SourceTypeJSON, Priority: PriorityJSON, Valid: true, ModTime: base.Add(time.Minute)},
				{Path: "broken.json", Type: SourceTypeJSON, Priority: PriorityJSON, Valid: false, ModTime: base.Add(time.Hour)},
			},
			want: "fresh.json",
		},
		{
			name: "sqlite wins ties",
			sources: []DataSource{
				{Path: "metrics.json", Type: SourceTypeJSON, Priority: PriorityJSON, Valid: true, ModTime: base},
				{Path: "metrics.db", Type: SourceTypeSQLite, Priority: PrioritySQLite, Valid: true, ModTime: base},
			},
			want: "metrics.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectBestSource(tt.sources)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Path != tt.want {
				t.Errorf("selected %s, want %s", got.Path, tt.want)
			}
		})
	}
}

func TestDiscoverSources_FiltersInvalidAndBackups(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeJSON(t, dir, "metrics.json", validJSON, base)
	writeJSON(t, dir, "broken.json", `{"devices": [`, base.Add(time.Minute))
	writeJSON(t, dir, "empty.json", ``, base)
	writeJSON(t, dir, "metrics.json.backup.json", validJSON, base)
	writeJSON(t, dir, "notes.txt", "ignored", base)

	var logs []string
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dir,
		ValidateAfterDiscovery: true,
		Verbose:                true,
		Logger:                 func(msg string) { logs = append(logs, msg) },
	})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 1 || filepath.Base(sources[0].Path) != "metrics.json" {
		t.Fatalf("expected only metrics.json, got %v", sources)
	}
	if sources[0].MeasurementCount != 1 || !sources[0].Valid {
		t.Errorf("unexpected source %s", sources[0])
	}
	if len(logs) == 0 {
		t.Error("expected discovery log messages")
	}
}

func TestDiscoverSources_IncludeInvalid(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "broken.json", `not json`, time.Time{})

	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         true,
	})
	if err != nil {
		t.Fatalf("DiscoverSources: %v", err)
	}
	if len(sources) != 1 || sources[0].Valid || sources[0].ValidationError == "" {
		t.Fatalf("expected one invalid source, got %v", sources)
	}
	if !strings.Contains(sources[0].String(), "invalid:") {
		t.Errorf("String() = %q", sources[0].String())
	}
}

func TestDiscoverSources_MissingDir(t *testing.T) {
	sources, err := DiscoverSources(DiscoveryOptions{DataDir: filepath.Join(t.TempDir(), "nope")})
	if err != nil {
		t.Fatalf("missing dir should not be fatal: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %v", sources)
	}
}

func TestValidateSource_EmptyFile(t *testing.T) {
	src := DataSource{Type: SourceTypeJSON, Path: "x.json"}
	if err := ValidateSource(&src); err == nil {
		t.Fatal("expected error for empty file")
	}
	if src.Valid || src.ValidationError != "file is empty" {
		t.Errorf("unexpected source state %+v", src)
	}
}

func TestValidateSource_UnknownType(t *testing.T) {
	src := DataSource{Type: "csv", Path: "x.csv", Size: 10}
	if err := ValidateSource(&src); err == nil || !strings.Contains(err.Error(), "unknown source type") {
		t.Fatalf("err = %v", err)
	}
}

func TestSourceForPath(t *testing.T) {
	tests := map[string]SourceType{
		"a/metrics.db":   SourceTypeSQLite,
		"b.SQLITE":       SourceTypeSQLite,
		"c.sqlite3":      SourceTypeSQLite,
		"d/metrics.json": SourceTypeJSON,
		"no-extension":   SourceTypeJSON,
	}
	for path, want := range tests {
		if got := sourceForPath(path).Type; got != want {
			t.Errorf("sourceForPath(%q) = %s, want %s", path, got, want)
		}
	}
}
