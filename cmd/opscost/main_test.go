package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/opscost/internal/datasource"
	"github.com/vanderheijden86/opscost/pkg/config"
	"github.com/vanderheijden86/opscost/pkg/testutil"
)

func TestMain(m *testing.M) {
	os.Setenv("OPSCOST_TEST_MODE", "1")
	cfgHome, err := os.MkdirTemp("", "opscost-cli-test")
	if err == nil {
		os.Setenv("XDG_CONFIG_HOME", cfgHome)
	}
	code := m.Run()
	if cfgHome != "" {
		os.RemoveAll(cfgHome)
	}
	os.Exit(code)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func scenarioFile(t *testing.T) string {
	t.Helper()
	return testutil.WriteDatasetFile(t, t.TempDir(), "metrics.json", testutil.Scenario())
}

// robotDoc mirrors the parts of robotOutput the tests inspect.
type robotDoc struct {
	Version    string `json:"version"`
	SourceType string `json:"source_type"`
	View       struct {
		Selection struct {
			MetricFamily string   `json:"metric_family"`
			OpClass      string   `json:"op_class"`
			OpID         string   `json:"op_id"`
			Devices      []string `json:"selected_devices"`
		} `json:"selection"`
		Chart struct {
			Empty    bool   `json:"empty"`
			Subtitle string `json:"subtitle"`
			Rows     []struct {
				DeviceID string  `json:"device_id"`
				Percent  float64 `json:"percent"`
			} `json:"rows"`
		} `json:"chart"`
		DetailsEmpty bool `json:"details_empty"`
	} `json:"view"`
}

func decodeRobot(t *testing.T, out string) robotDoc {
	t.Helper()
	var doc robotDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("robot output is not JSON: %v\n%s", err, out)
	}
	return doc
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != 0 || !strings.HasPrefix(out, "opscost ") {
		t.Errorf("--version = %d %q", code, out)
	}

	code, out, _ = runCLI(t, "--help")
	if code != 0 || !strings.Contains(out, "Usage: opscost") || !strings.Contains(out, "-robot-view") {
		t.Errorf("--help = %d %q", code, out)
	}
}

func TestUnknownFlag(t *testing.T) {
	code, _, errOut := runCLI(t, "--no-such-flag")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut, "no-such-flag") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestLoadFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	code, _, errOut := runCLI(t, "--data", missing, "--robot-view")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(errOut, "Failed to load dataset: ") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRobotViewDefaults(t *testing.T) {
	code, out, errOut := runCLI(t, "--data", scenarioFile(t), "--robot-view")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	doc := decodeRobot(t, out)

	if doc.SourceType != string(datasource.SourceTypeJSON) {
		t.Errorf("source_type = %q", doc.SourceType)
	}
	sel := doc.View.Selection
	if sel.MetricFamily != "latency" || sel.OpClass != "all" || sel.OpID != "op1" {
		t.Errorf("selection = %+v", sel)
	}
	if !reflect.DeepEqual(sel.Devices, []string{"d1", "d2"}) {
		t.Errorf("devices = %v", sel.Devices)
	}
	rows := doc.View.Chart.Rows
	if len(rows) != 2 || rows[0].DeviceID != "d2" || rows[0].Percent != 100 {
		t.Errorf("rows = %+v", rows)
	}
	if doc.View.Chart.Subtitle != "Add · Latency measurements" {
		t.Errorf("subtitle = %q", doc.View.Chart.Subtitle)
	}
}

func TestRobotViewSelectionFlags(t *testing.T) {
	path := scenarioFile(t)

	code, out, errOut := runCLI(t, "--data", path, "--robot-view", "--devices", "d1")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	doc := decodeRobot(t, out)
	if rows := doc.View.Chart.Rows; len(rows) != 1 || rows[0].DeviceID != "d1" || rows[0].Percent != 100 {
		t.Errorf("rows = %+v", rows)
	}

	code, out, _ = runCLI(t, "--data", path, "--robot-view", "--metric", "Memory")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	doc = decodeRobot(t, out)
	if doc.View.Selection.MetricFamily != "memory" || doc.View.Selection.OpID != "" {
		t.Errorf("selection = %+v", doc.View.Selection)
	}
	if !doc.View.Chart.Empty || !doc.View.DetailsEmpty {
		t.Error("memory view should be empty")
	}

	code, out, _ = runCLI(t, "--data", path, "--robot-view", "--devices", "")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if doc = decodeRobot(t, out); len(doc.View.Selection.Devices) != 0 || !doc.View.Chart.Empty {
		t.Errorf("empty --devices should clear the selection: %+v", doc.View.Selection)
	}
}

func TestInvalidSelection(t *testing.T) {
	path := scenarioFile(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown device", []string{"--devices", "d9"}, "unknown device"},
		{"unavailable op", []string{"--op", "op9"}, "op not available"},
		{"empty metric", []string{"--metric", ""}, "unknown metric family"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--data", path, "--robot-view"}, tt.args...)
			code, _, errOut := runCLI(t, args...)
			if code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr = %q, want %q", errOut, tt.want)
			}
		})
	}
}

func TestExportFlags(t *testing.T) {
	dir := t.TempDir()
	chart := filepath.Join(dir, "chart.svg")
	details := filepath.Join(dir, "details.md")
	db := filepath.Join(dir, "metrics.db")

	code, out, errOut := runCLI(t, "--data", scenarioFile(t),
		"--export-chart", chart, "--export-details", details, "--export-sqlite", db)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	for _, p := range []string{chart, details, db} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
		if !strings.Contains(out, "Wrote "+p) {
			t.Errorf("stdout missing %s: %q", p, out)
		}
	}

	// The exported database loads back as a dataset
	code, out, errOut = runCLI(t, "--data", db, "--robot-view")
	if code != 0 {
		t.Fatalf("reload exit code = %d, stderr = %s", code, errOut)
	}
	if doc := decodeRobot(t, out); doc.SourceType != string(datasource.SourceTypeSQLite) || len(doc.View.Chart.Rows) != 2 {
		t.Errorf("reloaded doc = %+v", doc)
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "metrics.json")

	tests := []struct {
		name    string
		flag    string
		cfgPath string
		cfgDir  string
		env     string
		want    datasource.LoadOptions
	}{
		{"nothing", "", "", "", "", datasource.LoadOptions{}},
		{"flag file", file, "", "", "", datasource.LoadOptions{Path: file}},
		{"flag dir", dir, "", "", "", datasource.LoadOptions{DataDir: dir}},
		{"flag beats config", file, "/other.json", "", "", datasource.LoadOptions{Path: file}},
		{"config path", "", "/other.json", "", "", datasource.LoadOptions{Path: "/other.json"}},
		{"config dir", "", "", "/data", "", datasource.LoadOptions{DataDir: "/data"}},
		{"env beats config dir", "", "", "/data", "/env", datasource.LoadOptions{DataDir: "/env"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPSCOST_DATA_DIR", tt.env)
			cfg := config.DefaultConfig()
			cfg.Data.Path = tt.cfgPath
			cfg.Data.Dir = tt.cfgDir
			got := loadOptions(&cliOptions{dataPath: tt.flag}, cfg)
			if got.Path != tt.want.Path || got.DataDir != tt.want.DataDir {
				t.Errorf("loadOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInitialUpdate(t *testing.T) {
	if _, ok := initialUpdate(&cliOptions{set: map[string]bool{}}); ok {
		t.Error("no flags should produce no update")
	}

	opts := &cliOptions{
		metric:  " Latency ",
		class:   "compute",
		op:      "op1",
		devices: "d1, ,d2",
		set:     map[string]bool{"metric": true, "class": true, "op": true, "devices": true},
	}
	u, ok := initialUpdate(opts)
	if !ok {
		t.Fatal("expected an update")
	}
	if *u.MetricFamily != "latency" || *u.OpClass != "compute" || *u.OpID != "op1" {
		t.Errorf("update = %+v", u)
	}
	if !u.ClearDevices || !reflect.DeepEqual(u.ToggleDevices, []string{"d1", "d2"}) {
		t.Errorf("devices = %v clear=%v", u.ToggleDevices, u.ClearDevices)
	}
}

func TestReportTitle(t *testing.T) {
	if got := reportTitle(datasource.DataSource{}); got != "opscost" {
		t.Errorf("reportTitle(empty) = %q", got)
	}
	src := datasource.DataSource{Path: "/tmp/data/metrics.json"}
	if got := reportTitle(src); got != "opscost: metrics.json" {
		t.Errorf("reportTitle() = %q", got)
	}
}
