package export

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/opscost/pkg/engine"
	"github.com/vanderheijden86/opscost/pkg/testutil"
)

func TestSaveChartSnapshot_SVGValidXML(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chart.svg")
	err := SaveChartSnapshot(ChartSnapshotOptions{
		Path:  out,
		Title: "Latency <ms> & friends",
		Chart: scenarioView(t).Chart,
	})
	if err != nil {
		t.Fatalf("SaveChartSnapshot error: %v", err)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var doc struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(content, &doc); err != nil {
		t.Fatalf("SVG is not valid XML: %v\n%s", err, content)
	}
	if doc.XMLName.Local != "svg" {
		t.Errorf("root element = %q, want svg", doc.XMLName.Local)
	}

	s := string(content)
	for _, want := range []string{"Device Two", "Device One", "30 ms  100.0%", "unit: ms", "n=2"} {
		if !strings.Contains(s, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

func TestSaveChartSnapshot_SVGEmptyChart(t *testing.T) {
	s, _ := engine.New(testutil.Scenario(), engine.Options{})
	view, err := s.OnSelectionChanged(engine.Update{ClearDevices: true})
	if err != nil {
		t.Fatalf("OnSelectionChanged: %v", err)
	}

	out := filepath.Join(t.TempDir(), "empty.svg")
	if err := SaveChartSnapshot(ChartSnapshotOptions{Path: out, Chart: view.Chart, PlaceholderData: true}); err != nil {
		t.Fatalf("SaveChartSnapshot error: %v", err)
	}
	content, _ := os.ReadFile(out)
	if !strings.Contains(string(content), view.Chart.Placeholder()) {
		t.Errorf("placeholder text missing:\n%s", content)
	}
	if !strings.Contains(string(content), "Contains placeholder data") {
		t.Error("placeholder banner missing")
	}
}

func TestSaveChartSnapshot_PNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "chart.png")
	if err := SaveChartSnapshot(ChartSnapshotOptions{Path: out, Chart: scenarioView(t).Chart}); err != nil {
		t.Fatalf("SaveChartSnapshot error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 900 || img.Bounds().Dy() < 240 {
		t.Errorf("unexpected image bounds %v", img.Bounds())
	}
}

func TestResolveImageFormat(t *testing.T) {
	tests := []struct {
		format, path      string
		wantFmt, wantPath string
		wantErr           bool
	}{
		{"", "out.svg", "svg", "out.svg", false},
		{"", "out.PNG", "png", "out.PNG", false},
		{"", "out", "svg", "out.svg", false},
		{".png", "out.img", "png", "out.img", false},
		{"gif", "out.gif", "", "", true},
		{"svg", "", "", "", true},
	}
	for _, tt := range tests {
		gotFmt, gotPath, err := resolveImageFormat(tt.format, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveImageFormat(%q, %q) err = %v", tt.format, tt.path, err)
			continue
		}
		if gotFmt != tt.wantFmt || gotPath != tt.wantPath {
			t.Errorf("resolveImageFormat(%q, %q) = %q, %q", tt.format, tt.path, gotFmt, gotPath)
		}
	}
}

func TestBuildChartLayout_BarWidths(t *testing.T) {
	l := buildChartLayout(ChartSnapshotOptions{Chart: scenarioView(t).Chart})
	if len(l.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(l.Bars))
	}
	if l.Bars[0].BarWidth != l.BarMaxW {
		t.Errorf("top bar width = %v, want %v", l.Bars[0].BarWidth, l.BarMaxW)
	}
	if l.Bars[1].BarWidth >= l.Bars[0].BarWidth {
		t.Error("bars not ranked")
	}
	if l.Title != "Operation cost" {
		t.Errorf("default title = %q", l.Title)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 5); got != "ab..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Errorf("truncate = %q", got)
	}
}
