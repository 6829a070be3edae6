package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/opscost/pkg/engine"
	"github.com/vanderheijden86/opscost/pkg/export"
	"github.com/vanderheijden86/opscost/pkg/model"
	"github.com/vanderheijden86/opscost/pkg/testutil"
)

func newScenarioModel(t *testing.T, opts Options) Model {
	t.Helper()
	session, _ := engine.New(testutil.Scenario(), engine.Options{
		MetricFamilies: []string{"latency", "memory"},
	})
	return NewModel(session, opts)
}

func press(m Model, k string) Model {
	var msg tea.KeyMsg
	switch k {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestNewModelInitialState(t *testing.T) {
	m := newScenarioModel(t, Options{})
	v := m.CurrentView()

	if v.Selection.MetricFamily != "latency" {
		t.Errorf("MetricFamily = %q, want latency", v.Selection.MetricFamily)
	}
	if v.Selection.OpID != "op1" {
		t.Errorf("OpID = %q, want op1", v.Selection.OpID)
	}
	if m.focused != focusOps {
		t.Errorf("focus = %v, want ops", m.focused)
	}
	if len(v.Chart.Rows) != 2 {
		t.Fatalf("chart rows = %d, want 2", len(v.Chart.Rows))
	}
}

func TestNewModelFocusesDevicesWithoutOps(t *testing.T) {
	session, _ := engine.New(testutil.Empty(), engine.Options{})
	m := NewModel(session, Options{})
	if m.focused != focusDevices {
		t.Errorf("focus = %v, want devices", m.focused)
	}
}

func TestMetricSwitching(t *testing.T) {
	m := newScenarioModel(t, Options{})

	m = press(m, "l")
	v := m.CurrentView()
	if v.Selection.MetricFamily != "memory" {
		t.Fatalf("MetricFamily = %q, want memory", v.Selection.MetricFamily)
	}
	if v.Selection.OpID != "" {
		t.Errorf("OpID = %q, want cleared", v.Selection.OpID)
	}
	if !v.Chart.Empty {
		t.Error("chart should be empty for memory")
	}
	if m.statusMsg != "Metric: Memory" {
		t.Errorf("status = %q", m.statusMsg)
	}

	// Wraps back to latency and picks the first op again
	m = press(m, "l")
	v = m.CurrentView()
	if v.Selection.MetricFamily != "latency" || v.Selection.OpID != "op1" {
		t.Errorf("selection = %s/%s, want latency/op1", v.Selection.MetricFamily, v.Selection.OpID)
	}

	m = press(m, "h")
	if got := m.CurrentView().Selection.MetricFamily; got != "memory" {
		t.Errorf("h from latency = %q, want memory", got)
	}
}

func TestClassCycle(t *testing.T) {
	m := newScenarioModel(t, Options{})

	m = press(m, "c")
	v := m.CurrentView()
	if v.Selection.OpClass != "compute" {
		t.Fatalf("OpClass = %q, want compute", v.Selection.OpClass)
	}
	if v.Selection.OpID != "op1" {
		t.Errorf("OpID = %q, want op1 kept", v.Selection.OpID)
	}

	m = press(m, "c")
	if got := m.CurrentView().Selection.OpClass; got != model.OpClassAll {
		t.Errorf("OpClass = %q, want %q", got, model.OpClassAll)
	}
}

func TestFocusCycle(t *testing.T) {
	m := newScenarioModel(t, Options{})

	m = press(m, "tab")
	if m.focused != focusDevices {
		t.Fatalf("focus = %v, want devices", m.focused)
	}
	// Detail pane hidden: skip it
	m = press(m, "tab")
	if m.focused != focusOps {
		t.Errorf("focus = %v, want ops", m.focused)
	}

	m = press(m, "d")
	m = press(m, "tab")
	m = press(m, "tab")
	if m.focused != focusDetail {
		t.Errorf("focus = %v, want details", m.focused)
	}
	m = press(m, "d")
	if m.focused != focusOps {
		t.Errorf("hiding details should move focus to ops, got %v", m.focused)
	}
}

func TestToggleDevice(t *testing.T) {
	m := newScenarioModel(t, Options{})

	// Space does nothing while ops are focused
	m = press(m, " ")
	if n := len(m.CurrentView().Selection.Devices); n != 2 {
		t.Fatalf("devices = %d, want 2", n)
	}

	m = press(m, "tab")
	m = press(m, "down")
	m = press(m, " ")
	v := m.CurrentView()
	if v.Selection.Devices.Has("d2") {
		t.Error("d2 should be deselected")
	}
	if len(v.Chart.Rows) != 1 || v.Chart.Rows[0].DeviceID != "d1" {
		t.Fatalf("rows = %+v, want only d1", v.Chart.Rows)
	}
	if v.Chart.Rows[0].PercentLabel() != "100.0%" {
		t.Errorf("percent = %s, want 100.0%%", v.Chart.Rows[0].PercentLabel())
	}
	if m.statusMsg != "Device Two · gpu off" {
		t.Errorf("status = %q", m.statusMsg)
	}

	m = press(m, "x")
	if !m.CurrentView().Selection.Devices.Has("d2") {
		t.Error("x should toggle d2 back on")
	}
}

func TestSelectAllAndClear(t *testing.T) {
	m := newScenarioModel(t, Options{})

	m = press(m, "n")
	v := m.CurrentView()
	if len(v.Selection.Devices) != 0 {
		t.Fatalf("devices = %d, want 0", len(v.Selection.Devices))
	}
	if !v.Chart.Empty || !v.DetailsEmpty {
		t.Error("clearing devices should empty chart and details")
	}

	m = press(m, "a")
	if n := len(m.CurrentView().Selection.Devices); n != 2 {
		t.Errorf("devices = %d, want 2", n)
	}
}

func TestCopyCommands(t *testing.T) {
	m := newScenarioModel(t, Options{})

	m = press(m, "y")
	if m.statusMsg != "No recipe commands to copy" || !m.statusIsError {
		t.Errorf("status = %q (error=%v)", m.statusMsg, m.statusIsError)
	}

	cfg := testutil.DefaultConfig()
	cfg.WithRecipes = true
	session, view := engine.New(testutil.New(cfg).Dataset(), engine.Options{})
	m = NewModel(session, Options{})
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}

	var want []string
	for _, r := range view.Details {
		want = append(want, r.RunCommands()...)
	}
	if len(want) == 0 {
		t.Fatal("generated view has no recipe commands")
	}
	m = press(m, "y")
	if copied != strings.Join(want, "\n") {
		t.Errorf("copied = %q, want %q", copied, strings.Join(want, "\n"))
	}
	if !strings.HasPrefix(m.statusMsg, "📋 Copied") {
		t.Errorf("status = %q", m.statusMsg)
	}

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m = press(m, "y")
	if !m.statusIsError || !strings.Contains(m.statusMsg, "no clipboard") {
		t.Errorf("status = %q (error=%v)", m.statusMsg, m.statusIsError)
	}
}

func TestExportKey(t *testing.T) {
	m := newScenarioModel(t, Options{})
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	m = updated.(Model)
	if cmd != nil {
		t.Error("unconfigured export should not start a command")
	}
	if m.statusMsg != "Export is not configured" {
		t.Errorf("status = %q", m.statusMsg)
	}

	dir := t.TempDir()
	m = newScenarioModel(t, Options{ExportPlan: export.Plan{DetailsPath: dir + "/details.md"}})
	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("configured export should return a command")
	}
	if !m.exporting {
		t.Error("model should be exporting")
	}

	updated, _ = m.Update(cmd())
	m = updated.(Model)
	if m.exporting {
		t.Error("export should be finished")
	}
	if !strings.HasPrefix(m.statusMsg, "✓ Exported 1 file(s)") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestExportDoneError(t *testing.T) {
	m := newScenarioModel(t, Options{})
	updated, _ := m.Update(exportDoneMsg{err: errors.New("disk full")})
	m = updated.(Model)
	if !m.statusIsError || m.statusMsg != "❌ Export failed: disk full" {
		t.Errorf("status = %q (error=%v)", m.statusMsg, m.statusIsError)
	}
}

func TestHelpToggle(t *testing.T) {
	m := newScenarioModel(t, Options{})

	m = press(m, "?")
	if !m.showHelp {
		t.Fatal("? should open help")
	}
	// Any key closes help without acting
	m = press(m, "n")
	if m.showHelp {
		t.Error("key should dismiss help")
	}
	if n := len(m.CurrentView().Selection.Devices); n != 2 {
		t.Errorf("dismissing key should not clear devices, got %d", n)
	}
}

func TestQuit(t *testing.T) {
	m := newScenarioModel(t, Options{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q command = %T, want tea.QuitMsg", cmd())
	}
}

func TestWindowResize(t *testing.T) {
	m := newScenarioModel(t, Options{ShowDetails: true})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	m = updated.(Model)

	if !m.ready || m.width != 140 || m.height != 50 {
		t.Errorf("size = %dx%d ready=%v", m.width, m.height, m.ready)
	}
	if m.viewport.Height < MinDetailHeight {
		t.Errorf("viewport height = %d, want >= %d", m.viewport.Height, MinDetailHeight)
	}
}

func TestViewRendersDashboard(t *testing.T) {
	m := newScenarioModel(t, Options{ShowDetails: true})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 60})
	m = updated.(Model)

	out := m.View()
	for _, want := range []string{
		"Latency",
		"Add (op1)",
		"Device One",
		"Device Two",
		"Add · Latency measurements",
		"30 ms",
		"100.0%",
		"Details (2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestViewNarrowAndEmpty(t *testing.T) {
	m := newScenarioModel(t, Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 40})
	m = updated.(Model)
	m = press(m, "l")

	out := m.View()
	if !strings.Contains(out, engine.NoOpsPlaceholder) {
		t.Errorf("View() missing ops placeholder:\n%s", out)
	}
	if !strings.Contains(out, m.CurrentView().Chart.Placeholder()) {
		t.Errorf("View() missing chart placeholder:\n%s", out)
	}
}

func TestRenderDetailsEmpty(t *testing.T) {
	var v engine.View
	got := renderDetails(v, TestTheme(), nil, 80)
	if !strings.Contains(got, engine.NoDetailsPlaceholder) {
		t.Errorf("renderDetails() = %q", got)
	}
}

func TestRenderDetailsRecord(t *testing.T) {
	steps := []engine.StepRecord{{Type: "run", Run: "make bench OP=op1", Expected: "exit 0"}}
	v := engine.View{Details: []engine.DetailRecord{{
		Title:          "Add · Device One",
		Value:          "10 ms",
		MeasuredAt:     engine.Absent,
		Aggregation:    engine.Absent,
		Confidence:     "high",
		Conditions:     []model.Condition{{Key: "threads", Value: "4"}},
		Tags:           []string{"nightly"},
		RecipeSummary:  "Bench it",
		RecipeSteps:    steps,
		RecipeNotes:    "Pin the **CPU governor** first.",
		HasRecipeNotes: true,
	}}}

	got := renderDetails(v, TestTheme(), nil, 80)
	for _, want := range []string{
		"Add · Device One",
		"10 ms",
		"high",
		"threads=4",
		"nightly",
		"Bench it",
		"1. run: make bench OP=op1 → exit 0",
		"Pin the **CPU governor** first.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renderDetails() missing %q:\n%s", want, got)
		}
	}
}
