package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/opscost/pkg/debug"
	"github.com/vanderheijden86/opscost/pkg/engine"
	"github.com/vanderheijden86/opscost/pkg/export"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// Layout thresholds
const (
	defaultWidth       = 100
	defaultHeight      = 30
	SideBySideMinWidth = 90 // Selector and chart share a row at or above this width
	sidePanelWidth     = 34
	MinDetailHeight    = 6
)

// focus represents which pane has keyboard focus
type focus int

const (
	focusOps focus = iota
	focusDevices
	focusDetail
	numFocus // Keep this last - used for cycling
)

func (f focus) String() string {
	switch f {
	case focusOps:
		return "ops"
	case focusDevices:
		return "devices"
	case focusDetail:
		return "details"
	default:
		return "?"
	}
}

// Options configures the dashboard model.
type Options struct {
	BarWidth    int         // Cells of a 100% bar (0 = fit to width)
	ShowDetails bool        // Start with the detail pane open
	ExportPlan  export.Plan // Files written by the export key
}

// exportDoneMsg reports the result of a background export.
type exportDoneMsg struct {
	result *export.Result
	err    error
}

// Model is the bubbletea model for the dashboard. It renders the session's
// View and turns key presses into selection updates.
type Model struct {
	session *engine.Session
	view    engine.View

	theme    Theme
	keys     keyMap
	help     help.Model
	viewport viewport.Model
	md       *glamour.TermRenderer

	focused      focus
	opCursor     int
	deviceCursor int
	showDetails  bool
	showHelp     bool
	barWidth     int

	width  int
	height int
	ready  bool

	statusMsg     string
	statusIsError bool

	exportPlan export.Plan
	exporting  bool

	// copyText writes to the system clipboard; replaced in tests.
	copyText func(string) error
}

// NewModel creates the dashboard over an initialized session.
func NewModel(session *engine.Session, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	m := Model{
		session:     session,
		view:        session.View(),
		theme:       theme,
		keys:        keys,
		help:        help.New(),
		viewport:    viewport.New(defaultWidth, MinDetailHeight),
		md:          newMarkdownRenderer(defaultWidth - 4),
		showDetails: opts.ShowDetails,
		barWidth:    opts.BarWidth,
		width:       defaultWidth,
		height:      defaultHeight,
		exportPlan:  opts.ExportPlan,
		copyText:    clipboard.WriteAll,
	}
	if len(m.view.AvailableOps) == 0 {
		m.focused = focusDevices
	}
	m.syncOpCursor()
	m.refreshDetails()
	return m
}

func newMarkdownRenderer(wrap int) *glamour.TermRenderer {
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		debug.Log("markdown renderer unavailable: %v", err)
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return nil
}

// CurrentView returns the last computed engine view.
func (m Model) CurrentView() engine.View {
	return m.view
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.md = newMarkdownRenderer(msg.Width - 6)
		m.resizeViewport()
		m.refreshDetails()
		return m, nil

	case exportDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("❌ Export failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("✓ Exported %d file(s): %s", len(msg.result.Files), strings.Join(msg.result.Files, ", ")), false)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key dismisses the full help
		m.showHelp = false
		if !key.Matches(msg, m.keys.Quit) {
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.NextMetric):
		m.stepMetric(1)
	case key.Matches(msg, m.keys.PrevMetric):
		m.stepMetric(-1)

	case key.Matches(msg, m.keys.CycleClass):
		m.cycleClass()

	case key.Matches(msg, m.keys.FocusNext):
		m.focused = (m.focused + 1) % numFocus
		if m.focused == focusDetail && !m.showDetails {
			m.focused = focusOps
		}

	case key.Matches(msg, m.keys.Details):
		m.showDetails = !m.showDetails
		if !m.showDetails && m.focused == focusDetail {
			m.focused = focusOps
		}
		m.resizeViewport()

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Toggle):
		if m.focused == focusDevices {
			m.toggleDevice()
		}
	case key.Matches(msg, m.keys.SelectAll):
		m.apply(engine.Update{SelectAllDevices: true}, "All devices selected")
	case key.Matches(msg, m.keys.ClearDevices):
		m.apply(engine.Update{ClearDevices: true}, "Devices cleared")

	case key.Matches(msg, m.keys.Copy):
		m.copyCommands()

	case key.Matches(msg, m.keys.Export):
		return m.startExport()
	}
	return m, nil
}

// apply pushes an update through the session and refreshes derived state.
func (m *Model) apply(u engine.Update, status string) {
	view, err := m.session.OnSelectionChanged(u)
	if err != nil {
		m.setStatus(fmt.Sprintf("❌ %v", err), true)
		return
	}
	m.view = view
	m.syncOpCursor()
	m.refreshDetails()
	if status != "" {
		m.setStatus(status, false)
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

func (m *Model) stepMetric(delta int) {
	families := m.view.MetricFamilies
	if len(families) == 0 {
		return
	}
	idx := indexOf(families, m.view.Selection.MetricFamily)
	next := families[wrapIndex(idx+delta, len(families))]
	m.apply(engine.Update{MetricFamily: &next}, "Metric: "+engine.TitleCase(next))
}

// classOptions lists the class selector entries, "all" first.
func (m Model) classOptions() []string {
	return append([]string{model.OpClassAll}, m.view.OpClasses...)
}

func (m *Model) cycleClass() {
	classes := m.classOptions()
	idx := indexOf(classes, m.view.Selection.OpClass)
	next := classes[wrapIndex(idx+1, len(classes))]
	m.apply(engine.Update{OpClass: &next}, "Class: "+engine.TitleCase(next))
}

func (m *Model) moveCursor(delta int) {
	switch m.focused {
	case focusOps:
		ops := m.view.AvailableOps
		if len(ops) == 0 {
			return
		}
		idx := clamp(m.opCursor+delta, 0, len(ops)-1)
		if ops[idx].ID == m.view.Selection.OpID {
			return
		}
		id := ops[idx].ID
		m.apply(engine.Update{OpID: &id}, "")
	case focusDevices:
		n := len(m.session.Dataset().Devices)
		if n == 0 {
			return
		}
		m.deviceCursor = clamp(m.deviceCursor+delta, 0, n-1)
	case focusDetail:
		if delta < 0 {
			m.viewport.ScrollUp(1)
		} else {
			m.viewport.ScrollDown(1)
		}
	}
}

func (m *Model) toggleDevice() {
	devices := m.session.Dataset().Devices
	if m.deviceCursor >= len(devices) {
		return
	}
	dev := devices[m.deviceCursor]
	state := "off"
	if !m.view.Selection.Devices.Has(dev.ID) {
		state = "on"
	}
	m.apply(engine.Update{ToggleDevices: []string{dev.ID}}, fmt.Sprintf("%s %s", dev.Label(), state))
}

// syncOpCursor points the op cursor at the selected op.
func (m *Model) syncOpCursor() {
	m.opCursor = 0
	for i, op := range m.view.AvailableOps {
		if op.ID == m.view.Selection.OpID {
			m.opCursor = i
			return
		}
	}
}

// copyCommands copies every recipe run command of the visible records.
func (m *Model) copyCommands() {
	var cmds []string
	for _, r := range m.view.Details {
		cmds = append(cmds, r.RunCommands()...)
	}
	if len(cmds) == 0 {
		m.setStatus("No recipe commands to copy", true)
		return
	}
	if err := m.copyText(strings.Join(cmds, "\n")); err != nil {
		m.setStatus(fmt.Sprintf("❌ Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("📋 Copied %d command(s) to clipboard", len(cmds)), false)
}

func (m Model) startExport() (tea.Model, tea.Cmd) {
	if m.exportPlan.Empty() {
		m.setStatus("Export is not configured", true)
		return m, nil
	}
	if m.exporting {
		return m, nil
	}
	m.exporting = true
	m.setStatus("Exporting…", false)

	ds, view, plan := m.session.Dataset(), m.view, m.exportPlan
	return m, func() tea.Msg {
		res, err := export.ExportAll(context.Background(), ds, view, plan)
		return exportDoneMsg{result: res, err: err}
	}
}

// resizeViewport gives the detail pane whatever height the top section leaves.
func (m *Model) resizeViewport() {
	h := m.height - m.topHeight() - 4
	if h < MinDetailHeight {
		h = MinDetailHeight
	}
	m.viewport.Width = m.width - 2
	m.viewport.Height = h
}

// refreshDetails re-renders the detail pane content.
func (m *Model) refreshDetails() {
	m.viewport.SetContent(renderDetails(m.view, m.theme, m.md, m.width-4))
	m.viewport.GotoTop()
}

func indexOf(items []string, s string) int {
	for i, it := range items {
		if it == s {
			return i
		}
	}
	return -1
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
