package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/opscost/pkg/engine"
	"github.com/vanderheijden86/opscost/pkg/metrics"
)

const (
	chartLabelWidth = 22
	chartValueWidth = 18
	minBarWidth     = 10
)

// View renders the dashboard.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderTop())
	if m.showDetails {
		sections = append(sections, m.renderDetailPane())
	}
	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// topHeight estimates the rows used above the detail pane.
func (m Model) topHeight() int {
	return lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderTop())
}

func (m Model) renderHeader() string {
	t := m.theme
	s := m.view.Stats

	title := t.Header.Render("opscost")
	stats := t.MutedText.Render(fmt.Sprintf(" %d devices · %d ops · %d measurements · updated %s",
		s.Devices, s.Ops, s.Measurements, formatUpdatedAt(s.UpdatedAt)))
	lines := []string{title + stats}
	if s.HasPlaceholderData {
		lines = append(lines, t.Banner.Render("⚠ Contains placeholder data"))
	}

	// Metric tabs
	var tabs []string
	for _, f := range m.view.MetricFamilies {
		label := engine.TitleCase(f)
		if f == m.view.Selection.MetricFamily {
			tabs = append(tabs, t.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, t.Tab.Render(label))
		}
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, tabs...))

	// Class selector
	var classes []string
	for _, c := range m.classOptions() {
		label := engine.TitleCase(c)
		if c == m.view.Selection.OpClass {
			classes = append(classes, t.PrimaryBold.Render("["+label+"]"))
		} else {
			classes = append(classes, t.MutedText.Render(label))
		}
	}
	lines = append(lines, t.SecondaryText.Render("Class: ")+strings.Join(classes, " "))
	return strings.Join(lines, "\n")
}

// renderTop lays out the selector panel and the chart, side by side when
// the terminal is wide enough.
func (m Model) renderTop() string {
	if m.width >= SideBySideMinWidth {
		side := m.renderSelectors(sidePanelWidth)
		chart := m.renderChartPanel(m.width - sidePanelWidth - 4)
		return lipgloss.JoinHorizontal(lipgloss.Top, side, chart)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderSelectors(m.width-2),
		m.renderChartPanel(m.width-2),
	)
}

func (m Model) renderSelectors(width int) string {
	t := m.theme
	inner := width - 2
	if inner < 10 {
		inner = 10
	}

	var b strings.Builder
	b.WriteString(t.Title.Render("Op"))
	b.WriteString("\n")
	if ph := m.view.OpsPlaceholder(); ph != "" {
		b.WriteString(t.MutedText.Render(ph))
		b.WriteString("\n")
	}
	for i, op := range m.view.AvailableOps {
		marker := "  "
		if op.ID == m.view.Selection.OpID {
			marker = "● "
		}
		line := fitWidth(marker+op.Label(), inner-1) // cursor border takes a cell
		if m.focused == focusOps && i == m.opCursor {
			line = t.Cursor.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(t.Title.Render("Devices"))
	b.WriteString("\n")
	for i, dev := range m.session.Dataset().Devices {
		box := t.CheckOff.Render("[ ]")
		if m.view.Selection.Devices.Has(dev.ID) {
			box = t.CheckOn.Render("[x]")
		}
		line := box + " " + fitWidth(dev.Label(), inner-5)
		if m.focused == focusDevices && i == m.deviceCursor {
			line = t.Cursor.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	focused := m.focused == focusOps || m.focused == focusDevices
	return panelStyle(focused).Width(inner).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderChartPanel(width int) string {
	inner := width - 2
	if inner < 20 {
		inner = 20
	}
	return PanelStyle.Width(inner).Render(renderChart(m.view.Chart, m.theme, inner, m.barWidth))
}

// renderChart draws the ranked bar chart, or its placeholder when empty.
func renderChart(c engine.ChartModel, t Theme, width, barWidth int) string {
	var b strings.Builder
	b.WriteString(t.PrimaryBold.Render(c.Subtitle))
	b.WriteString("  ")
	b.WriteString(RenderUnitPill(c.UnitLabel, t))
	b.WriteString("\n\n")

	if c.Empty {
		b.WriteString(t.MutedText.Render(c.Placeholder()))
		return b.String()
	}

	if barWidth <= 0 {
		barWidth = width - chartLabelWidth - chartValueWidth - 6
	}
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}

	for i, row := range c.Rows {
		rank := padRight(RenderRankBadge(i+1, len(c.Rows)), 4)
		label := fitWidth(row.DeviceLabel, chartLabelWidth)
		value := truncate(row.DisplayValue+" "+row.PercentLabel(), chartValueWidth)
		fmt.Fprintf(&b, "%s %s %s %s\n", rank, label, RenderBar(row.Percent, barWidth, t), value)
	}

	s := c.Summary
	b.WriteString(t.MutedText.Render(fmt.Sprintf("n=%d · min %s · median %s · mean %s · max %s",
		s.Count, engine.FormatNumber(s.Min), engine.FormatNumber(s.Median),
		engine.FormatNumber(s.Mean), engine.FormatNumber(s.Max))))
	if c.MixedUnits {
		b.WriteString("\n")
		b.WriteString(t.Banner.Render("Rows use different units; bars compare raw numbers."))
	}
	return b.String()
}

func (m Model) renderDetailPane() string {
	title := m.theme.Title.Render(fmt.Sprintf("Details (%d)", len(m.view.Details)))
	body := lipgloss.JoinVertical(lipgloss.Left, title, m.viewport.View())
	return panelStyle(m.focused == focusDetail).Width(m.width - 2).Render(body)
}

func (m Model) renderFooter() string {
	var lines []string
	if m.statusMsg != "" {
		style := m.theme.SecondaryText
		if m.statusIsError {
			style = m.theme.Renderer.NewStyle().Foreground(ColorDanger)
		}
		lines = append(lines, style.Render(m.statusMsg))
	}
	if m.showHelp {
		lines = append(lines, m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		lines = append(lines, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return strings.Join(lines, "\n")
}
