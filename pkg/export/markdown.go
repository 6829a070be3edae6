package export

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/vanderheijden86/opscost/pkg/engine"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// MarkdownOptions controls the details report.
type MarkdownOptions struct {
	Title       string
	GeneratedAt time.Time // zero means time.Now()
}

// GenerateMarkdown renders a view as a markdown report: dataset stats, the
// active selection, the ranked chart and one section per detail record.
func GenerateMarkdown(view engine.View, opts MarkdownOptions) (string, error) {
	var sb strings.Builder

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Operation cost report"
	}
	generated := opts.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", generated.Format(time.RFC1123)))

	if view.Stats.HasPlaceholderData {
		sb.WriteString("> **Note:** this dataset contains placeholder measurements.\n\n")
	}

	// Summary Statistics
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Devices | %d |\n", view.Stats.Devices))
	sb.WriteString(fmt.Sprintf("| Ops | %d |\n", view.Stats.Ops))
	sb.WriteString(fmt.Sprintf("| Measurements | %d |\n", view.Stats.Measurements))
	sb.WriteString(fmt.Sprintf("| Updated | %s |\n\n", engine.OrDash(view.Stats.UpdatedAt)))

	sel := view.Selection
	sb.WriteString("## Selection\n\n")
	sb.WriteString("| Filter | Value |\n|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Metric | %s |\n", escapeCell(engine.TitleCase(sel.MetricFamily))))
	sb.WriteString(fmt.Sprintf("| Class | %s |\n", escapeCell(engine.TitleCase(sel.OpClass))))
	op := engine.Absent
	for _, o := range view.AvailableOps {
		if o.ID == sel.OpID {
			op = o.Label()
		}
	}
	if len(view.AvailableOps) == 0 {
		op = engine.NoOpsPlaceholder
	}
	sb.WriteString(fmt.Sprintf("| Op | %s |\n", escapeCell(op)))
	sb.WriteString(fmt.Sprintf("| Devices | %s |\n\n", escapeCell(strings.Join(sel.Devices.IDs(), ", "))))

	sb.WriteString(generateChartSection(view.Chart))

	// Precompute stable, unique slugs for TOC anchors and headings.
	slugCounts := make(map[string]int, len(view.Details))
	slugs := make([]string, len(view.Details))
	for i, r := range view.Details {
		slugs[i] = uniqueSlug(createSlug(r.Title), slugCounts)
	}

	sb.WriteString("## Measurements\n\n")
	if view.DetailsEmpty {
		sb.WriteString(fmt.Sprintf("*%s*\n\n", engine.NoDetailsPlaceholder))
		return sb.String(), nil
	}
	for i, r := range view.Details {
		sb.WriteString(fmt.Sprintf("- [%s](#%s) %s\n", r.Title, slugs[i], r.Value))
	}
	sb.WriteString("\n---\n\n")

	for i, r := range view.Details {
		sb.WriteString(fmt.Sprintf("<a id=\"%s\"></a>\n\n", slugs[i]))
		sb.WriteString(generateDetailSection(r))
		sb.WriteString("---\n\n")
	}

	return sb.String(), nil
}

func generateChartSection(chart engine.ChartModel) string {
	var sb strings.Builder
	sb.WriteString("## Chart\n\n")
	if chart.Subtitle != "" {
		sb.WriteString(fmt.Sprintf("%s · unit: `%s`\n\n", chart.Subtitle, chart.UnitLabel))
	}
	if chart.Empty {
		sb.WriteString(fmt.Sprintf("*%s*\n\n", chart.Placeholder()))
		return sb.String()
	}

	sb.WriteString("| Device | Value | Relative | |\n|--------|-------|----------|---|\n")
	for _, row := range chart.Rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | `%s` |\n",
			escapeCell(row.DeviceLabel), escapeCell(row.DisplayValue), row.PercentLabel(), barChart(row.Percent/100)))
	}
	s := chart.Summary
	sb.WriteString(fmt.Sprintf("\nn=%d · min %s · median %s · mean %s · max %s\n\n",
		s.Count, engine.FormatNumber(s.Min), engine.FormatNumber(s.Median),
		engine.FormatNumber(s.Mean), engine.FormatNumber(s.Max)))
	return sb.String()
}

func generateDetailSection(r engine.DetailRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", r.Title))

	sb.WriteString("| Property | Value |\n|----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| **Metric** | %s |\n", escapeCell(r.MetricFamily)))
	sb.WriteString(fmt.Sprintf("| **Value** | %s |\n", escapeCell(r.Value)))
	sb.WriteString(fmt.Sprintf("| **Measured** | %s |\n", escapeCell(r.MeasuredAt)))
	sb.WriteString(fmt.Sprintf("| **Aggregation** | %s |\n", escapeCell(r.Aggregation)))
	sb.WriteString(fmt.Sprintf("| **Confidence** | %s |\n", escapeCell(r.Confidence)))
	if len(r.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("| **Tags** | %s |\n", escapeCell(strings.Join(r.Tags, ", "))))
	}
	sb.WriteString("\n")

	if len(r.Conditions) > 0 {
		sb.WriteString("### Conditions\n\n")
		for _, c := range r.Conditions {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", c.Key, c.Value))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Recipe\n\n")
	sb.WriteString(r.RecipeSummary + "\n\n")
	if len(r.RecipeSteps) > 0 {
		for i, step := range r.RecipeSteps {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, step.Line()))
		}
		sb.WriteString("\n")
	}
	if cmds := r.RunCommands(); len(cmds) > 0 {
		sb.WriteString("```bash\n")
		sb.WriteString(strings.Join(cmds, "\n"))
		sb.WriteString("\n```\n\n")
	}
	if r.HasRecipeNotes {
		sb.WriteString("### Notes\n\n")
		sb.WriteString(r.RecipeNotes + "\n\n")
	}
	return sb.String()
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(view engine.View, opts MarkdownOptions, filename string) error {
	content, err := GenerateMarkdown(view, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// escapeCell makes s safe inside a markdown table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "|", "\\|")
}

// barChart creates a ten-cell ASCII bar for a 0-1 value
func barChart(value float64) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value*10 + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
