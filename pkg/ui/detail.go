package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/opscost/pkg/debug"
	"github.com/vanderheijden86/opscost/pkg/engine"
)

// renderDetails draws one card per matching measurement. Recipe notes are
// rendered as markdown when md is available.
func renderDetails(view engine.View, t Theme, md *glamour.TermRenderer, width int) string {
	if width < 20 {
		width = 20
	}
	if len(view.Details) == 0 {
		return t.MutedText.Render(engine.NoDetailsPlaceholder)
	}

	var b strings.Builder
	for i, rec := range view.Details {
		if i > 0 {
			b.WriteString("\n")
			b.WriteString(RenderSubtleDivider(width))
			b.WriteString("\n\n")
		}
		renderDetailRecord(&b, rec, t, md, width)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDetailRecord(b *strings.Builder, rec engine.DetailRecord, t Theme, md *glamour.TermRenderer, width int) {
	b.WriteString(t.PrimaryBold.Render(truncate(rec.Title, width)))
	b.WriteString("\n")

	field := func(name, value string) {
		fmt.Fprintf(b, "%s %s\n", t.SecondaryText.Render(padRight(name, 12)), value)
	}
	field("Value", rec.Value)
	field("Measured", rec.MeasuredAt)
	field("Aggregation", rec.Aggregation)
	field("Confidence", rec.Confidence)

	if len(rec.Conditions) == 0 {
		field("Conditions", engine.Absent)
	} else {
		pairs := make([]string, 0, len(rec.Conditions))
		for _, c := range rec.Conditions {
			pairs = append(pairs, c.Key+"="+c.Value)
		}
		field("Conditions", strings.Join(pairs, ", "))
	}

	if len(rec.Tags) == 0 {
		field("Tags", engine.Absent)
	} else {
		pills := make([]string, 0, len(rec.Tags))
		for _, tag := range rec.Tags {
			pills = append(pills, t.Pill.Render(tag))
		}
		field("Tags", strings.Join(pills, " "))
	}

	field("Recipe", rec.RecipeSummary)
	for i, step := range rec.RecipeSteps {
		fmt.Fprintf(b, "  %d. %s\n", i+1, truncate(step.Line(), width-5))
	}

	if rec.HasRecipeNotes {
		b.WriteString(t.SecondaryText.Render("Notes"))
		b.WriteString("\n")
		b.WriteString(renderNotes(rec.RecipeNotes, md))
		b.WriteString("\n")
	}
}

func renderNotes(notes string, md *glamour.TermRenderer) string {
	if md == nil {
		return notes
	}
	out, err := md.Render(notes)
	if err != nil {
		debug.Log("rendering recipe notes: %v", err)
		return notes
	}
	return strings.Trim(out, "\n")
}
