package engine

import (
	"strings"

	"github.com/vanderheijden86/opscost/pkg/metrics"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// NoDetailsPlaceholder is shown when no measurement matches the selection.
const NoDetailsPlaceholder = "No measurements match this selection."

// StepRecord is a display-ready recipe step. Run and Expected are empty when
// the step has none.
type StepRecord struct {
	Type     string `json:"type"`
	Run      string `json:"run,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// Line renders the step as "<type>: <run> → <expected>".
func (s StepRecord) Line() string {
	var b strings.Builder
	b.WriteString(s.Type)
	b.WriteByte(':')
	if s.Run != "" {
		b.WriteByte(' ')
		b.WriteString(s.Run)
	}
	if s.Expected != "" {
		b.WriteString(" → ")
		b.WriteString(s.Expected)
	}
	return b.String()
}

// DetailRecord is the display form of one matching measurement.
type DetailRecord struct {
	OpID           string            `json:"op_id"`
	DeviceID       string            `json:"device_id"`
	Title          string            `json:"title"`
	OpLabel        string            `json:"op_label"`
	DeviceLabel    string            `json:"device_label"`
	MetricFamily   string            `json:"metric_family"`
	Value          string            `json:"value"`
	MeasuredAt     string            `json:"measured_at"`
	Aggregation    string            `json:"aggregation"`
	Confidence     string            `json:"confidence"`
	Conditions     []model.Condition `json:"conditions"`
	Tags           []string          `json:"tags"`
	RecipeSummary  string            `json:"recipe_summary"`
	RecipeSteps    []StepRecord      `json:"recipe_steps"`
	RecipeNotes    string            `json:"recipe_notes"`
	HasRecipeNotes bool              `json:"has_recipe_notes"`
}

// RunCommands returns the non-empty run commands of the recipe, in order.
func (r DetailRecord) RunCommands() []string {
	var cmds []string
	for _, s := range r.RecipeSteps {
		if s.Run != "" {
			cmds = append(cmds, s.Run)
		}
	}
	return cmds
}

// ProjectDetails maps every measurement matching sel to a DetailRecord,
// keeping dataset order. Measurements without a value are included.
func ProjectDetails(ds *model.Dataset, sel Selection) []DetailRecord {
	defer metrics.Timer(metrics.DetailProjection)()

	matched := Filter(ds.Measurements, sel)
	records := make([]DetailRecord, 0, len(matched))
	for i := range matched {
		records = append(records, detailRecord(ds, &matched[i]))
	}
	return records
}

func detailRecord(ds *model.Dataset, m *model.Measurement) DetailRecord {
	opLabel := ds.OpLabel(m.OpID)
	deviceLabel := ds.DeviceLabel(m.DeviceID)

	rec := DetailRecord{
		OpID:          m.OpID,
		DeviceID:      m.DeviceID,
		Title:         opLabel + " · " + deviceLabel,
		OpLabel:       opLabel,
		DeviceLabel:   deviceLabel,
		MetricFamily:  TitleCase(m.MetricFamily),
		Value:         FormatValue(m.Value, m.Unit, m.Aggregation),
		MeasuredAt:    OrDash(m.MeasuredAt),
		Aggregation:   OrDash(m.Aggregation),
		Confidence:    Absent,
		Conditions:    append([]model.Condition{}, m.Conditions...),
		Tags:          append([]string{}, m.Tags...),
		RecipeSummary: Absent,
		RecipeSteps:   []StepRecord{},
		RecipeNotes:   Absent,
	}
	if m.Source != nil && m.Source.Confidence != "" {
		rec.Confidence = m.Source.Confidence
	}
	if r := m.Recipe; r != nil {
		rec.RecipeSummary = OrDash(r.Summary)
		rec.RecipeNotes = OrDash(r.Notes)
		rec.HasRecipeNotes = r.Notes != nil && *r.Notes != ""
		for _, step := range r.Steps {
			s := StepRecord{Type: step.Type}
			if step.Run != nil {
				s.Run = *step.Run
			}
			if step.Expected != nil {
				s.Expected = *step.Expected
			}
			rec.RecipeSteps = append(rec.RecipeSteps, s)
		}
	}
	return rec
}
