package engine

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/opscost/pkg/debug"
	"github.com/vanderheijden86/opscost/pkg/metrics"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// EmptyReason explains why a chart has no rows.
type EmptyReason int

const (
	NotEmpty      EmptyReason = iota
	EmptyNoOp                 // no op is selected
	EmptyNoValues             // nothing matched, or every match lacks a value
)

// String returns the placeholder shown in place of the chart.
func (r EmptyReason) String() string {
	switch r {
	case EmptyNoOp:
		return "No op selected."
	case EmptyNoValues:
		return "No measured values for this selection."
	default:
		return ""
	}
}

// MarshalText encodes the reason by its placeholder text.
func (r EmptyReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

const noOpSubtitle = "Select an op to visualize results across devices."

// ChartRow is one bar of the chart.
type ChartRow struct {
	DeviceID     string  `json:"device_id"`
	DeviceLabel  string  `json:"device_label"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
	Percent      float64 `json:"percent"`
	DisplayValue string  `json:"display_value"`
}

// PercentLabel renders the bar length, e.g. "33.3%".
func (r ChartRow) PercentLabel() string {
	return fmt.Sprintf("%.1f%%", r.Percent)
}

// ChartSummary describes the charted values.
type ChartSummary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// ChartModel is the ranked, normalized bar chart of a selection.
type ChartModel struct {
	Empty       bool         `json:"empty"`
	EmptyReason EmptyReason  `json:"empty_reason,omitempty"`
	Subtitle    string       `json:"subtitle"`
	UnitLabel   string       `json:"unit_label"`
	MixedUnits  bool         `json:"mixed_units,omitempty"`
	MaxValue    float64      `json:"max_value"`
	Rows        []ChartRow   `json:"rows"`
	Summary     ChartSummary `json:"summary"`
}

// Placeholder returns the text to show when the chart is empty.
func (c ChartModel) Placeholder() string {
	return c.EmptyReason.String()
}

func emptyChart(reason EmptyReason, subtitle string) ChartModel {
	return ChartModel{
		Empty:       true,
		EmptyReason: reason,
		Subtitle:    subtitle,
		UnitLabel:   Absent,
	}
}

// ProjectChart ranks the valued measurements of the selected op by value,
// descending, and scales each bar against the largest value.
func ProjectChart(ds *model.Dataset, sel Selection) ChartModel {
	defer metrics.Timer(metrics.ChartProjection)()

	if !sel.HasOp() {
		return emptyChart(EmptyNoOp, noOpSubtitle)
	}
	subtitle := noOpSubtitle
	if op, ok := ds.Op(sel.OpID); ok {
		subtitle = fmt.Sprintf("%s · %s measurements", op.Name, TitleCase(sel.MetricFamily))
	}

	var valued []model.Measurement
	for _, m := range Filter(ds.Measurements, sel) {
		if m.HasValue() {
			valued = append(valued, m)
		}
	}
	if len(valued) == 0 {
		return emptyChart(EmptyNoValues, subtitle)
	}

	values := make([]float64, len(valued))
	units := make(map[string]struct{})
	var unit string
	for i, m := range valued {
		values[i] = *m.Value
		if _, ok := units[m.Unit]; !ok {
			units[m.Unit] = struct{}{}
			unit = m.Unit
		}
	}
	maxValue := floats.Max(values)

	chart := ChartModel{
		Subtitle:  subtitle,
		UnitLabel: unit,
		MaxValue:  maxValue,
		Summary:   summarize(values),
	}
	if len(units) > 1 {
		chart.UnitLabel = MixedUnits
		chart.MixedUnits = true
		debug.Log("chart %s/%s has %d units", sel.MetricFamily, sel.OpID, len(units))
	}

	sort.SliceStable(valued, func(i, j int) bool {
		return *valued[i].Value > *valued[j].Value
	})

	chart.Rows = make([]ChartRow, len(valued))
	for i, m := range valued {
		chart.Rows[i] = ChartRow{
			DeviceID:     m.DeviceID,
			DeviceLabel:  ds.DeviceLabel(m.DeviceID),
			Value:        *m.Value,
			Unit:         m.Unit,
			Percent:      percentOf(*m.Value, maxValue),
			DisplayValue: FormatValue(m.Value, m.Unit, m.Aggregation),
		}
	}
	return chart
}

// percentOf scales v against maxValue to [0, 100]. Only v == maxValue
// yields 100; display rounding happens in PercentLabel.
func percentOf(v, maxValue float64) float64 {
	if maxValue <= 0 {
		return 0
	}
	pct := v / maxValue * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

func summarize(values []float64) ChartSummary {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return ChartSummary{
		Count:  len(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}
