package engine

import (
	"github.com/vanderheijden86/opscost/pkg/metrics"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// Matches reports whether m belongs to the current selection: same metric
// family, the chosen op (if any), and a selected device. The op class is not
// checked here; it only limits which op can be chosen.
func Matches(m *model.Measurement, sel Selection) bool {
	if m.MetricFamily != sel.MetricFamily {
		return false
	}
	if sel.OpID != "" && m.OpID != sel.OpID {
		return false
	}
	return sel.Devices.Has(m.DeviceID)
}

// Filter returns the measurements matching sel, in input order.
func Filter(measurements []model.Measurement, sel Selection) []model.Measurement {
	defer metrics.Timer(metrics.MeasurementFilter)()

	var out []model.Measurement
	for i := range measurements {
		if Matches(&measurements[i], sel) {
			out = append(out, measurements[i])
		}
	}
	return out
}
