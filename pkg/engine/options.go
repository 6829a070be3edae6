package engine

import (
	"sort"

	"github.com/vanderheijden86/opscost/pkg/metrics"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// DeriveOpClasses returns the distinct op classes of the dataset, sorted.
func DeriveOpClasses(ds *model.Dataset) []string {
	seen := make(map[string]struct{}, len(ds.Ops))
	classes := make([]string, 0, len(ds.Ops))
	for _, op := range ds.Ops {
		if _, ok := seen[op.Class]; ok {
			continue
		}
		seen[op.Class] = struct{}{}
		classes = append(classes, op.Class)
	}
	sort.Strings(classes)
	return classes
}

// DeriveAvailableOps returns the ops with at least one measurement in
// metricFamily, narrowed to opClass unless it is model.OpClassAll. Ops are
// ordered by their first measurement; measurement op ids with no op record
// are skipped.
func DeriveAvailableOps(ds *model.Dataset, metricFamily, opClass string) []model.Op {
	defer metrics.Timer(metrics.OptionDerive)()

	seen := make(map[string]struct{})
	var ops []model.Op
	for i := range ds.Measurements {
		m := &ds.Measurements[i]
		if m.MetricFamily != metricFamily {
			continue
		}
		if _, ok := seen[m.OpID]; ok {
			continue
		}
		seen[m.OpID] = struct{}{}

		op, ok := ds.Op(m.OpID)
		if !ok {
			continue
		}
		if !matchesOpClass(op, opClass) {
			continue
		}
		ops = append(ops, *op)
	}
	return ops
}

func matchesOpClass(op *model.Op, opClass string) bool {
	return opClass == model.OpClassAll || op.Class == opClass
}

// Reconcile keeps sel.OpID inside ops: an op that is no longer available is
// replaced by the first available op, or cleared when there is none. It
// reports whether the selection changed.
func Reconcile(sel *Selection, ops []model.Op) bool {
	if sel.OpID != "" && containsOp(ops, sel.OpID) {
		return false
	}
	prev := sel.OpID
	if len(ops) == 0 {
		sel.OpID = ""
	} else {
		sel.OpID = ops[0].ID
	}
	return sel.OpID != prev
}

func containsOp(ops []model.Op, id string) bool {
	for i := range ops {
		if ops[i].ID == id {
			return true
		}
	}
	return false
}

// DeriveMetricFamilies lists the metric families to offer: the configured
// ones first, then any other family found in the measurements in order of
// first appearance.
func DeriveMetricFamilies(ds *model.Dataset, configured []string) []string {
	seen := make(map[string]struct{})
	var families []string
	add := func(f string) {
		if f == "" {
			return
		}
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		families = append(families, f)
	}
	for _, f := range configured {
		add(f)
	}
	for i := range ds.Measurements {
		add(ds.Measurements[i].MetricFamily)
	}
	return families
}
