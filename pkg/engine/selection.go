// Package engine is the selection-and-projection core of opscost.
//
// Given an immutable dataset and a Selection it derives the legal filter
// options, the filtered measurement set, the ranked and normalized chart
// model and the per-measurement detail records. Every function here is pure
// over its inputs; the only mutable state is the Selection owned by a Session.
package engine

import (
	"sort"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/opscost/pkg/model"
)

// DefaultMetricFamily is selected at load time unless configured otherwise.
const DefaultMetricFamily = "latency"

// DeviceSet is a set of device ids.
type DeviceSet map[string]struct{}

// NewDeviceSet returns a set holding ids.
func NewDeviceSet(ids ...string) DeviceSet {
	s := make(DeviceSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s DeviceSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips membership of id and reports whether it is now selected.
func (s DeviceSet) Toggle(id string) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// IDs returns the ids sorted lexicographically.
func (s DeviceSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy.
func (s DeviceSet) Clone() DeviceSet {
	c := make(DeviceSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// MarshalJSON encodes the set as a sorted array.
func (s DeviceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// Selection holds the current filter parameters. OpID is empty when no op is
// chosen.
type Selection struct {
	MetricFamily string    `json:"metric_family"`
	OpClass      string    `json:"op_class"`
	OpID         string    `json:"op_id,omitempty"`
	Devices      DeviceSet `json:"selected_devices"`
}

// NewSelection returns the load-time selection: every device selected, the
// given metric family, no class filter and no op.
func NewSelection(ds *model.Dataset, metricFamily string) Selection {
	if metricFamily == "" {
		metricFamily = DefaultMetricFamily
	}
	return Selection{
		MetricFamily: metricFamily,
		OpClass:      model.OpClassAll,
		Devices:      NewDeviceSet(ds.DeviceIDs()...),
	}
}

// Clone returns a deep copy so callers cannot mutate session state.
func (s Selection) Clone() Selection {
	c := s
	c.Devices = s.Devices.Clone()
	return c
}

// HasOp reports whether an op is chosen.
func (s Selection) HasOp() bool {
	return s.OpID != ""
}
