package engine

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/opscost/pkg/debug"
	"github.com/vanderheijden86/opscost/pkg/model"
)

// NoOpsPlaceholder labels the op selector when no op is available.
const NoOpsPlaceholder = "No ops available"

var (
	// ErrUnknownDevice is returned when an update names a device that is not
	// in the dataset.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrOpUnavailable is returned when an update selects an op that is not
	// available for the current metric family and op class.
	ErrOpUnavailable = errors.New("op not available for current selection")
	// ErrUnknownMetricFamily is returned for an empty metric family.
	ErrUnknownMetricFamily = errors.New("unknown metric family")
)

// Options configure a Session.
type Options struct {
	// DefaultMetricFamily is selected at start. Empty means "latency".
	DefaultMetricFamily string
	// MetricFamilies are offered first in View.MetricFamilies.
	MetricFamilies []string
}

// Update is a partial change to the selection. Nil fields are left alone.
// Device changes apply in order: ClearDevices, SelectAllDevices, then
// ToggleDevices.
type Update struct {
	MetricFamily     *string
	OpClass          *string
	OpID             *string
	ToggleDevices    []string
	SelectAllDevices bool
	ClearDevices     bool
}

// Stats summarizes the loaded dataset.
type Stats struct {
	Devices            int     `json:"devices"`
	Ops                int     `json:"ops"`
	Measurements       int     `json:"measurements"`
	UpdatedAt          *string `json:"updated_at"`
	HasPlaceholderData bool    `json:"has_placeholder_data"`
}

// View is everything a presentation layer needs to render one frame.
type View struct {
	Selection      Selection      `json:"selection"`
	MetricFamilies []string       `json:"metric_families"`
	OpClasses      []string       `json:"op_classes"`
	AvailableOps   []model.Op     `json:"available_ops"`
	Chart          ChartModel     `json:"chart"`
	Details        []DetailRecord `json:"details"`
	DetailsEmpty   bool           `json:"details_empty"`
	Stats          Stats          `json:"stats"`
}

// OpsPlaceholder returns the op selector text when no op is available.
func (v View) OpsPlaceholder() string {
	if len(v.AvailableOps) == 0 {
		return NoOpsPlaceholder
	}
	return ""
}

// DetailsPlaceholder returns the detail pane text when nothing matched.
func (v View) DetailsPlaceholder() string {
	if v.DetailsEmpty {
		return NoDetailsPlaceholder
	}
	return ""
}

// Session owns the selection for one dataset and re-runs the pipeline on
// every change. It is not safe for concurrent use.
type Session struct {
	ds       *model.Dataset
	sel      Selection
	families []string
	classes  []string
	stats    Stats
	ops      []model.Op
	view     View
}

// New initializes a session over ds: every device selected, the default
// metric family, class "all" and the first available op, if any.
func New(ds *model.Dataset, opts Options) (*Session, View) {
	s := &Session{
		ds:       ds,
		sel:      NewSelection(ds, opts.DefaultMetricFamily),
		families: DeriveMetricFamilies(ds, opts.MetricFamilies),
		classes:  DeriveOpClasses(ds),
		stats: Stats{
			Devices:            len(ds.Devices),
			Ops:                len(ds.Ops),
			Measurements:       len(ds.Measurements),
			UpdatedAt:          ds.UpdatedAt,
			HasPlaceholderData: ds.HasPlaceholderData(),
		},
	}
	s.families = withFamily(s.families, s.sel.MetricFamily)
	s.deriveOps()
	s.project()
	return s, s.View()
}

// Dataset returns the dataset the session was created with.
func (s *Session) Dataset() *model.Dataset { return s.ds }

// Selection returns a copy of the current selection.
func (s *Session) Selection() Selection { return s.sel.Clone() }

// View returns the most recently projected view.
func (s *Session) View() View {
	v := s.view
	v.Selection = s.sel.Clone()
	return v
}

// OnSelectionChanged applies u and re-projects. An invalid update returns an
// error and leaves the selection unchanged.
func (s *Session) OnSelectionChanged(u Update) (View, error) {
	next := s.sel.Clone()

	if u.MetricFamily != nil {
		if *u.MetricFamily == "" {
			return s.View(), ErrUnknownMetricFamily
		}
		next.MetricFamily = *u.MetricFamily
	}
	if u.OpClass != nil {
		next.OpClass = *u.OpClass
		if next.OpClass == "" {
			next.OpClass = model.OpClassAll
		}
	}

	if u.ClearDevices {
		next.Devices = NewDeviceSet()
	}
	if u.SelectAllDevices {
		next.Devices = NewDeviceSet(s.ds.DeviceIDs()...)
	}
	for _, id := range u.ToggleDevices {
		if !s.ds.HasDevice(id) {
			return s.View(), fmt.Errorf("%w: %q", ErrUnknownDevice, id)
		}
		next.Devices.Toggle(id)
	}

	ops := s.ops
	if next.MetricFamily != s.sel.MetricFamily || next.OpClass != s.sel.OpClass {
		ops = DeriveAvailableOps(s.ds, next.MetricFamily, next.OpClass)
	}
	if u.OpID != nil {
		if *u.OpID != "" && !containsOp(ops, *u.OpID) {
			return s.View(), fmt.Errorf("%w: %q", ErrOpUnavailable, *u.OpID)
		}
		next.OpID = *u.OpID
	}
	if Reconcile(&next, ops) {
		debug.Log("reconciled op %q -> %q", s.sel.OpID, next.OpID)
	}

	s.sel = next
	s.ops = ops
	s.families = withFamily(s.families, s.sel.MetricFamily)
	s.project()
	return s.View(), nil
}

func (s *Session) deriveOps() {
	s.ops = DeriveAvailableOps(s.ds, s.sel.MetricFamily, s.sel.OpClass)
	Reconcile(&s.sel, s.ops)
}

func (s *Session) project() {
	details := ProjectDetails(s.ds, s.sel)
	s.view = View{
		MetricFamilies: append([]string(nil), s.families...),
		OpClasses:      append([]string(nil), s.classes...),
		AvailableOps:   append([]model.Op{}, s.ops...),
		Chart:          ProjectChart(s.ds, s.sel),
		Details:        details,
		DetailsEmpty:   len(details) == 0,
		Stats:          s.stats,
	}
	debug.Log("projected %s/%s/%s: %d rows, %d details",
		s.sel.MetricFamily, s.sel.OpClass, s.sel.OpID, len(s.view.Chart.Rows), len(details))
}

// withFamily appends family when it is not offered yet, so the selected
// tab is always present.
func withFamily(families []string, family string) []string {
	for _, f := range families {
		if f == family {
			return families
		}
	}
	return append(families, family)
}
