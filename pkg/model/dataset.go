package model

import "sync"

// Dataset is the immutable, loaded-once content of the dashboard.
//
// The id indexes are built once, by NewDataset or on first lookup, so a
// dataset is safe to read from several goroutines. Do not modify Devices or
// Ops after the first lookup.
type Dataset struct {
	Devices      []Device      `json:"devices"`
	Ops          []Op          `json:"ops"`
	Measurements []Measurement `json:"measurements"`
	UpdatedAt    *string       `json:"updated_at,omitempty"`

	indexOnce   sync.Once
	devicesByID map[string]int
	opsByID     map[string]int
}

// NewDataset builds an indexed dataset from its parts.
func NewDataset(devices []Device, ops []Op, measurements []Measurement, updatedAt *string) *Dataset {
	ds := &Dataset{
		Devices:      devices,
		Ops:          ops,
		Measurements: measurements,
		UpdatedAt:    updatedAt,
	}
	ds.Index()
	return ds
}

// Index builds the id lookups; calls after the first are no-ops.
func (d *Dataset) Index() {
	d.indexOnce.Do(d.buildIndex)
}

// buildIndex maps ids to positions. The first entity wins when ids repeat.
func (d *Dataset) buildIndex() {
	d.devicesByID = make(map[string]int, len(d.Devices))
	for i := range d.Devices {
		if _, ok := d.devicesByID[d.Devices[i].ID]; !ok {
			d.devicesByID[d.Devices[i].ID] = i
		}
	}
	d.opsByID = make(map[string]int, len(d.Ops))
	for i := range d.Ops {
		if _, ok := d.opsByID[d.Ops[i].ID]; !ok {
			d.opsByID[d.Ops[i].ID] = i
		}
	}
}

// Device resolves a device by id.
func (d *Dataset) Device(id string) (*Device, bool) {
	d.Index()
	i, ok := d.devicesByID[id]
	if !ok {
		return nil, false
	}
	return &d.Devices[i], true
}

// Op resolves an op by id.
func (d *Dataset) Op(id string) (*Op, bool) {
	d.Index()
	i, ok := d.opsByID[id]
	if !ok {
		return nil, false
	}
	return &d.Ops[i], true
}

// HasDevice reports whether id names a device of the dataset.
func (d *Dataset) HasDevice(id string) bool {
	_, ok := d.Device(id)
	return ok
}

// DeviceIDs returns every device id in dataset order.
func (d *Dataset) DeviceIDs() []string {
	ids := make([]string, 0, len(d.Devices))
	for _, dev := range d.Devices {
		ids = append(ids, dev.ID)
	}
	return ids
}

// DeviceLabel returns the device name, or the raw id for a dangling reference.
func (d *Dataset) DeviceLabel(id string) string {
	if dev, ok := d.Device(id); ok && dev.Name != "" {
		return dev.Name
	}
	return id
}

// OpLabel returns the op name, or the raw id for a dangling reference.
func (d *Dataset) OpLabel(id string) string {
	if op, ok := d.Op(id); ok && op.Name != "" {
		return op.Name
	}
	return id
}

// HasPlaceholderData reports whether any measurement is a placeholder.
func (d *Dataset) HasPlaceholderData() bool {
	for i := range d.Measurements {
		if d.Measurements[i].IsPlaceholder() {
			return true
		}
	}
	return false
}
