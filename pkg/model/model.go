// Package model defines the dataset shapes shared by the loader, the engine
// and the views: devices, ops and the measurements that relate them.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// OpClassAll is the op-class sentinel meaning "no class filter". It is never a
// literal class of an op.
const OpClassAll = "all"

// Placeholder marks measurements that stand in for data not yet collected.
const Placeholder = "placeholder"

// Device is a piece of hardware measurements were taken on.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Validate checks that the device can be referenced.
func (d *Device) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("device id cannot be empty")
	}
	return nil
}

// Label returns the checklist label for the device ("name · type").
func (d Device) Label() string {
	name := d.Name
	if name == "" {
		name = d.ID
	}
	if d.Type == "" {
		return name
	}
	return name + " · " + d.Type
}

// Op is a low-level operation whose cost is measured.
type Op struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
}

// Validate checks that the op can be referenced and filtered by class.
func (o *Op) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("op id cannot be empty")
	}
	if o.Class == OpClassAll {
		return fmt.Errorf("op %s: class %q is reserved", o.ID, OpClassAll)
	}
	return nil
}

// Label returns the selector label for the op ("name (id)").
func (o Op) Label() string {
	if o.Name == "" {
		return o.ID
	}
	return fmt.Sprintf("%s (%s)", o.Name, o.ID)
}

// Source describes where a measurement came from.
type Source struct {
	Kind       string `json:"kind"`
	Confidence string `json:"confidence"`
}

// RecipeStep is one reproducible step of a measurement recipe.
type RecipeStep struct {
	Type     string  `json:"type"`
	Run      *string `json:"run,omitempty"`
	Expected *string `json:"expected,omitempty"`
}

// Recipe explains how a measurement can be reproduced.
type Recipe struct {
	Summary *string      `json:"summary,omitempty"`
	Steps   []RecipeStep `json:"steps,omitempty"`
	Notes   *string      `json:"notes,omitempty"`
}

// Measurement is a single observed value of an op on a device.
type Measurement struct {
	OpID         string     `json:"op_id"`
	DeviceID     string     `json:"device_id"`
	MetricFamily string     `json:"metric_family"`
	Value        *float64   `json:"value"`
	Unit         string     `json:"unit"`
	Aggregation  *string    `json:"aggregation,omitempty"`
	MeasuredAt   *string    `json:"measured_at,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Conditions   Conditions `json:"conditions,omitempty"`
	Source       *Source    `json:"source,omitempty"`
	Recipe       *Recipe    `json:"recipe,omitempty"`
}

// Validate checks the fields the engine filters on. Dangling op or device
// references are allowed; views fall back to the raw id.
func (m *Measurement) Validate() error {
	if strings.TrimSpace(m.OpID) == "" {
		return errors.New("measurement op_id cannot be empty")
	}
	if strings.TrimSpace(m.DeviceID) == "" {
		return errors.New("measurement device_id cannot be empty")
	}
	if strings.TrimSpace(m.MetricFamily) == "" {
		return errors.New("measurement metric_family cannot be empty")
	}
	if m.Value != nil && (math.IsNaN(*m.Value) || math.IsInf(*m.Value, 0)) {
		return fmt.Errorf("measurement %s/%s: value is not finite", m.OpID, m.DeviceID)
	}
	return nil
}

// HasValue reports whether the measurement carries a number.
func (m *Measurement) HasValue() bool {
	return m.Value != nil
}

// IsPlaceholder reports whether the measurement's source marks it as a
// placeholder rather than collected data.
func (m *Measurement) IsPlaceholder() bool {
	return m.Source != nil && (m.Source.Kind == Placeholder || m.Source.Confidence == Placeholder)
}
