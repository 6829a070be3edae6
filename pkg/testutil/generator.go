// Package testutil provides deterministic dataset fixtures and assertions for
// tests across the repository.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/vanderheijden86/opscost/pkg/model"
)

// GeneratorConfig controls dataset generation.
type GeneratorConfig struct {
	Seed            int64     // Random seed for determinism (0 = use current time)
	Devices         int       // Number of devices (default: 4)
	Ops             int       // Number of ops (default: 6)
	Families        []string  // Metric families (default: latency, throughput)
	Classes         []string  // Op classes (default: compute, memory, io)
	Units           []string  // Units drawn per family; one unit per family when len == 1
	NilRate         float64   // Fraction of measurements without a value
	PlaceholderRate float64   // Fraction of measurements with a placeholder source
	DanglingOps     int       // Extra measurements referencing ops with no record
	BaseTime        time.Time // Base time for measured_at (default: fixed time)
	WithRecipes     bool      // Attach a recipe to every measurement
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		Devices:  4,
		Ops:      6,
		Families: []string{"latency", "throughput"},
		Classes:  []string{"compute", "memory", "io"},
		Units:    []string{"ns"},
		BaseTime: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Generator creates datasets with a fixed shape and random values.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Devices <= 0 {
		cfg.Devices = def.Devices
	}
	if cfg.Ops <= 0 {
		cfg.Ops = def.Ops
	}
	if len(cfg.Families) == 0 {
		cfg.Families = def.Families
	}
	if len(cfg.Classes) == 0 {
		cfg.Classes = def.Classes
	}
	if len(cfg.Units) == 0 {
		cfg.Units = def.Units
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = def.BaseTime
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Dataset builds a dataset with one measurement per (op, device, family).
func (g *Generator) Dataset() *model.Dataset {
	devices := make([]model.Device, g.cfg.Devices)
	for i := range devices {
		devices[i] = model.Device{
			ID:   DeviceID(i),
			Name: fmt.Sprintf("Device %d", i),
			Type: []string{"cpu", "gpu", "npu"}[i%3],
		}
	}

	ops := make([]model.Op, g.cfg.Ops)
	for i := range ops {
		ops[i] = model.Op{
			ID:    OpID(i),
			Name:  fmt.Sprintf("Op %d", i),
			Class: g.cfg.Classes[i%len(g.cfg.Classes)],
		}
	}

	var measurements []model.Measurement
	for _, family := range g.cfg.Families {
		for _, op := range ops {
			for _, dev := range devices {
				measurements = append(measurements, g.measurement(op.ID, dev.ID, family, len(measurements)))
			}
		}
	}
	for i := 0; i < g.cfg.DanglingOps; i++ {
		dev := devices[i%len(devices)]
		measurements = append(measurements, g.measurement(fmt.Sprintf("ghost%d", i), dev.ID, g.cfg.Families[0], len(measurements)))
	}

	updated := g.cfg.BaseTime.Format(time.RFC3339)
	return model.NewDataset(devices, ops, measurements, &updated)
}

func (g *Generator) measurement(opID, deviceID, family string, n int) model.Measurement {
	m := model.Measurement{
		OpID:         opID,
		DeviceID:     deviceID,
		MetricFamily: family,
		Unit:         g.cfg.Units[g.rng.Intn(len(g.cfg.Units))],
		Aggregation:  Str("p50"),
		MeasuredAt:   Str(g.cfg.BaseTime.Add(time.Duration(n) * time.Minute).Format(time.RFC3339)),
		Tags:         []string{family},
		Conditions: model.Conditions{
			{Key: "threads", Value: fmt.Sprint(1 + g.rng.Intn(8))},
			{Key: "warm", Value: "true"},
		},
		Source: &model.Source{Kind: "benchmark", Confidence: "high"},
	}
	if g.rng.Float64() >= g.cfg.NilRate {
		v := math.Round(g.rng.Float64()*100000) / 100
		m.Value = &v
	}
	if g.rng.Float64() < g.cfg.PlaceholderRate {
		m.Source = &model.Source{Kind: model.Placeholder, Confidence: model.Placeholder}
	}
	if g.cfg.WithRecipes {
		m.Recipe = &model.Recipe{
			Summary: Str("Run the microbenchmark"),
			Steps: []model.RecipeStep{
				{Type: "shell", Run: Str("make bench OP=" + opID), Expected: Str("exit 0")},
				{Type: "note"},
			},
			Notes: Str("Pin the **CPU governor** first."),
		}
	}
	return m
}

// DeviceID returns the id of the i-th generated device.
func DeviceID(i int) string { return fmt.Sprintf("d%d", i) }

// OpID returns the id of the i-th generated op.
func OpID(i int) string { return fmt.Sprintf("op%d", i) }

// Scenario returns the two-device, one-op dataset: op1 (class compute)
// measured at 10 ms on d1 and 30 ms on d2.
func Scenario() *model.Dataset {
	return model.NewDataset(
		[]model.Device{
			{ID: "d1", Name: "Device One", Type: "cpu"},
			{ID: "d2", Name: "Device Two", Type: "gpu"},
		},
		[]model.Op{{ID: "op1", Name: "Add", Class: "compute"}},
		[]model.Measurement{
			{OpID: "op1", DeviceID: "d1", MetricFamily: "latency", Value: Float(10), Unit: "ms"},
			{OpID: "op1", DeviceID: "d2", MetricFamily: "latency", Value: Float(30), Unit: "ms"},
		},
		nil,
	)
}

// Empty returns a dataset with no entities.
func Empty() *model.Dataset {
	return model.NewDataset(nil, nil, nil, nil)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to s.
func Str(s string) *string { return &s }
