package engine

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/opscost/pkg/model"
	"github.com/vanderheijden86/opscost/pkg/testutil"
)

func TestProjectDetailsFull(t *testing.T) {
	ds := testutil.New(testutil.GeneratorConfig{Seed: 9, Devices: 2, Ops: 1, Families: []string{"latency"}, WithRecipes: true}).Dataset()
	sel := NewSelection(ds, "latency")
	sel.OpID = testutil.OpID(0)

	records := ProjectDetails(ds, sel)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	r := records[0]
	if r.Title != "Op 0 · Device 0" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.MetricFamily != "Latency" {
		t.Errorf("MetricFamily = %q", r.MetricFamily)
	}
	if r.Confidence != "high" || r.Aggregation != "p50" {
		t.Errorf("Confidence = %q, Aggregation = %q", r.Confidence, r.Aggregation)
	}
	if len(r.Conditions) != 2 || r.Conditions[0].Key != "threads" || r.Conditions[1].Key != "warm" {
		t.Errorf("conditions lost their order: %+v", r.Conditions)
	}
	if r.RecipeSummary != "Run the microbenchmark" || !r.HasRecipeNotes {
		t.Errorf("recipe summary %q, notes %v", r.RecipeSummary, r.HasRecipeNotes)
	}
	if len(r.RecipeSteps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(r.RecipeSteps))
	}
	if got := r.RecipeSteps[0].Line(); got != "shell: make bench OP=op0 → exit 0" {
		t.Errorf("step line = %q", got)
	}
	if got := r.RecipeSteps[1].Line(); got != "note:" {
		t.Errorf("bare step line = %q", got)
	}
	if got := r.RunCommands(); !reflect.DeepEqual(got, []string{"make bench OP=op0"}) {
		t.Errorf("RunCommands() = %v", got)
	}
}

func TestProjectDetailsAbsentFields(t *testing.T) {
	ds := model.NewDataset(
		nil,
		nil,
		[]model.Measurement{{OpID: "x", DeviceID: "y", MetricFamily: "latency", Unit: "ms"}},
		nil,
	)
	sel := Selection{MetricFamily: "latency", OpClass: model.OpClassAll, Devices: NewDeviceSet("y")}

	records := ProjectDetails(ds, sel)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	for name, got := range map[string]string{
		"Value":         r.Value,
		"MeasuredAt":    r.MeasuredAt,
		"Aggregation":   r.Aggregation,
		"Confidence":    r.Confidence,
		"RecipeSummary": r.RecipeSummary,
		"RecipeNotes":   r.RecipeNotes,
	} {
		if got != Absent {
			t.Errorf("%s = %q, want %q", name, got, Absent)
		}
	}
	if r.Title != "x · y" {
		t.Errorf("Title = %q, want raw ids", r.Title)
	}
	if r.HasRecipeNotes || len(r.RecipeSteps) != 0 || r.Conditions == nil || r.Tags == nil {
		t.Errorf("unexpected empty collections: %+v", r)
	}
}

func TestProjectDetailsOrder(t *testing.T) {
	ds := mixedDataset()
	sel := NewSelection(ds, "latency")

	var got []string
	for _, r := range ProjectDetails(ds, sel) {
		got = append(got, r.OpID+"/"+r.DeviceID)
	}
	want := []string{"load/d1", "ghost/d1", "add/d1", "load/d2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("detail order = %v, want %v", got, want)
	}
}
