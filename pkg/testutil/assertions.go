package testutil

import (
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/opscost/pkg/model"
)

// AssertMeasurementCount verifies the expected number of measurements.
func AssertMeasurementCount(t *testing.T, ms []model.Measurement, expected int) {
	t.Helper()
	if len(ms) != expected {
		t.Errorf("expected %d measurements, got %d", expected, len(ms))
	}
}

// AssertAllValid verifies all entities of ds pass validation.
func AssertAllValid(t *testing.T, ds *model.Dataset) {
	t.Helper()
	for i := range ds.Devices {
		if err := ds.Devices[i].Validate(); err != nil {
			t.Errorf("device %d invalid: %v", i, err)
		}
	}
	for i := range ds.Ops {
		if err := ds.Ops[i].Validate(); err != nil {
			t.Errorf("op %d invalid: %v", i, err)
		}
	}
	for i := range ds.Measurements {
		if err := ds.Measurements[i].Validate(); err != nil {
			t.Errorf("measurement %d invalid: %v", i, err)
		}
	}
}

// AssertDatasetsEqual compares two datasets by their JSON form.
func AssertDatasetsEqual(t *testing.T, expected, actual *model.Dataset) {
	t.Helper()
	AssertJSONEqual(t, expected, actual)
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// WriteDatasetFile writes ds as JSON to dir/name and returns the path.
func WriteDatasetFile(t *testing.T, dir, name string, ds *model.Dataset) string {
	t.Helper()

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal dataset: %v", err)
	}
	return WriteFile(t, dir, name, string(data))
}

// WriteFile writes content to dir/name, creating dir, and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// MeasurementKeys returns "op/device" for each measurement, in order.
func MeasurementKeys(ms []model.Measurement) []string {
	keys := make([]string, len(ms))
	for i := range ms {
		keys[i] = ms[i].OpID + "/" + ms[i].DeviceID
	}
	return keys
}
