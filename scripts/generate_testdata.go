//go:build ignore

// generate_testdata.go creates standard datasets for benchmarking and demos.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	testdata/benchmark/small.json   (8 devices x 20 ops)
//	testdata/benchmark/medium.json  (16 devices x 200 ops)
//	testdata/benchmark/large.json   (32 devices x 1000 ops)
//	testdata/benchmark/demo.json    (small, with recipes and placeholder rows)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/opscost/pkg/testutil"
)

type datasetSpec struct {
	name    string
	devices int
	ops     int
	demo    bool
}

var datasets = []datasetSpec{
	{"small", 8, 20, false},
	{"medium", 16, 200, false},
	{"large", 32, 1000, false},
	{"demo", 4, 6, true},
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, spec := range datasets {
		fmt.Printf("Generating %s dataset (%d devices, %d ops)...\n", spec.name, spec.devices, spec.ops)

		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(spec.devices*1000 + spec.ops) // Reproducible per-size
		cfg.Devices = spec.devices
		cfg.Ops = spec.ops
		cfg.Families = []string{"latency", "throughput", "memory", "energy"}
		cfg.NilRate = 0.05
		if spec.demo {
			cfg.WithRecipes = true
			cfg.PlaceholderRate = 0.2
			cfg.DanglingOps = 1
		}

		ds := testutil.New(cfg).Dataset()
		data, err := json.MarshalIndent(ds, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", spec.name, err)
			os.Exit(1)
		}

		outputPath := filepath.Join(outputDir, spec.name+".json")
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d measurements)\n", outputPath, len(data), len(ds.Measurements))
	}

	fmt.Println("\nDone! Datasets created in", outputDir)
}
