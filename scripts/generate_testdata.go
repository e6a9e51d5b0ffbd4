//go:build ignore
// +build ignore

// generate_testdata.go creates STIX bundles for benchmarking and manual testing.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//   testdata/bench/small.json    (100 objects)
//   testdata/bench/medium.json   (500 objects)
//   testdata/bench/large.json    (2000 objects)
//   testdata/bench/threads.json  (12 groupings of 8 attack patterns)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/threatgraph/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
	desc string
}

var datasets = []datasetSpec{
	{"small", 100, "100 objects - random graph with ~5% link density"},
	{"medium", 500, "500 objects - random graph with ~1% link density"},
	{"large", 2000, "2000 objects - random graph with ~0.2% link density"},
}

func main() {
	outputDir := "testdata/bench"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%s)...\n", ds.name, ds.desc)

		gen := testutil.New(testutil.GeneratorConfig{Seed: int64(ds.size)})
		fx := gen.Random(ds.size, calculateDensity(ds.size))
		write(filepath.Join(outputDir, ds.name+".json"), fx)
	}

	fmt.Println("Generating threads dataset...")
	write(filepath.Join(outputDir, "threads.json"), testutil.NewDefault().Threads(12, 8))

	fmt.Println("\nDone! Bundles created in", outputDir)
}

func write(path string, fx testutil.Fixture) {
	raw := fx.JSON()
	if err := os.WriteFile(path, raw, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("  Written %s (%d bytes, %d relationships)\n", path, len(raw), len(fx.OfType("relationship")))
}

// calculateDensity scales link density inversely with size to keep the
// relationship count manageable.
func calculateDensity(size int) float64 {
	switch {
	case size <= 100:
		return 0.05
	case size <= 500:
		return 0.01
	default:
		return 0.002
	}
}
