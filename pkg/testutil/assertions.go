package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/threatgraph/pkg/model"
)

// AssertNodeCount verifies the number of laid-out nodes.
func AssertNodeCount(t *testing.T, g *model.Graph, expected int) {
	t.Helper()
	if g == nil {
		t.Fatalf("expected %d nodes, got nil graph", expected)
	}
	if len(g.Nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(g.Nodes))
	}
}

// AssertNoDuplicateIDs verifies all node IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, nodes []*model.Node) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
	}
}

// AssertInBounds verifies every node has a finite position inside [0,w]×[0,h].
func AssertInBounds(t *testing.T, nodes []*model.Node, w, h float64) {
	t.Helper()
	for _, n := range nodes {
		if math.IsNaN(n.X) || math.IsInf(n.X, 0) || math.IsNaN(n.Y) || math.IsInf(n.Y, 0) {
			t.Errorf("node %s has non-finite position (%v, %v)", n.ID, n.X, n.Y)
			continue
		}
		if n.X < 0 || n.X > w || n.Y < 0 || n.Y > h {
			t.Errorf("node %s at (%.2f, %.2f) outside [0,%v]x[0,%v]", n.ID, n.X, n.Y, w, h)
		}
	}
}

// AssertWithin verifies lo <= v <= hi.
func AssertWithin(t *testing.T, what string, v, lo, hi float64) {
	t.Helper()
	if v < lo || v > hi {
		t.Errorf("%s = %.3f, want within [%.3f, %.3f]", what, v, lo, hi)
	}
}

// AssertLinksResolved verifies every link endpoint points into g.
func AssertLinksResolved(t *testing.T, g *model.Graph) {
	t.Helper()
	in := make(map[*model.Node]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		in[n] = true
	}
	for i, l := range g.Links {
		if !in[l.Source] || !in[l.Target] {
			t.Errorf("link %d (%s -> %s) not resolved into graph", i, l.SourceID, l.TargetID)
		}
	}
}

// WriteBundleFile writes fx to dir/name and returns the path.
func WriteBundleFile(t *testing.T, dir, name string, fx Fixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, fx.JSON(), 0644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}
	return path
}
