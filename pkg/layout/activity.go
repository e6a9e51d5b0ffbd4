package layout

import (
	"time"

	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scale"
)

// ActivityOffset shifts activity nodes right of their column's leading edge.
const ActivityOffset = 35

// ActivityLayout places nodes analytically: x by tactic column, y by the
// creation time of the owning grouping. Nothing is simulated or re-clamped.
type ActivityLayout struct {
	Columns scale.Band
	Time    scale.Time
	Offset  float64

	Column  func(*model.Node) string
	Created func(*model.Node) (time.Time, bool)
}

// Place assigns x and y to every node.
func (a ActivityLayout) Place(nodes []*model.Node) {
	for _, n := range nodes {
		n.Place(a.X(n), a.Y(n, a.Time))
	}
}

// Reproject recomputes y against ts (a rescaled copy of Time). x never
// changes after Place.
func (a ActivityLayout) Reproject(nodes []*model.Node, ts scale.Time) {
	for _, n := range nodes {
		n.Y = a.Y(n, ts)
	}
}

// X returns the column position. A node without a known column sits at the
// horizontal centre of the scene.
func (a ActivityLayout) X(n *model.Node) float64 {
	if a.Column != nil {
		if x, ok := a.Columns.Map(a.Column(n)); ok {
			return x + a.Offset
		}
	}
	return (a.Columns.R0 + a.Columns.R1) / 2
}

// Y maps the grouping timestamp through ts. A node without one is placed at
// the start of the domain.
func (a ActivityLayout) Y(n *model.Node, ts scale.Time) float64 {
	if a.Created != nil {
		if t, ok := a.Created(n); ok {
			return ts.Map(t)
		}
	}
	return ts.Map(ts.D0)
}
