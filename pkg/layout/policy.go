package layout

import (
	"github.com/vanderheijden86/threatgraph/pkg/model"

	"gonum.org/v1/gonum/spatial/r2"
)

// NodeRadius insets every band so a node never straddles its edge.
const NodeRadius = 1.0

// Policy is the per-mode positional constraint applied after every solver
// update. It is selected once per mount.
type Policy interface {
	Clamp(n *model.Node) r2.Vec
}

// Clamp limits v to [lo, hi]. If the interval is empty the midpoint wins.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FreePolicy keeps nodes inside the W×H scene.
type FreePolicy struct {
	W, H float64
}

func (p FreePolicy) Clamp(n *model.Node) r2.Vec {
	return r2.Vec{
		X: Clamp(n.X, NodeRadius, p.W-NodeRadius),
		Y: Clamp(n.Y, NodeRadius, p.H-NodeRadius),
	}
}

// LayerPolicy stacks nodes into horizontal layers (the diamond-model view).
// Layer i owns y in [i·H/Layers, (i+1)·H/Layers]; nodes without a layer move
// over the full height.
type LayerPolicy struct {
	W, H   float64
	Layers int
	Layer  func(*model.Node) (int, bool)
}

func (p LayerPolicy) Clamp(n *model.Node) r2.Vec {
	x := Clamp(n.X, NodeRadius, p.W-NodeRadius)
	lo, hi := p.Band(n)
	return r2.Vec{X: x, Y: Clamp(n.Y, lo, hi)}
}

// Band returns the y interval the node is confined to.
func (p LayerPolicy) Band(n *model.Node) (lo, hi float64) {
	layers := p.Layers
	if layers <= 0 {
		layers = 4
	}
	if p.Layer != nil {
		if i, ok := p.Layer(n); ok && i >= 0 && i < layers {
			h := p.H / float64(layers)
			return h*float64(i) + NodeRadius, h*float64(i+1) - NodeRadius
		}
	}
	return NodeRadius, p.H - NodeRadius
}

// ColumnPolicy confines nodes to vertical tactic columns (the attack-graph
// view). A node whose column is not one of Columns falls back to the full
// width.
type ColumnPolicy struct {
	W, H    float64
	Columns []string
	Column  func(*model.Node) string
}

func (p ColumnPolicy) Clamp(n *model.Node) r2.Vec {
	lo, hi := p.Band(n)
	return r2.Vec{
		X: Clamp(n.X, lo, hi),
		Y: Clamp(n.Y, NodeRadius, p.H-NodeRadius),
	}
}

// Band returns the x interval the node is confined to.
func (p ColumnPolicy) Band(n *model.Node) (lo, hi float64) {
	idx := -1
	if p.Column != nil {
		col := p.Column(n)
		for i, c := range p.Columns {
			if c == col {
				idx = i
				break
			}
		}
	}
	if idx < 0 || len(p.Columns) == 0 {
		return NodeRadius, p.W - NodeRadius
	}
	w := p.W / float64(len(p.Columns))
	return w*float64(idx) + NodeRadius, w*float64(idx+1) - NodeRadius
}
