// Package viewport holds the pan/zoom transform applied to the whole scene
// and the time axis that is re-derived from it in the activity view.
package viewport

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/threatgraph/pkg/scale"
)

// Transform is a translation followed by a uniform scale:
// screen = scene·K + (X, Y).
type Transform struct {
	X, Y float64
	K    float64
}

// Identity is the transform with no pan and unit scale.
var Identity = Transform{K: 1}

// Apply maps a scene point to screen space.
func (t Transform) Apply(p r2.Vec) r2.Vec {
	return r2.Vec{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to scene space.
func (t Transform) Invert(p r2.Vec) r2.Vec {
	return r2.Vec{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// ApplyX maps a scene x coordinate.
func (t Transform) ApplyX(x float64) float64 { return x*t.K + t.X }

// ApplyY maps a scene y coordinate.
func (t Transform) ApplyY(y float64) float64 { return y*t.K + t.Y }

// InvertX maps a screen x coordinate back.
func (t Transform) InvertX(x float64) float64 { return (x - t.X) / t.K }

// InvertY maps a screen y coordinate back.
func (t Transform) InvertY(y float64) float64 { return (y - t.Y) / t.K }

// Translate returns t moved by (x, y) in scene units.
func (t Transform) Translate(x, y float64) Transform {
	return Transform{X: t.X + t.K*x, Y: t.Y + t.K*y, K: t.K}
}

// ScaleBy returns t with its scale multiplied by k.
func (t Transform) ScaleBy(k float64) Transform {
	return Transform{X: t.X, Y: t.Y, K: t.K * k}
}

// RescaleY returns a copy of ts whose domain is what is visible through t:
// the range is unchanged and each range endpoint maps to the time it shows.
func (t Transform) RescaleY(ts scale.Time) scale.Time {
	out := ts
	out.D0 = ts.Invert(t.InvertY(ts.R0))
	out.D1 = ts.Invert(t.InvertY(ts.R1))
	return out
}

// String renders the transform as an SVG transform attribute.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%g,%g) scale(%g)", t.X, t.Y, t.K)
}
