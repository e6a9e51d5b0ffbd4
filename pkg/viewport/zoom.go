package viewport

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Default zoom button factors.
const (
	ZoomInFactor  = 1.2
	ZoomOutFactor = 0.8
)

// DeltaMode is the unit of a wheel delta.
type DeltaMode int

const (
	DeltaPixel DeltaMode = iota
	DeltaLine
	DeltaPage
)

// Zoom owns the current transform and applies pan/zoom gestures to it.
// K always stays within [MinK, MaxK].
type Zoom struct {
	MinK, MaxK float64
	InFactor   float64
	OutFactor  float64

	// Extent is the gesture surface; buttons zoom about its centre.
	Extent r2.Vec

	t Transform
}

// NewZoom returns a zoom at the identity transform over a w×h surface.
func NewZoom(minK, maxK, w, h float64) *Zoom {
	return &Zoom{
		MinK:      minK,
		MaxK:      maxK,
		InFactor:  ZoomInFactor,
		OutFactor: ZoomOutFactor,
		Extent:    r2.Vec{X: w, Y: h},
		t:         Identity,
	}
}

// Transform returns the current transform.
func (z *Zoom) Transform() Transform { return z.t }

func (z *Zoom) clampK(k float64) float64 {
	if math.IsNaN(k) || k <= 0 {
		return z.t.K
	}
	return math.Max(z.MinK, math.Min(z.MaxK, k))
}

// ScaleTo sets the scale to k, keeping the scene point under p fixed.
func (z *Zoom) ScaleTo(k float64, p r2.Vec) Transform {
	p0 := z.t.Invert(p)
	k = z.clampK(k)
	z.t = Transform{X: p.X - p0.X*k, Y: p.Y - p0.Y*k, K: k}
	return z.t
}

// ScaleBy multiplies the scale by f about p.
func (z *Zoom) ScaleBy(f float64, p r2.Vec) Transform {
	return z.ScaleTo(z.t.K*f, p)
}

// Wheel applies a wheel gesture at p. Scrolling up zooms in.
func (z *Zoom) Wheel(deltaY float64, mode DeltaMode, p r2.Vec) Transform {
	factor := 0.002
	switch mode {
	case DeltaLine:
		factor = 0.05
	case DeltaPage:
		factor = 1
	}
	return z.ScaleBy(math.Pow(2, -deltaY*factor), p)
}

// Pan moves the scene by (dx, dy) screen units.
func (z *Zoom) Pan(dx, dy float64) Transform {
	z.t.X += dx
	z.t.Y += dy
	return z.t
}

func (z *Zoom) Centre() r2.Vec { return r2.Scale(0.5, z.Extent) }

// ZoomIn scales up by InFactor about the surface centre.
func (z *Zoom) ZoomIn() Transform { return z.ScaleBy(z.InFactor, z.Centre()) }

// ZoomOut scales down by OutFactor about the surface centre.
func (z *Zoom) ZoomOut() Transform { return z.ScaleBy(z.OutFactor, z.Centre()) }

// Reset returns to the identity transform.
func (z *Zoom) Reset() Transform {
	z.t = Identity
	return z.t
}

// DoubleClick reports whether the zoom consumed a double-click. It never
// does; double-click belongs to node unpinning.
func (z *Zoom) DoubleClick(r2.Vec) bool { return false }
