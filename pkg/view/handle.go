package view

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/threatgraph/pkg/detail"
	"github.com/vanderheijden86/threatgraph/pkg/interact"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/viewport"
)

// NodeHitRadius is how close, in scene units, a point must be to a node to
// hit it.
const NodeHitRadius = 10

var _ interact.Handle = (*Controller)(nil)

// Restart reheats the mounted simulation. A restart during a run merges into
// it; the host learns whether to schedule steps from Running.
func (c *Controller) Restart() {
	if c.sim == nil || !c.handle.Alive() {
		return
	}
	c.sim.Restart()
}

// RenderDetail fills the detail slots, creating the default renderer on
// first use.
func (c *Controller) RenderDetail(data model.Object, title, body, typ detail.Slot) error {
	if c.detail == nil {
		r, err := detail.NewRenderer()
		if err != nil {
			return err
		}
		c.detail = r
	}
	return c.detail.Render(data, title, body, typ)
}

// TooltipWidth is the configured tooltip box width.
func (c *Controller) TooltipWidth() float64 { return c.cfg.UI.TooltipWidth }

// Dispatch runs an interaction handler against n. Events for nodes that are
// not part of the current mount are dropped. Handler errors go to the status
// slot.
func (c *Controller) Dispatch(h interact.Handler, ev interact.Event, n *model.Node) error {
	if !c.mounted || n == nil {
		return nil
	}
	if e := c.scene.NodeElement(n); e == nil || e.Node != n {
		return nil
	}
	if err := h(ev, n, c); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// SceneTransform is the transform to apply when drawing the scene. The
// activity thread reprojects node positions itself, so it draws untransformed.
func (c *Controller) SceneTransform() viewport.Transform {
	if c.state.Mode == model.ActivityThread {
		return viewport.Identity
	}
	return c.state.Transform
}

// ToScene maps a screen point into scene coordinates.
func (c *Controller) ToScene(p r2.Vec) r2.Vec {
	return c.SceneTransform().Invert(p)
}

// NodeAt returns the node nearest to the scene point p within
// NodeHitRadius, or nil.
func (c *Controller) NodeAt(p r2.Vec) *model.Node {
	if !c.mounted || c.state.Bound == nil {
		return nil
	}
	var best *model.Node
	bestD := math.Inf(1)
	for _, n := range c.state.Bound.Nodes {
		if !n.Placed() {
			continue
		}
		d := r2.Norm(r2.Sub(p, r2.Vec{X: n.X, Y: n.Y}))
		if d <= NodeHitRadius && d < bestD {
			best, bestD = n, d
		}
	}
	return best
}

// Wheel zooms about the screen point p.
func (c *Controller) Wheel(deltaY float64, mode viewport.DeltaMode, p r2.Vec) {
	c.applyTransform(c.zoom.Wheel(deltaY, mode, p))
}

// Pan translates the view by a screen offset.
func (c *Controller) Pan(dx, dy float64) {
	c.applyTransform(c.zoom.Pan(dx, dy))
}

// ZoomIn is the zoom-in button.
func (c *Controller) ZoomIn() { c.applyTransform(c.zoom.ZoomIn()) }

// ZoomOut is the zoom-out button.
func (c *Controller) ZoomOut() { c.applyTransform(c.zoom.ZoomOut()) }

// ResetZoom returns to the identity transform.
func (c *Controller) ResetZoom() { c.applyTransform(c.zoom.Reset()) }

// DoubleClickBackground reports whether a background double-click was
// handled. It never is; double-click is not a zoom gesture.
func (c *Controller) DoubleClickBackground(p r2.Vec) bool {
	return c.zoom.DoubleClick(p)
}

func (c *Controller) applyTransform(t viewport.Transform) {
	if !c.mounted {
		return
	}
	c.state.Transform = t
	if c.state.Mode != model.ActivityThread || c.axis == nil {
		return
	}
	ts := c.axis.Rescale(t)
	c.activity.Reproject(c.state.Bound.Nodes, ts)
	if err := c.refreshTimeAxis(); err != nil {
		c.fail(err)
	}
	c.scene.Sync()
}

// TimeTicks returns the activity time axis ticks, or nil outside the
// activity thread.
func (c *Controller) TimeTicks() []viewport.Tick {
	if c.axis == nil {
		return nil
	}
	return c.axis.Ticks()
}
