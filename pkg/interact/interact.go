// Package interact implements the node interaction lifecycle: hover
// tooltip, drag-to-pin, click to drill down or open the detail overlay, and
// double-click to unpin.
//
// Handlers are plain functions of (Event, *model.Node, Handle). They keep no
// state of their own; everything they touch is reached through the Handle.
package interact

import (
	"github.com/vanderheijden86/threatgraph/pkg/detail"
	"github.com/vanderheijden86/threatgraph/pkg/layout"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
)

// TooltipOffsetY lifts the tooltip above the pointer.
const TooltipOffsetY = 20

// DefaultTooltipWidth is the tooltip box width in screen units.
const DefaultTooltipWidth = 300

// Event is a pointer event. X and Y are in scene coordinates (already
// inverted through the viewport); the Page fields are screen coordinates.
type Event struct {
	X, Y         float64
	PageX, PageY float64
	AvailWidth   float64
}

// Handle is the controller surface the handlers act on.
type Handle interface {
	Mode() model.Mode
	Scene() *scene.Scene
	// Restart reheats the mounted simulation, if any.
	Restart()
	// DrillDown switches to the sub graph owned by n.
	DrillDown(n *model.Node) error
	RenderDetail(data model.Object, title, body, typ detail.Slot) error
	TooltipWidth() float64
}

// Handler is the shape shared by every interaction handler.
type Handler func(Event, *model.Node, Handle) error

// Qualifies reports whether clicking n in mode drills down.
func Qualifies(mode model.Mode, n *model.Node) bool {
	return mode != model.SubGraph && n != nil && n.SubGraph != nil
}

// HoverEnter shows the tooltip.
func HoverEnter(_ Event, n *model.Node, h Handle) error {
	t := tooltip(h.Scene())
	if t == nil {
		return nil
	}
	t.Node = n
	t.Text = n.Description()
	t.Visible = true
	return nil
}

// HoverMove places the tooltip next to the pointer.
func HoverMove(ev Event, n *model.Node, h Handle) error {
	t := tooltip(h.Scene())
	if t == nil {
		return nil
	}
	w := h.TooltipWidth()
	if w <= 0 {
		w = DefaultTooltipWidth
	}
	t.X = TooltipLeft(ev.PageX, w, ev.AvailWidth)
	t.Y = ev.PageY - TooltipOffsetY
	t.W = w
	t.Node = n
	t.Text = n.Description()
	return nil
}

// HoverLeave hides the tooltip.
func HoverLeave(_ Event, _ *model.Node, h Handle) error {
	hideTooltip(h.Scene())
	return nil
}

// TooltipLeft is the tooltip's left edge: at the pointer, unless the box would
// reach past the available width, in which case its right edge is anchored
// there.
func TooltipLeft(pageX, width, availWidth float64) float64 {
	if pageX+width >= availWidth {
		return availWidth - width
	}
	return pageX
}

// DragStart marks the node fixed. The pin itself is set by the first Drag,
// so a press that is released without motion leaves the node free.
func DragStart(_ Event, n *model.Node, h Handle) error {
	if h.Mode() == model.ActivityThread {
		return nil
	}
	markFixed(h.Scene(), n, true)
	return nil
}

// Drag moves the pin to the pointer, clamped to the scene. In the
// attack-graph view the tooltip is hidden; in the sub graph every drag event
// also acts as a click.
func Drag(ev Event, n *model.Node, h Handle) error {
	s := h.Scene()
	switch h.Mode() {
	case model.ActivityThread:
		return nil
	case model.AttackGraph:
		hideTooltip(s)
	case model.SubGraph:
		if err := Click(ev, n, h); err != nil {
			return err
		}
	}
	n.Pin(layout.Clamp(ev.X, 0, s.W), layout.Clamp(ev.Y, 0, s.H))
	markFixed(s, n, true)
	h.Restart()
	return nil
}

// Click drills down on a qualifying node and otherwise opens the detail
// overlay.
func Click(_ Event, n *model.Node, h Handle) error {
	if Qualifies(h.Mode(), n) {
		return h.DrillDown(n)
	}
	return OpenDetail(h, n)
}

// DoubleClick unpins the node. Only the sub graph supports it.
func DoubleClick(_ Event, n *model.Node, h Handle) error {
	if h.Mode() != model.SubGraph {
		return nil
	}
	n.Unpin()
	markFixed(h.Scene(), n, false)
	h.Restart()
	return nil
}

// OpenDetail replaces any open detail overlay with one for n.
func OpenDetail(h Handle, n *model.Node) error {
	s := h.Scene()
	var title, body, typ detail.TextSlot
	if err := h.RenderDetail(n.Data, &title, &body, &typ); err != nil {
		return err
	}
	CloseDetail(s)
	return s.Add(&scene.Element{
		ID:       s.ID(scene.KindDetail, "detail"),
		Kind:     scene.KindDetail,
		Node:     n,
		Title:    title.Text,
		Subtitle: typ.Text,
		Text:     body.Text,
		Visible:  true,
	})
}

// CloseDetail removes the detail overlay. It reports whether one was open.
func CloseDetail(s *scene.Scene) bool {
	return s.RemoveKind(scene.KindDetail) > 0
}

// MountTooltip adds the hidden tooltip element for the current mount.
func MountTooltip(s *scene.Scene) error {
	return s.Add(&scene.Element{
		ID:   s.ID(scene.KindTooltip, "tooltip"),
		Kind: scene.KindTooltip,
	})
}

func tooltip(s *scene.Scene) *scene.Element {
	return s.Find(s.ID(scene.KindTooltip, "tooltip"))
}

func hideTooltip(s *scene.Scene) {
	if t := tooltip(s); t != nil {
		t.Visible = false
	}
}

func markFixed(s *scene.Scene, n *model.Node, on bool) {
	if e := s.NodeElement(n); e != nil {
		e.SetClass(scene.ClassFixed, on)
	}
}
