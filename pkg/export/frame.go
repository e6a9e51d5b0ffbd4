// Package export writes snapshots of the mounted view: SVG and PNG images of
// the scene and a SQLite database of the laid-out graph.
package export

import (
	"github.com/vanderheijden86/threatgraph/pkg/config"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
	"github.com/vanderheijden86/threatgraph/pkg/view"
	"github.com/vanderheijden86/threatgraph/pkg/viewport"
)

// Item is a copy of one scene element, detached from the live graph.
type Item struct {
	ID   string
	Kind scene.Kind

	X, Y   float64
	X2, Y2 float64
	W, H   float64

	Title    string
	Subtitle string
	Text     string
	Fill     string
	Visible  bool
	Fixed    bool
	Path     bool

	NodeID     string
	NodeType   string
	GroupingID string
	SourceID   string
	TargetID   string
}

// Frame is a value snapshot of a mounted view. Frames share nothing with the
// controller and can be rendered concurrently.
type Frame struct {
	Mode      model.Mode
	Mount     string
	W, H      float64
	Margin    config.Margins
	Transform viewport.Transform
	Label     string
	Status    string
	Items     []Item
}

// Capture copies the controller's current scene into a Frame.
func Capture(c *view.Controller) Frame {
	s := c.Scene()
	f := Frame{
		Mode:      c.Mode(),
		Mount:     s.Mount(),
		W:         s.W,
		H:         s.H,
		Margin:    c.Config().Scene.Margin,
		Transform: c.SceneTransform(),
		Label:     c.ModeLabel(),
		Status:    c.Status().Text,
		Items:     make([]Item, 0, s.Count()),
	}
	for _, e := range s.Elements() {
		it := Item{
			ID:       e.ID,
			Kind:     e.Kind,
			X:        e.X,
			Y:        e.Y,
			X2:       e.X2,
			Y2:       e.Y2,
			W:        e.W,
			H:        e.H,
			Title:    e.Title,
			Subtitle: e.Subtitle,
			Text:     e.Text,
			Fill:     e.Fill,
			Visible:  e.Visible,
			Fixed:    e.Classed(scene.ClassFixed),
			Path:     e.Classed(view.ClassPath),
		}
		if e.Node != nil {
			it.NodeID = e.Node.ID
			it.NodeType = e.Node.Type
			it.GroupingID = e.Node.GroupingID
		}
		if e.Link != nil {
			it.SourceID = e.Link.SourceID
			it.TargetID = e.Link.TargetID
		}
		f.Items = append(f.Items, it)
	}
	return f
}

// Of returns the items of kind in draw order.
func (f Frame) Of(kind scene.Kind) []Item {
	var out []Item
	for _, it := range f.Items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// CanvasSize is the scene plus margins, in whole pixels.
func (f Frame) CanvasSize() (int, int) {
	w := f.W + f.Margin.Left + f.Margin.Right
	h := f.H + f.Margin.Top + f.Margin.Bottom
	return int(w + 0.5), int(h + 0.5)
}

func overlay(k scene.Kind) bool {
	return k == scene.KindHeading || k == scene.KindTooltip || k == scene.KindDetail
}
