package view

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vanderheijden86/threatgraph/pkg/debug"
	"github.com/vanderheijden86/threatgraph/pkg/interact"
	"github.com/vanderheijden86/threatgraph/pkg/layout"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scale"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
	"github.com/vanderheijden86/threatgraph/pkg/stix"
	"github.com/vanderheijden86/threatgraph/pkg/viewport"
)

// BandColors fill the layer and column backgrounds in turn.
var BandColors = []string{"#CFD8DC", "#90A4AE", "#607D8B", "#455A64"}

// ClassPath marks links drawn as paths rather than straight lines.
const ClassPath = "path"

// mount tears down the current view and mounts g in mode. Links are resolved
// before anything is torn down, so a LinkResolutionError leaves the previous
// view in place.
func (c *Controller) mount(mode model.Mode, g *model.Graph, owner *model.Node) error {
	if g == nil {
		err := &model.TransitionError{From: c.state.Mode, To: mode, Reason: "no graph to mount"}
		c.fail(err)
		return err
	}
	if err := g.ResolveLinks(); err != nil {
		c.fail(err)
		return err
	}

	c.Teardown()
	c.gen++
	if err := c.scene.Begin(uuid.NewString()); err != nil {
		return err
	}
	selection := c.state.Selection
	if owner != nil {
		selection = owner
	}
	c.state = ViewState{Mode: mode, Bound: g, Transform: c.zoom.Reset(), Selection: selection}
	c.mounted = true

	var err error
	switch mode {
	case model.AttackGraph:
		err = c.mountAttackGraph(g)
	case model.SubGraph:
		err = c.mountSubGraph(g, owner)
	case model.ActivityThread:
		err = c.mountActivityThread(g)
	default:
		err = fmt.Errorf("unknown mode %d", int(mode))
	}
	if err != nil {
		c.Teardown()
		c.fail(err)
		return err
	}
	c.scene.Sync()
	if c.sim != nil {
		c.handle = c.sim.Start()
	}
	debug.Log("view: mounted %s as %s (%d nodes, %d links, %d elements)",
		mode.Token(), c.scene.Mount(), len(g.Nodes), len(g.Links), c.scene.Count())
	return nil
}

func (c *Controller) mountAttackGraph(g *model.Graph) error {
	s := c.scene
	b := builder{s: s}
	b.surface()
	columns := scale.NewBand(stix.Tactics, 0, s.W)
	b.columns(columns)
	b.graph(g, false, c.cfg.UI.FullLabels)
	b.tooltip()
	if b.err != nil {
		return b.err
	}

	policy := layout.ColumnPolicy{W: s.W, H: s.H, Columns: stix.Tactics, Column: stix.Column}
	sim, err := layout.New(g, policy, c.simOptions(
		layout.WithForce(layout.NewManyBody(c.cfg.Layout.AttackCharge)),
		layout.WithForce(layout.NewCenter(s.W/float64(len(stix.Tactics)), s.H/4)),
		layout.WithForce(layout.NewLinkSpring(c.cfg.Layout.LinkDistance)),
	)...)
	if err != nil {
		return err
	}
	c.sim = sim
	return nil
}

func (c *Controller) mountSubGraph(g *model.Graph, owner *model.Node) error {
	s := c.scene
	b := builder{s: s}
	b.surface()
	b.layers()
	b.graph(g, false, c.cfg.UI.FullLabels)
	if owner != nil {
		b.add(&scene.Element{
			ID:      s.ID(scene.KindHeading, "heading"),
			Kind:    scene.KindHeading,
			Node:    owner,
			X:       s.W / 2,
			Text:    stix.Label(owner, true),
			Visible: true,
		})
	}
	b.tooltip()
	if b.err != nil {
		return b.err
	}

	policy := layout.LayerPolicy{W: s.W, H: s.H, Layers: len(stix.DiamondCategories), Layer: stix.DiamondLayer}
	sim, err := layout.New(g, policy, c.simOptions(
		layout.WithForce(layout.NewManyBody(c.cfg.Layout.SubGraphCharge)),
		layout.WithForce(layout.NewLinkSpring(c.cfg.Layout.LinkDistance)),
	)...)
	if err != nil {
		return err
	}
	c.sim = sim
	return nil
}

func (c *Controller) mountActivityThread(g *model.Graph) error {
	s := c.scene
	columns := scale.NewBand(stix.Tactics, 0, s.W)

	lo, okLo := stix.MinCreated(g.Groupings)
	hi, okHi := stix.MaxCreated(g.Groupings)
	if !okLo || !okHi {
		now := time.Now().In(c.tz)
		lo, hi = now, now
	}
	d0, d1 := scale.YearSpan(lo, hi, c.tz)
	ts := scale.NewTime(d0, d1, s.H, 0, c.tz)

	c.activity = &layout.ActivityLayout{
		Columns: columns,
		Time:    ts,
		Offset:  layout.ActivityOffset,
		Column:  stix.Column,
		Created: func(n *model.Node) (time.Time, bool) {
			return stix.Created(g.GroupingByID(n.GroupingID))
		},
	}
	c.activity.Place(g.Nodes)

	c.axis = viewport.NewTimeAxis(ts)
	c.axis.Threshold = c.cfg.Zoom.BoundaryThreshold

	b := builder{s: s}
	b.surface()
	b.columns(columns)
	b.graph(g, true, c.cfg.UI.FullLabels)
	b.tooltip()
	if b.err != nil {
		return b.err
	}
	return c.refreshTimeAxis()
}

func (c *Controller) simOptions(forces ...layout.Option) []layout.Option {
	s := c.scene
	opts := append(forces,
		layout.WithAlphaMin(c.cfg.Layout.AlphaMin),
		layout.WithVelocityDecay(c.cfg.Layout.VelocityDecay),
		layout.WithOrigin(s.W/2, s.H/2),
		layout.WithOnTick(s.Sync),
	)
	return opts
}

// refreshTimeAxis replaces the time tick elements with those of the current
// axis domain.
func (c *Controller) refreshTimeAxis() error {
	s := c.scene
	for _, e := range s.ByKind(scene.KindAxis) {
		if e.Subtitle == "time" {
			s.Remove(e.ID)
		}
	}
	for i, t := range c.axis.Ticks() {
		err := s.Add(&scene.Element{
			ID:       s.ID(scene.KindAxis, fmt.Sprintf("t/%d", i)),
			Kind:     scene.KindAxis,
			Y:        t.Pos,
			Subtitle: "time",
			Text:     t.Label,
			Visible:  true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// builder adds elements to the scene, keeping the first error.
type builder struct {
	s   *scene.Scene
	err error
}

func (b *builder) add(e *scene.Element) {
	if b.err != nil {
		return
	}
	b.err = b.s.Add(e)
}

func (b *builder) surface() {
	b.add(&scene.Element{
		ID:      b.s.ID(scene.KindZoomSurface, "zoom"),
		Kind:    scene.KindZoomSurface,
		W:       b.s.W,
		H:       b.s.H,
		Visible: true,
	})
}

// columns adds one band and one x-axis label per tactic.
func (b *builder) columns(band scale.Band) {
	w := band.Bandwidth()
	for i, tactic := range band.Domain {
		x := band.Start(i)
		b.add(&scene.Element{
			ID:      b.s.ID(scene.KindBand, tactic),
			Kind:    scene.KindBand,
			X:       x,
			W:       w,
			H:       b.s.H,
			Fill:    BandColors[i%2],
			Visible: true,
		})
		b.add(&scene.Element{
			ID:       b.s.ID(scene.KindAxis, "x/"+tactic),
			Kind:     scene.KindAxis,
			X:        x + w/2,
			Subtitle: "x",
			Text:     tactic,
			Visible:  true,
		})
	}
}

// layers adds one band and one y-axis label per diamond category.
func (b *builder) layers() {
	h := b.s.H / float64(len(stix.DiamondCategories))
	for i, cat := range stix.DiamondCategories {
		b.add(&scene.Element{
			ID:      b.s.ID(scene.KindBand, cat),
			Kind:    scene.KindBand,
			Y:       h * float64(i),
			W:       b.s.W,
			H:       h,
			Fill:    BandColors[i%len(BandColors)],
			Visible: true,
		})
		b.add(&scene.Element{
			ID:       b.s.ID(scene.KindAxis, "y/"+cat),
			Kind:     scene.KindAxis,
			Y:        h*float64(i) + h/2,
			Subtitle: "y",
			Text:     cat,
			Visible:  true,
		})
	}
}

func (b *builder) graph(g *model.Graph, paths, fullLabels bool) {
	for i, l := range g.Links {
		key := fmt.Sprintf("%d", i)
		link := &scene.Element{
			ID:      b.s.ID(scene.KindLink, key),
			Kind:    scene.KindLink,
			Link:    l,
			Text:    l.Relation,
			Visible: true,
		}
		link.SetClass(ClassPath, paths)
		b.add(link)
		b.add(&scene.Element{
			ID:      b.s.ID(scene.KindLinkLabel, key),
			Kind:    scene.KindLinkLabel,
			Link:    l,
			Text:    l.Relation,
			Visible: true,
		})
	}
	for _, n := range g.Nodes {
		b.add(&scene.Element{
			ID:       b.s.ID(scene.KindNode, n.ID),
			Kind:     scene.KindNode,
			Node:     n,
			Title:    n.Type,
			Subtitle: stix.IconFor(n.Type),
			Visible:  true,
		})
	}
	for _, n := range g.Nodes {
		b.add(&scene.Element{
			ID:      b.s.ID(scene.KindNodeLabel, n.ID),
			Kind:    scene.KindNodeLabel,
			Node:    n,
			Text:    stix.Label(n, fullLabels),
			Visible: true,
		})
	}
}

func (b *builder) tooltip() {
	if b.err != nil {
		return
	}
	b.err = interact.MountTooltip(b.s)
}
