// Package view owns the mounted view: the mode state machine, the bound
// graph and its layout, the viewport transform and the scene. All methods
// must be called from a single goroutine.
package view

import (
	"errors"
	"fmt"
	"time"

	"github.com/vanderheijden86/threatgraph/pkg/config"
	"github.com/vanderheijden86/threatgraph/pkg/debug"
	"github.com/vanderheijden86/threatgraph/pkg/detail"
	"github.com/vanderheijden86/threatgraph/pkg/layout"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
	"github.com/vanderheijden86/threatgraph/pkg/stix"
	"github.com/vanderheijden86/threatgraph/pkg/viewport"
)

// ViewState is the single mounted view.
type ViewState struct {
	Mode      model.Mode
	Bound     *model.Graph
	Transform viewport.Transform
	// Selection is the node whose sub graph is (or was last) drilled into.
	Selection *model.Node
}

// StatusKind styles the status slot.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusError
	StatusWarning
)

// Status is the error/warning slot shown to the user.
type Status struct {
	Kind StatusKind
	Text string
}

// DetailRenderer fills the detail overlay slots for a node payload.
type DetailRenderer interface {
	Render(data model.Object, title, body, typ detail.Slot) error
}

// Options configures a Controller.
type Options struct {
	Config   config.Config
	Location Location
	Detail   DetailRenderer
	// TimeZone is used for the activity time axis. Nil means time.Local.
	TimeZone *time.Location
}

// Controller is the mode state machine and the owner of every mounted
// resource.
type Controller struct {
	cfg      config.Config
	location Location
	detail   DetailRenderer
	tz       *time.Location

	state  ViewState
	raw    []byte
	root   *model.Graph
	status Status

	scene  *scene.Scene
	zoom   *viewport.Zoom
	sim    *layout.Simulation
	handle *layout.Handle

	activity *layout.ActivityLayout
	axis     *viewport.TimeAxis

	gen     uint64
	mounted bool
}

// New returns a controller with nothing mounted. The initial mode comes from
// the location token when it names a mode, otherwise from the config.
func New(opts Options) *Controller {
	cfg := opts.Config
	if cfg.Scene.Width == 0 {
		cfg = config.DefaultConfig()
	}
	loc := opts.Location
	if loc == nil {
		loc = NewMemoryLocation("")
	}
	tz := opts.TimeZone
	if tz == nil {
		tz = time.Local
	}
	fallback := InitialMode(cfg.UI.DefaultMode, model.AttackGraph)
	c := &Controller{
		cfg:      cfg,
		location: loc,
		detail:   opts.Detail,
		tz:       tz,
		scene:    scene.New(cfg.Scene.Width, cfg.Scene.Height),
		zoom:     viewport.NewZoom(cfg.Zoom.MinScale, cfg.Zoom.MaxScale, cfg.Scene.Width, cfg.Scene.Height),
	}
	c.zoom.InFactor = cfg.Zoom.InFactor
	c.zoom.OutFactor = cfg.Zoom.OutFactor
	c.state = ViewState{Mode: InitialMode(loc.Token(), fallback), Transform: viewport.Identity}
	return c
}

// State returns a copy of the view state.
func (c *Controller) State() ViewState { return c.state }

// Mode returns the active mode.
func (c *Controller) Mode() model.Mode { return c.state.Mode }

// Scene returns the mounted scene.
func (c *Controller) Scene() *scene.Scene { return c.scene }

// Root returns the graph of the last accepted bundle.
func (c *Controller) Root() *model.Graph { return c.root }

// Status returns the status slot.
func (c *Controller) Status() Status { return c.status }

// Config returns the configuration in use.
func (c *Controller) Config() config.Config { return c.cfg }

// Mounted reports whether a view is mounted.
func (c *Controller) Mounted() bool { return c.mounted }

// Generation identifies the current mount. Scheduled steps carry it so a step
// for a torn-down mount can be dropped.
func (c *Controller) Generation() uint64 { return c.gen }

// ModeLabel is the text of the current-mode slot.
func (c *Controller) ModeLabel() string {
	return "Current Graph: " + c.state.Mode.String()
}

// Load is the ingestion boundary. It validates and parses raw, then rebuilds
// the view in the current mode (the sub graph falls back to the attack
// graph). On a validation error, parse error or unresolvable link the
// previous view stays mounted and the error is shown in the status slot.
// Warnings are shown but do not stop the rebuild.
func (c *Controller) Load(raw []byte) error {
	c.status = Status{}

	if err := stix.Validate(raw); err != nil {
		if !errors.Is(err, model.ErrWarning) {
			c.fail(err)
			return err
		}
		c.status = Status{Kind: StatusWarning, Text: err.Error()}
		debug.Log("view: bundle warning: %v", err)
	}

	g, err := stix.ParseBundle(raw)
	if err != nil {
		c.fail(err)
		return err
	}
	if err := g.ResolveLinks(); err != nil {
		c.fail(err)
		return err
	}

	c.raw = raw
	c.root = g
	c.state.Selection = nil
	if c.state.Mode == model.SubGraph {
		c.state.Mode = model.AttackGraph
	}
	return c.rebuild()
}

func (c *Controller) fail(err error) {
	c.status = Status{Kind: StatusError, Text: err.Error()}
	debug.Log("view: %v", err)
}

// Navigate handles an explicit navigation event naming mode. The activity
// thread and attack graph are rebuilt from a fresh parse of the bundle; the
// sub graph reuses the selection's already built sub graph and fails with a
// TransitionError when there is none, leaving the current view mounted.
func (c *Controller) Navigate(mode model.Mode) error {
	defer debug.LogEnterExit("view.Navigate " + mode.Token())()

	if mode == model.SubGraph {
		owner := c.state.Selection
		if owner == nil || owner.SubGraph == nil {
			err := &model.TransitionError{From: c.state.Mode, To: mode, Reason: "no owning node selected"}
			c.fail(err)
			return err
		}
		if err := c.mount(model.SubGraph, owner.SubGraph, owner); err != nil {
			return err
		}
		c.location.Replace(mode.Token())
		return nil
	}

	if c.raw == nil {
		c.state.Mode = mode
		c.location.Replace(mode.Token())
		return nil
	}
	g, err := stix.ParseBundle(c.raw)
	if err != nil {
		c.fail(err)
		return err
	}
	c.root = g
	prev := c.state.Mode
	c.state.Mode = mode
	if err := c.rebuild(); err != nil {
		c.state.Mode = prev
		return err
	}
	c.location.Replace(mode.Token())
	return nil
}

// NavigateToken is Navigate for a raw location token.
func (c *Controller) NavigateToken(token string) error {
	mode, ok := model.ParseMode(token)
	if !ok {
		err := &model.TransitionError{From: c.state.Mode, To: c.state.Mode, Reason: fmt.Sprintf("unknown mode %q", token)}
		c.fail(err)
		return err
	}
	return c.Navigate(mode)
}

// DrillDown switches to n's sub graph. The navigation token is cleared.
func (c *Controller) DrillDown(n *model.Node) error {
	if n == nil || n.SubGraph == nil {
		err := &model.TransitionError{From: c.state.Mode, To: model.SubGraph, Reason: "node owns no sub graph"}
		c.fail(err)
		return err
	}
	if err := c.mount(model.SubGraph, n.SubGraph, n); err != nil {
		return err
	}
	c.location.Replace("")
	debug.Log("view: drilled into %s", n.ID)
	return nil
}

func (c *Controller) rebuild() error {
	if c.root == nil {
		return nil
	}
	switch c.state.Mode {
	case model.ActivityThread:
		return c.mount(model.ActivityThread, activityGraph(c.root), nil)
	case model.AttackGraph:
		return c.mount(model.AttackGraph, c.root, nil)
	default:
		return c.mount(c.state.Mode, nil, c.state.Selection)
	}
}

// activityGraph keeps the attack patterns that belong to a grouping.
func activityGraph(root *model.Graph) *model.Graph {
	return root.Filter(func(n *model.Node) bool {
		return n.Type == stix.TypeAttackPattern && n.GroupingID != ""
	})
}

// Teardown unmounts the current view: the simulation is cancelled, every
// scene element removed and the bound graph's layout discarded.
func (c *Controller) Teardown() {
	if !c.mounted {
		return
	}
	defer debug.LogEnterExit("view.Teardown")()
	if c.handle != nil {
		c.handle.Cancel()
	}
	c.sim, c.handle = nil, nil
	c.activity, c.axis = nil, nil
	removed := c.scene.Clear()
	if c.state.Bound != nil {
		c.state.Bound.ResetLayout()
	}
	c.state.Bound = nil
	c.mounted = false
	c.gen++
	debug.Log("view: removed %d elements", removed)
}

// Step advances the simulation of mount gen by one tick. It reports whether
// another step should be scheduled. Steps for any other generation are
// dropped.
func (c *Controller) Step(gen uint64) bool {
	if gen != c.gen || c.sim == nil || !c.handle.Alive() {
		return false
	}
	return c.sim.Step()
}

// Running reports whether the mounted simulation wants more steps.
func (c *Controller) Running() bool {
	return c.sim != nil && c.handle.Alive() && c.sim.Running()
}

// Settle steps the simulation to rest, at most maxSteps times (0 = no limit).
// Used by headless hosts.
func (c *Controller) Settle(maxSteps int) int {
	if c.sim == nil {
		return 0
	}
	return c.sim.Run(maxSteps)
}
