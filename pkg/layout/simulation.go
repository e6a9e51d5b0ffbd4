// Package layout assigns scene positions to graph nodes: an iterative force
// simulation whose positions are clamped every step by a per-mode Policy, and
// an analytic placement for the activity-thread view.
package layout

import (
	"math"

	"github.com/vanderheijden86/threatgraph/pkg/debug"
	"github.com/vanderheijden86/threatgraph/pkg/metrics"
	"github.com/vanderheijden86/threatgraph/pkg/model"

	"gonum.org/v1/gonum/spatial/r2"
)

// Defaults match the classic d3-force schedule: about 300 steps from alpha 1
// down to AlphaMin.
const (
	DefaultAlphaMin      = 0.001
	DefaultVelocityDecay = 0.4
	DefaultLinkDistance  = 60
)

type runState int

const (
	idle runState = iota
	running
	cancelled
)

// Simulation is a cooperative force simulation. It never schedules itself;
// the host calls Step until it returns false.
type Simulation struct {
	nodes  []*model.Node
	links  []*model.Link
	forces []Force
	policy Policy

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64

	origin r2.Vec
	state  runState
	ticks  int
	onTick func()
	j      jiggler
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithForce adds a force. Forces run in the order given.
func WithForce(f Force) Option {
	return func(s *Simulation) { s.forces = append(s.forces, f) }
}

// WithAlphaMin sets the energy below which the run stops.
func WithAlphaMin(v float64) Option {
	return func(s *Simulation) {
		if v > 0 && v < 1 {
			s.alphaMin = v
		}
	}
}

// WithVelocityDecay sets the fraction of velocity lost each step.
func WithVelocityDecay(v float64) Option {
	return func(s *Simulation) {
		if v >= 0 && v <= 1 {
			s.velocityDecay = 1 - v
		}
	}
}

// WithOrigin sets where unplaced nodes are seeded.
func WithOrigin(x, y float64) Option {
	return func(s *Simulation) { s.origin = r2.Vec{X: x, Y: y} }
}

// WithOnTick registers a callback run after every live step.
func WithOnTick(fn func()) Option {
	return func(s *Simulation) { s.onTick = fn }
}

// New prepares a simulation over g. Links are resolved first; an unresolved
// endpoint is returned as a *model.LinkResolutionError and nothing is moved.
func New(g *model.Graph, policy Policy, opts ...Option) (*Simulation, error) {
	if err := g.ResolveLinks(); err != nil {
		return nil, err
	}
	s := &Simulation{
		nodes:         g.Nodes,
		links:         g.Links,
		policy:        policy,
		alpha:         1,
		alphaMin:      DefaultAlphaMin,
		velocityDecay: 1 - DefaultVelocityDecay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.alphaDecay = 1 - math.Pow(s.alphaMin, 1.0/300)
	s.seed()
	for _, f := range s.forces {
		f.Init(s.nodes, s.links, &s.j)
	}
	return s, nil
}

// seed places unplaced nodes on a phyllotaxis spiral around the origin.
func (s *Simulation) seed() {
	initialAngle := math.Pi * (3 - math.Sqrt(5))
	for i, n := range s.nodes {
		if fx, fy, ok := n.Fixed(); ok {
			n.Place(fx, fy)
		} else if !n.Placed() {
			r := 10 * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			n.Place(s.origin.X+r*math.Cos(a), s.origin.Y+r*math.Sin(a))
		}
		s.constrain(n)
	}
}

// Handle is the cancellation token returned by Start.
type Handle struct {
	sim *Simulation
}

// Cancel stops the simulation for good. Later Step and Restart calls are
// no-ops, so a callback that outlives its mount cannot touch the nodes.
func (h *Handle) Cancel() {
	if h == nil || h.sim == nil || h.sim.state == cancelled {
		return
	}
	h.sim.state = cancelled
	debug.Log("layout: simulation cancelled after %d ticks", h.sim.ticks)
}

// Alive reports whether the simulation has not been cancelled.
func (h *Handle) Alive() bool {
	return h != nil && h.sim != nil && h.sim.state != cancelled
}

// Start begins a run and returns its cancellation handle.
func (s *Simulation) Start() *Handle {
	if s.state != cancelled {
		s.state = running
		debug.Log("layout: simulation started with %d nodes, %d links", len(s.nodes), len(s.links))
	}
	return &Handle{sim: s}
}

// Restart reheats the simulation to full energy. It reports true when the
// simulation was idle and the caller must schedule steps again; a restart
// during an active run merges into it.
func (s *Simulation) Restart() bool {
	if s.state == cancelled {
		return false
	}
	s.alpha = 1
	if s.state == running {
		return false
	}
	s.state = running
	return true
}

// Running reports whether further steps are pending.
func (s *Simulation) Running() bool { return s.state == running }

// Alpha returns the current energy.
func (s *Simulation) Alpha() float64 { return s.alpha }

// Ticks returns the number of steps taken.
func (s *Simulation) Ticks() int { return s.ticks }

// Nodes returns the simulated nodes.
func (s *Simulation) Nodes() []*model.Node { return s.nodes }

// Step advances one tick. It returns false once the run has cooled below
// AlphaMin or the simulation was cancelled; in both cases nothing is mutated.
func (s *Simulation) Step() bool {
	if s.state != running {
		return false
	}
	defer metrics.Timer(metrics.LayoutTick)()

	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	for _, f := range s.forces {
		f.Apply(s.alpha)
	}
	for _, n := range s.nodes {
		if fx, fy, ok := n.Fixed(); ok {
			n.X, n.Y = fx, fy
			n.VX, n.VY = 0, 0
		} else {
			n.VX *= s.velocityDecay
			n.VY *= s.velocityDecay
			n.X += n.VX
			n.Y += n.VY
		}
		s.constrain(n)
	}
	s.ticks++
	if s.onTick != nil {
		s.onTick()
	}
	if s.alpha < s.alphaMin {
		s.state = idle
		return false
	}
	return true
}

func (s *Simulation) constrain(n *model.Node) {
	if s.policy == nil {
		return
	}
	p := s.policy.Clamp(n)
	n.Place(p.X, p.Y)
}

// Run steps until the simulation cools, is cancelled, or maxSteps is hit
// (0 means no limit). It returns the number of steps taken.
func (s *Simulation) Run(maxSteps int) int {
	defer metrics.Timer(metrics.LayoutConverge)()
	start := s.ticks
	for s.Step() {
		if maxSteps > 0 && s.ticks-start >= maxSteps {
			break
		}
	}
	return s.ticks - start
}
