package layout

import (
	"math"

	"github.com/vanderheijden86/threatgraph/pkg/model"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
)

// Force contributes velocity (or, for Center, position) changes each step.
type Force interface {
	Init(nodes []*model.Node, links []*model.Link, j *jiggler)
	Apply(alpha float64)
}

// ManyBody is the pairwise charge between all nodes, approximated with a
// Barnes-Hut quadtree. Negative strength repels.
type ManyBody struct {
	Strength    float64
	Theta       float64
	DistanceMin float64

	nodes  []*model.Node
	bodies []barneshut.Particle2
	j      *jiggler
}

// NewManyBody returns a charge force with the given strength.
func NewManyBody(strength float64) *ManyBody {
	return &ManyBody{Strength: strength, Theta: 0.9, DistanceMin: 1}
}

type body struct{ n *model.Node }

func (b *body) Coord2() r2.Vec { return r2.Vec{X: b.n.X, Y: b.n.Y} }
func (b *body) Mass() float64  { return 1 }

func (m *ManyBody) Init(nodes []*model.Node, _ []*model.Link, j *jiggler) {
	m.nodes = nodes
	m.j = j
	m.bodies = make([]barneshut.Particle2, len(nodes))
	for i, n := range nodes {
		m.bodies[i] = &body{n: n}
	}
}

func (m *ManyBody) Apply(alpha float64) {
	if len(m.nodes) < 2 {
		return
	}
	m.separateCoincident()
	pair := m.pairForce(alpha)

	plane, err := barneshut.NewPlane(m.bodies)
	if err != nil {
		m.applyExact(pair)
		return
	}
	for i, b := range m.bodies {
		f := plane.ForceOn(b, m.Theta, pair)
		m.nodes[i].VX += f.X
		m.nodes[i].VY += f.Y
	}
}

func (m *ManyBody) applyExact(pair barneshut.Force2) {
	for i, a := range m.bodies {
		var f r2.Vec
		for _, b := range m.bodies {
			f = r2.Add(f, pair(a, b, 1, 1, r2.Sub(b.Coord2(), a.Coord2())))
		}
		m.nodes[i].VX += f.X
		m.nodes[i].VY += f.Y
	}
}

// pairForce scales the separation v by strength·mass·alpha/d², which moves a
// node by strength·alpha/d along the separation.
func (m *ManyBody) pairForce(alpha float64) barneshut.Force2 {
	dmin2 := m.DistanceMin * m.DistanceMin
	return func(p1, p2 barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
		if p2 != nil && p1 == p2 {
			return r2.Vec{}
		}
		l := v.X*v.X + v.Y*v.Y
		if l == 0 {
			return r2.Vec{}
		}
		if l < dmin2 {
			l = math.Sqrt(dmin2 * l)
		}
		return r2.Scale(m.Strength*m2*alpha/l, v)
	}
}

// separateCoincident nudges nodes that share a position so the quadtree never
// has to split two identical points.
func (m *ManyBody) separateCoincident() {
	seen := make(map[r2.Vec]bool, len(m.nodes))
	for _, n := range m.nodes {
		p := r2.Vec{X: n.X, Y: n.Y}
		for seen[p] {
			n.X += m.j.next()
			n.Y += m.j.next()
			p = r2.Vec{X: n.X, Y: n.Y}
		}
		seen[p] = true
	}
}

// Center translates all nodes so their mean position sits at (X, Y).
type Center struct {
	X, Y     float64
	Strength float64

	nodes []*model.Node
}

// NewCenter returns a centering force at (x, y).
func NewCenter(x, y float64) *Center {
	return &Center{X: x, Y: y, Strength: 1}
}

func (c *Center) Init(nodes []*model.Node, _ []*model.Link, _ *jiggler) {
	c.nodes = nodes
}

func (c *Center) Apply(float64) {
	if len(c.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range c.nodes {
		sx += n.X
		sy += n.Y
	}
	sx = (sx/float64(len(c.nodes)) - c.X) * c.Strength
	sy = (sy/float64(len(c.nodes)) - c.Y) * c.Strength
	for _, n := range c.nodes {
		n.X -= sx
		n.Y -= sy
	}
}

// LinkSpring pulls linked nodes toward Distance apart. Strength and bias
// follow node degree so hubs are not yanked around by their leaves.
type LinkSpring struct {
	Distance   float64
	Iterations int

	links     []*model.Link
	strengths []float64
	bias      []float64
	j         *jiggler
}

// NewLinkSpring returns a spring force with the given rest length.
func NewLinkSpring(distance float64) *LinkSpring {
	return &LinkSpring{Distance: distance, Iterations: 1}
}

func (s *LinkSpring) Init(_ []*model.Node, links []*model.Link, j *jiggler) {
	s.links = links
	s.j = j
	count := make(map[*model.Node]int, len(links)*2)
	for _, l := range links {
		count[l.Source]++
		count[l.Target]++
	}
	s.strengths = make([]float64, len(links))
	s.bias = make([]float64, len(links))
	for i, l := range links {
		cs, ct := count[l.Source], count[l.Target]
		s.strengths[i] = 1 / float64(min(cs, ct))
		s.bias[i] = float64(cs) / float64(cs+ct)
	}
}

func (s *LinkSpring) Apply(alpha float64) {
	iters := s.Iterations
	if iters < 1 {
		iters = 1
	}
	for k := 0; k < iters; k++ {
		for i, l := range s.links {
			src, tgt := l.Source, l.Target
			x := tgt.X + tgt.VX - src.X - src.VX
			if x == 0 {
				x = s.j.next()
			}
			y := tgt.Y + tgt.VY - src.Y - src.VY
			if y == 0 {
				y = s.j.next()
			}
			d := math.Sqrt(x*x + y*y)
			d = (d - s.Distance) / d * alpha * s.strengths[i]
			x *= d
			y *= d
			b := s.bias[i]
			tgt.VX -= x * b
			tgt.VY -= y * b
			src.VX += x * (1 - b)
			src.VY += y * (1 - b)
		}
	}
}

// jiggler produces tiny deterministic offsets for degenerate geometry.
type jiggler struct{ state uint32 }

func (j *jiggler) next() float64 {
	// Numerical Recipes LCG
	j.state = 1664525*j.state + 1013904223
	return (float64(j.state)/4294967296 - 0.5) * 1e-6
}
