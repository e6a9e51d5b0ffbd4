// Package scene is the retained set of visual elements for the mounted view.
//
// Every element id is prefixed with the identifier of the mount that created
// it, so elements of a torn-down mount can never be confused with fresh ones.
package scene

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/threatgraph/pkg/metrics"
	"github.com/vanderheijden86/threatgraph/pkg/model"
)

// Kind classifies an element.
type Kind int

const (
	KindAxis Kind = iota
	KindBand
	KindLink
	KindLinkLabel
	KindNode
	KindNodeLabel
	KindTooltip
	KindDetail
	KindHeading
	KindZoomSurface
)

var kindNames = [...]string{
	KindAxis:        "axis",
	KindBand:        "band",
	KindLink:        "link",
	KindLinkLabel:   "link-label",
	KindNode:        "node",
	KindNodeLabel:   "node-label",
	KindTooltip:     "tooltip",
	KindDetail:      "detail",
	KindHeading:     "heading",
	KindZoomSurface: "zoom-surface",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ClassFixed marks a pinned node.
const ClassFixed = "fixed"

// NodeLabelOffset is how far below its node a label is drawn.
const NodeLabelOffset = 20

// Element is one visual item. Geometry is in scene units; the viewport
// transform is applied by whoever draws the scene.
type Element struct {
	ID   string
	Kind Kind

	Node *model.Node
	Link *model.Link

	X, Y   float64
	X2, Y2 float64
	W, H   float64

	Title    string
	Subtitle string
	Text     string
	Fill     string
	Visible  bool

	classes map[string]bool
}

// Classed reports whether e carries class.
func (e *Element) Classed(class string) bool { return e.classes[class] }

// SetClass adds or removes class.
func (e *Element) SetClass(class string, on bool) {
	if on {
		if e.classes == nil {
			e.classes = make(map[string]bool)
		}
		e.classes[class] = true
		return
	}
	delete(e.classes, class)
}

// Scene holds the elements of one mount at a time.
type Scene struct {
	W, H  float64
	mount string
	order []*Element
	byID  map[string]*Element
}

// New returns an empty scene of logical size w×h.
func New(w, h float64) *Scene {
	return &Scene{W: w, H: h, byID: make(map[string]*Element)}
}

// Begin starts a new mount. The scene must already be empty.
func (s *Scene) Begin(mount string) error {
	if len(s.order) > 0 {
		return fmt.Errorf("scene: begin %s with %d elements of %s still mounted", mount, len(s.order), s.mount)
	}
	s.mount = mount
	return nil
}

// Mount returns the identifier of the current mount.
func (s *Scene) Mount() string { return s.mount }

// ID builds an element id for the current mount.
func (s *Scene) ID(kind Kind, key string) string {
	return s.mount + "/" + kind.String() + "/" + key
}

// Owns reports whether id was issued for the current mount.
func (s *Scene) Owns(id string) bool {
	return s.mount != "" && strings.HasPrefix(id, s.mount+"/")
}

// Add inserts e. Its id must belong to the current mount and be unused.
func (s *Scene) Add(e *Element) error {
	if !s.Owns(e.ID) {
		return fmt.Errorf("scene: element %s does not belong to mount %s", e.ID, s.mount)
	}
	if _, dup := s.byID[e.ID]; dup {
		return fmt.Errorf("scene: duplicate element %s", e.ID)
	}
	s.byID[e.ID] = e
	s.order = append(s.order, e)
	return nil
}

// Put inserts e, replacing any element with the same id.
func (s *Scene) Put(e *Element) error {
	s.Remove(e.ID)
	return s.Add(e)
}

// Find returns the element with the given id, or nil.
func (s *Scene) Find(id string) *Element { return s.byID[id] }

// Remove deletes the element with the given id.
func (s *Scene) Remove(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, e := range s.order {
		if e.ID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveKind deletes every element of kind and returns how many went.
func (s *Scene) RemoveKind(kind Kind) int {
	kept := s.order[:0]
	removed := 0
	for _, e := range s.order {
		if e.Kind == kind {
			delete(s.byID, e.ID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.order); i++ {
		s.order[i] = nil
	}
	s.order = kept
	return removed
}

// Clear removes every element and ends the mount.
func (s *Scene) Clear() int {
	n := len(s.order)
	s.order = nil
	s.byID = make(map[string]*Element)
	s.mount = ""
	return n
}

// Count returns the number of elements.
func (s *Scene) Count() int { return len(s.order) }

// CountKind returns the number of elements of kind.
func (s *Scene) CountKind(kind Kind) int {
	n := 0
	for _, e := range s.order {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Elements returns elements in insertion (draw) order.
func (s *Scene) Elements() []*Element { return s.order }

// ByKind returns the elements of kind in draw order.
func (s *Scene) ByKind(kind Kind) []*Element {
	var out []*Element
	for _, e := range s.order {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// NodeElement returns the element drawing n, or nil.
func (s *Scene) NodeElement(n *model.Node) *Element {
	return s.byID[s.ID(KindNode, n.ID)]
}

// Sync copies node and link positions into their elements. Called after every
// layout step and after a reprojection.
func (s *Scene) Sync() {
	defer metrics.Timer(metrics.SceneSync)()
	for _, e := range s.order {
		switch e.Kind {
		case KindNode:
			e.X, e.Y = e.Node.X, e.Node.Y
			if e.Node.Pinned() {
				e.SetClass(ClassFixed, true)
			}
		case KindNodeLabel:
			e.X, e.Y = e.Node.X, e.Node.Y+NodeLabelOffset
		case KindLink:
			e.X, e.Y = e.Link.Source.X, e.Link.Source.Y
			e.X2, e.Y2 = e.Link.Target.X, e.Link.Target.Y
		case KindLinkLabel:
			src, tgt := e.Link.Source, e.Link.Target
			e.X = src.X + (tgt.X-src.X)/2
			e.Y = src.Y + (tgt.Y-src.Y)/2
		}
	}
}
