package model

// Node is a laid-out graph vertex.
type Node struct {
	ID         string
	Type       string
	Data       Object
	GroupingID string
	SubGraph   *Graph

	// Layout state. X and Y are defined once the node has been placed.
	X, Y   float64
	VX, VY float64

	pin    *pin
	placed bool
}

type pin struct{ x, y float64 }

// Pin fixes the node at (x, y) on both axes.
func (n *Node) Pin(x, y float64) {
	n.pin = &pin{x: x, y: y}
}

// Unpin releases both axes.
func (n *Node) Unpin() {
	n.pin = nil
}

// Fixed reports the pinned position. ok is false when the node moves freely.
func (n *Node) Fixed() (fx, fy float64, ok bool) {
	if n.pin == nil {
		return 0, 0, false
	}
	return n.pin.x, n.pin.y, true
}

// Pinned reports whether the node is pinned.
func (n *Node) Pinned() bool { return n.pin != nil }

// Placed reports whether a layout has assigned X and Y.
func (n *Node) Placed() bool { return n.placed }

// Place records a layout-assigned position.
func (n *Node) Place(x, y float64) {
	n.X, n.Y = x, y
	n.placed = true
}

// Description is the tooltip summary supplied by the payload.
func (n *Node) Description() string {
	return n.Data.String("description")
}
