// Package model defines the graph, node and mode types shared by the layout,
// viewport, interaction and controller packages.
package model

// Object is the opaque STIX payload carried by a node. The engine never
// interprets it; the stix and detail packages do.
type Object map[string]any

// String returns the string property key, or "" when absent or not a string.
func (o Object) String(key string) string {
	if o == nil {
		return ""
	}
	s, _ := o[key].(string)
	return s
}

// Strings returns the string slice property key.
func (o Object) Strings(key string) []string {
	if o == nil {
		return nil
	}
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Graph is a node/link graph produced by the bundle parser. Only the layout
// fields of its nodes are ever mutated.
type Graph struct {
	Nodes []*Node
	Links []*Link

	// Groupings are the activity-thread owners referenced by Node.GroupingID.
	// They carry timestamps for the activity view and are never laid out.
	Groupings []*Node
}

// Link connects two nodes of the same graph.
type Link struct {
	SourceID string
	TargetID string
	Relation string

	// Source and Target are filled by ResolveLinks.
	Source *Node
	Target *Node
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	if g == nil {
		return nil
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// GroupingByID returns the grouping with the given id, or nil.
func (g *Graph) GroupingByID(id string) *Node {
	if g == nil {
		return nil
	}
	for _, n := range g.Groupings {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// ResolveLinks binds every link's Source and Target to nodes of g. A link whose
// endpoint is not in g fails the whole resolution; links are never dropped.
func (g *Graph) ResolveLinks() error {
	if g == nil {
		return nil
	}
	index := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		index[n.ID] = n
	}
	for i, l := range g.Links {
		src, ok := index[l.SourceID]
		if !ok {
			return &LinkResolutionError{Index: i, Endpoint: "source", NodeID: l.SourceID}
		}
		tgt, ok := index[l.TargetID]
		if !ok {
			return &LinkResolutionError{Index: i, Endpoint: "target", NodeID: l.TargetID}
		}
		l.Source = src
		l.Target = tgt
	}
	return nil
}

// ResetLayout discards every layout-assigned field. Called when a mode is torn
// down so positions never leak into the next mount.
func (g *Graph) ResetLayout() {
	if g == nil {
		return
	}
	for _, n := range g.Nodes {
		n.X, n.Y, n.VX, n.VY = 0, 0, 0, 0
		n.Unpin()
		n.placed = false
	}
}

// Filter returns a new graph holding the nodes accepted by keep and the links
// whose endpoints both survived. Node pointers are shared with g.
func (g *Graph) Filter(keep func(*Node) bool) *Graph {
	out := &Graph{Groupings: g.Groupings}
	kept := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if keep(n) {
			out.Nodes = append(out.Nodes, n)
			kept[n.ID] = true
		}
	}
	for _, l := range g.Links {
		if kept[l.SourceID] && kept[l.TargetID] {
			cp := *l
			out.Links = append(out.Links, &cp)
		}
	}
	return out
}
