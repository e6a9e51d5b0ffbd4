// Package stix turns a STIX 2.1 bundle into the node/link graph rendered by
// the view controller, and classifies nodes into tactic columns and
// diamond-model layers.
package stix

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threatgraph/pkg/debug"
	"github.com/vanderheijden86/threatgraph/pkg/metrics"
	"github.com/vanderheijden86/threatgraph/pkg/model"
)

// STIX object types the builder treats specially.
const (
	TypeBundle        = "bundle"
	TypeGrouping      = "grouping"
	TypeRelationship  = "relationship"
	TypeAttackPattern = "attack-pattern"
)

// Meta objects carry no graph meaning and are skipped.
var metaTypes = map[string]bool{
	"marking-definition":   true,
	"language-content":     true,
	"extension-definition": true,
}

// Bundle is the decoded envelope. Objects stay opaque maps.
type Bundle struct {
	Type    string         `json:"type" validate:"required,eq=bundle"`
	ID      string         `json:"id" validate:"required"`
	Objects []model.Object `json:"objects" validate:"required"`
}

// Decode parses raw bundle JSON without validating it.
func Decode(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return &b, nil
}

// ParseBundle decodes raw and builds the root graph.
//
// Root nodes are every domain object except groupings and relationships.
// Relationships become links. Each grouping gets a sub graph made of fresh
// copies of the objects it references plus the relationships among them;
// attack patterns owned by a grouping carry that sub graph for drill-down.
func ParseBundle(raw []byte) (*model.Graph, error) {
	defer metrics.Timer(metrics.BundleParse)()

	b, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return Build(b), nil
}

// Build constructs the root graph from an already decoded bundle.
func Build(b *Bundle) *model.Graph {
	g := &model.Graph{}
	var rels []model.Object
	for _, obj := range b.Objects {
		typ := obj.String("type")
		switch {
		case metaTypes[typ]:
			continue
		case typ == TypeRelationship:
			rels = append(rels, obj)
		case typ == TypeGrouping:
			g.Groupings = append(g.Groupings, newNode(obj))
		default:
			g.Nodes = append(g.Nodes, newNode(obj))
		}
	}

	groupings := make(map[string]bool, len(g.Groupings))
	for _, gr := range g.Groupings {
		groupings[gr.ID] = true
	}
	for _, r := range rels {
		src, tgt := r.String("source_ref"), r.String("target_ref")
		if groupings[src] || groupings[tgt] {
			debug.Log("stix: relationship %s touches a grouping, not drawn", r.String("id"))
			continue
		}
		g.Links = append(g.Links, newLink(r))
	}

	for _, gr := range g.Groupings {
		sub := &model.Graph{Groupings: []*model.Node{gr}}
		members := make(map[string]bool)
		for _, ref := range gr.Data.Strings("object_refs") {
			n := g.NodeByID(ref)
			if n == nil {
				continue
			}
			if n.GroupingID == "" {
				n.GroupingID = gr.ID
			}
			members[ref] = true
			sub.Nodes = append(sub.Nodes, &model.Node{
				ID:         n.ID,
				Type:       n.Type,
				Data:       n.Data,
				GroupingID: gr.ID,
			})
		}
		for _, r := range rels {
			if members[r.String("source_ref")] && members[r.String("target_ref")] {
				sub.Links = append(sub.Links, newLink(r))
			}
		}
		gr.SubGraph = sub
	}

	for _, n := range g.Nodes {
		if n.Type != TypeAttackPattern || n.GroupingID == "" {
			continue
		}
		if gr := g.GroupingByID(n.GroupingID); gr != nil {
			n.SubGraph = gr.SubGraph
		}
	}

	debug.Log("stix: built graph with %d nodes, %d links, %d groupings",
		len(g.Nodes), len(g.Links), len(g.Groupings))
	return g
}

func newNode(obj model.Object) *model.Node {
	return &model.Node{
		ID:   obj.String("id"),
		Type: obj.String("type"),
		Data: obj,
	}
}

func newLink(rel model.Object) *model.Link {
	return &model.Link{
		SourceID: rel.String("source_ref"),
		TargetID: rel.String("target_ref"),
		Relation: rel.String("relationship_type"),
	}
}
