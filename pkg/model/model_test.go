package model_test

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/threatgraph/pkg/model"
)

func TestResolveLinks(t *testing.T) {
	a := &model.Node{ID: "a"}
	b := &model.Node{ID: "b"}
	g := &model.Graph{
		Nodes: []*model.Node{a, b},
		Links: []*model.Link{{SourceID: "a", TargetID: "b", Relation: "uses"}},
	}
	if err := g.ResolveLinks(); err != nil {
		t.Fatalf("ResolveLinks: %v", err)
	}
	if g.Links[0].Source != a || g.Links[0].Target != b {
		t.Errorf("link not bound to nodes: %+v", g.Links[0])
	}
}

func TestResolveLinksMissingEndpoint(t *testing.T) {
	g := &model.Graph{
		Nodes: []*model.Node{{ID: "a"}},
		Links: []*model.Link{
			{SourceID: "a", TargetID: "a"},
			{SourceID: "a", TargetID: "ghost"},
		},
	}
	err := g.ResolveLinks()
	if !errors.Is(err, model.ErrLinkResolution) {
		t.Fatalf("expected link resolution error, got %v", err)
	}
	var lre *model.LinkResolutionError
	if !errors.As(err, &lre) {
		t.Fatalf("expected *LinkResolutionError, got %T", err)
	}
	if lre.Index != 1 || lre.Endpoint != "target" || lre.NodeID != "ghost" {
		t.Errorf("unexpected error detail: %+v", lre)
	}
	if len(g.Links) != 2 {
		t.Errorf("links must not be dropped, have %d", len(g.Links))
	}
}

func TestPinBothOrNeither(t *testing.T) {
	n := &model.Node{ID: "n"}
	if _, _, ok := n.Fixed(); ok {
		t.Fatal("new node should not be pinned")
	}
	n.Pin(10, 20)
	fx, fy, ok := n.Fixed()
	if !ok || fx != 10 || fy != 20 {
		t.Errorf("Fixed() = %v,%v,%v want 10,20,true", fx, fy, ok)
	}
	n.Unpin()
	if _, _, ok := n.Fixed(); ok || n.Pinned() {
		t.Error("unpin should clear both axes")
	}
}

func TestResetLayout(t *testing.T) {
	n := &model.Node{ID: "n"}
	n.Place(5, 6)
	n.VX = 3
	n.Pin(1, 1)
	g := &model.Graph{Nodes: []*model.Node{n}}
	g.ResetLayout()
	if n.Placed() || n.Pinned() || n.X != 0 || n.VX != 0 {
		t.Errorf("layout not reset: %+v", n)
	}
}

func TestFilterKeepsResolvableLinks(t *testing.T) {
	g := &model.Graph{
		Nodes: []*model.Node{{ID: "a", Type: "attack-pattern"}, {ID: "b", Type: "malware"}, {ID: "c", Type: "attack-pattern"}},
		Links: []*model.Link{{SourceID: "a", TargetID: "b"}, {SourceID: "a", TargetID: "c"}},
	}
	out := g.Filter(func(n *model.Node) bool { return n.Type == "attack-pattern" })
	if len(out.Nodes) != 2 || len(out.Links) != 1 {
		t.Fatalf("got %d nodes %d links, want 2 and 1", len(out.Nodes), len(out.Links))
	}
	if out.Links[0] == g.Links[1] {
		t.Error("filtered links should be copies")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		token string
		want  model.Mode
		ok    bool
	}{
		{"activity_thread", model.ActivityThread, true},
		{"#attack_graph", model.AttackGraph, true},
		{"sub_attack_graph", model.SubGraph, true},
		{"", model.AttackGraph, false},
		{"nonsense", model.AttackGraph, false},
	}
	for _, tt := range tests {
		got, ok := model.ParseMode(tt.token)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = %v,%v want %v,%v", tt.token, got, ok, tt.want, tt.ok)
		}
	}
	for _, m := range model.AllModes {
		back, ok := model.ParseMode(m.Token())
		if !ok || back != m {
			t.Errorf("token round trip failed for %v", m)
		}
	}
}

func TestObjectAccessors(t *testing.T) {
	o := model.Object{
		"name":        "Spearphishing",
		"object_refs": []any{"a", 3, "b"},
	}
	if o.String("name") != "Spearphishing" || o.String("missing") != "" {
		t.Error("String accessor mismatch")
	}
	refs := o.Strings("object_refs")
	if len(refs) != 2 || refs[1] != "b" {
		t.Errorf("Strings = %v", refs)
	}
	var nilObj model.Object
	if nilObj.String("x") != "" || nilObj.Strings("x") != nil {
		t.Error("nil object should be empty")
	}
}
