package view

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/threatgraph/pkg/config"
	"github.com/vanderheijden86/threatgraph/pkg/detail"
	"github.com/vanderheijden86/threatgraph/pkg/interact"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
	"github.com/vanderheijden86/threatgraph/pkg/stix"
	"github.com/vanderheijden86/threatgraph/pkg/testutil"
)

type stubDetail struct{ calls int }

func (s *stubDetail) Render(data model.Object, title, body, typ detail.Slot) error {
	s.calls++
	title.SetText(detail.Title(data))
	body.SetText(detail.Markdown(data))
	typ.SetText(data.String("type"))
	return nil
}

func newController(t *testing.T, token string) (*Controller, *MemoryLocation) {
	t.Helper()
	loc := NewMemoryLocation(token)
	c := New(Options{
		Config:   config.DefaultConfig(),
		Location: loc,
		Detail:   &stubDetail{},
		TimeZone: time.UTC,
	})
	return c, loc
}

func load(t *testing.T, c *Controller, raw []byte) {
	t.Helper()
	if err := c.Load(raw); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func nodeOfType(t *testing.T, g *model.Graph, typ string) *model.Node {
	t.Helper()
	for _, n := range g.Nodes {
		if n.Type == typ {
			return n
		}
	}
	t.Fatalf("no %s node in bound graph", typ)
	return nil
}

// assertOwned checks that every element belongs to the current mount and that
// no element of an earlier mount survived.
func assertOwned(t *testing.T, s *scene.Scene, stale []string) {
	t.Helper()
	for _, e := range s.Elements() {
		if !s.Owns(e.ID) {
			t.Errorf("element %s not owned by mount %s", e.ID, s.Mount())
		}
		for _, old := range stale {
			if strings.HasPrefix(e.ID, old+"/") {
				t.Errorf("element %s left over from mount %s", e.ID, old)
			}
		}
	}
	if n := s.CountKind(scene.KindTooltip); n > 1 {
		t.Errorf("%d tooltips mounted", n)
	}
	if n := s.CountKind(scene.KindDetail); n > 1 {
		t.Errorf("%d detail overlays mounted", n)
	}
}

func TestInitialMode(t *testing.T) {
	tests := []struct {
		token string
		want  model.Mode
	}{
		{"", model.AttackGraph},
		{"activity_thread", model.ActivityThread},
		{"#attack_graph", model.AttackGraph},
		{"bogus", model.AttackGraph},
	}
	for _, tt := range tests {
		c, _ := newController(t, tt.token)
		if got := c.Mode(); got != tt.want {
			t.Errorf("token %q: mode = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestLoadMountsAttackGraph(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())

	st := c.State()
	if st.Mode != model.AttackGraph {
		t.Fatalf("mode = %v", st.Mode)
	}
	testutil.AssertNodeCount(t, st.Bound, 2)
	if len(st.Bound.Links) != 1 {
		t.Fatalf("links = %d, want 1", len(st.Bound.Links))
	}
	if got := c.ModeLabel(); got != "Current Graph: Attack Graph" {
		t.Errorf("ModeLabel = %q", got)
	}

	s := c.Scene()
	counts := map[scene.Kind]int{
		scene.KindZoomSurface: 1,
		scene.KindBand:        len(stix.Tactics),
		scene.KindAxis:        len(stix.Tactics),
		scene.KindLink:        1,
		scene.KindLinkLabel:   1,
		scene.KindNode:        2,
		scene.KindNodeLabel:   2,
		scene.KindTooltip:     1,
		scene.KindHeading:     0,
		scene.KindDetail:      0,
	}
	for kind, want := range counts {
		if got := s.CountKind(kind); got != want {
			t.Errorf("%s elements = %d, want %d", kind, got, want)
		}
	}
	if !c.Running() {
		t.Error("simulation should be running after mount")
	}
	if c.Status().Kind != StatusNone {
		t.Errorf("status = %+v, want none", c.Status())
	}
}

func TestAttackGraphSettlesInColumns(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickThreads(3, 4))
	steps := c.Settle(0)
	if steps == 0 || c.Running() {
		t.Fatalf("Settle ran %d steps, running=%v", steps, c.Running())
	}
	s := c.Scene()
	testutil.AssertInBounds(t, c.State().Bound.Nodes, s.W, s.H)

	w := s.W / float64(len(stix.Tactics))
	for _, n := range c.State().Bound.Nodes {
		col := stix.Column(n)
		if col == "" {
			continue
		}
		i := indexOf(stix.Tactics, col)
		testutil.AssertWithin(t, n.ID, n.X, w*float64(i), w*float64(i+1))
	}
	// Elements follow their nodes.
	for _, e := range s.ByKind(scene.KindNode) {
		if e.X != e.Node.X || e.Y != e.Node.Y {
			t.Errorf("%s drawn at (%g,%g), node at (%g,%g)", e.ID, e.X, e.Y, e.Node.X, e.Node.Y)
		}
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func TestEndToEndDrillDown(t *testing.T) {
	c, loc := newController(t, "attack_graph")
	load(t, c, testutil.QuickMinimal())
	c.Settle(0)

	ap := nodeOfType(t, c.State().Bound, stix.TypeAttackPattern)
	if !interact.Qualifies(c.Mode(), ap) {
		t.Fatal("attack pattern should qualify for drill-down")
	}
	before := c.Scene().Mount()
	if err := c.Dispatch(interact.Click, interact.Event{X: ap.X, Y: ap.Y}, ap); err != nil {
		t.Fatalf("click: %v", err)
	}

	st := c.State()
	if st.Mode != model.SubGraph {
		t.Fatalf("mode = %v, want SubGraph", st.Mode)
	}
	if st.Selection != ap || st.Bound != ap.SubGraph {
		t.Error("sub graph should be bound to the clicked node")
	}
	if loc.Token() != "" {
		t.Errorf("token = %q, want cleared", loc.Token())
	}
	if got := c.ModeLabel(); got != "Current Graph: Sub-Graph" {
		t.Errorf("ModeLabel = %q", got)
	}
	s := c.Scene()
	if s.Mount() == before {
		t.Error("drill-down should start a new mount")
	}
	assertOwned(t, s, []string{before})
	heading := s.ByKind(scene.KindHeading)
	if len(heading) != 1 || heading[0].Text != "Spearphishing Attachment" {
		t.Errorf("heading = %+v", heading)
	}
	if got := s.CountKind(scene.KindBand); got != len(stix.DiamondCategories) {
		t.Errorf("bands = %d", got)
	}

	c.Settle(0)
	for _, n := range st.Bound.Nodes {
		layer, ok := stix.DiamondLayer(n)
		if !ok {
			continue
		}
		h := s.H / float64(len(stix.DiamondCategories))
		testutil.AssertWithin(t, n.ID, n.Y, h*float64(layer), h*float64(layer+1))
	}

	// In the sub graph a click opens the detail overlay instead.
	mw := nodeOfType(t, st.Bound, "malware")
	if err := c.Dispatch(interact.Click, interact.Event{}, mw); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != model.SubGraph {
		t.Error("click in sub graph must not change mode")
	}
	details := s.ByKind(scene.KindDetail)
	if len(details) != 1 || details[0].Title != "Emotet" {
		t.Errorf("details = %+v", details)
	}
}

func TestTeardownCompleteness(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickThreads(2, 3))

	var mounts []string
	step := func(name string, fn func() error) {
		t.Helper()
		mounts = append(mounts, c.Scene().Mount())
		if err := fn(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		assertOwned(t, c.Scene(), mounts)
	}

	step("drill down", func() error {
		return c.DrillDown(nodeOfType(t, c.State().Bound, stix.TypeAttackPattern))
	})
	step("open detail", func() error {
		n := c.State().Bound.Nodes[0]
		if err := c.Dispatch(interact.Click, interact.Event{}, n); err != nil {
			return err
		}
		mounts = mounts[:len(mounts)-1]
		if c.Scene().CountKind(scene.KindDetail) != 1 {
			t.Error("detail overlay should be open")
		}
		return nil
	})
	step("activity thread", func() error { return c.Navigate(model.ActivityThread) })
	if c.Scene().CountKind(scene.KindDetail) != 0 {
		t.Error("detail overlay survived teardown")
	}
	step("attack graph", func() error { return c.Navigate(model.AttackGraph) })
	step("reload", func() error { return c.Load(testutil.QuickMinimal()) })
}

func TestTeardownResetsLayoutAndCancels(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	c.Step(c.Generation())
	root := c.State().Bound
	gen := c.Generation()

	ap := nodeOfType(t, root, stix.TypeAttackPattern)
	if err := c.DrillDown(ap); err != nil {
		t.Fatal(err)
	}
	if c.Generation() == gen {
		t.Fatal("generation should advance on remount")
	}
	for _, n := range root.Nodes {
		if n.Placed() || n.Pinned() {
			t.Errorf("%s kept layout after teardown", n.ID)
		}
	}
	if c.Step(gen) {
		t.Error("step for a torn-down mount should be dropped")
	}
	for _, n := range root.Nodes {
		if n.Placed() {
			t.Errorf("stale step moved %s", n.ID)
		}
	}
	if !c.Step(c.Generation()) {
		t.Error("step for the current mount should run")
	}
}

func TestLoadErrorKeepsPreviousView(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	mount := c.Scene().Mount()
	bound := c.State().Bound

	err := c.Load([]byte(`{"type":"bundle"`))
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if c.Status().Kind != StatusError {
		t.Errorf("status = %+v, want error", c.Status())
	}
	if c.Scene().Mount() != mount || c.State().Bound != bound {
		t.Error("previous view should stay mounted")
	}

	load(t, c, testutil.QuickMinimal())
	if c.Status().Kind != StatusNone {
		t.Errorf("status not cleared: %+v", c.Status())
	}
}

func TestLoadWarningProceeds(t *testing.T) {
	gen := testutil.NewDefault()
	ap := gen.AttackPattern("Phishing", "initial-access")
	mw := gen.Named("malware", "Emotet")
	raw := gen.Bundle(ap, mw, gen.Relationship(ap, mw, "uses")).JSON()

	c, _ := newController(t, "")
	if err := c.Load(raw); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := c.Status()
	if st.Kind != StatusWarning || !strings.Contains(st.Text, "objects") {
		t.Errorf("status = %+v, want warning on objects", st)
	}
	if !c.Mounted() {
		t.Error("a warning must not block the rebuild")
	}
}

func TestLoadUnresolvedLinkFailsLoudly(t *testing.T) {
	gen := testutil.NewDefault()
	ap := gen.AttackPattern("Phishing", "initial-access")
	ghost := gen.Named("malware", "ghost")
	rel := gen.Relationship(ap, ghost, "uses")
	raw := gen.Bundle(gen.Grouping("T", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), ap), ap, rel).JSON()

	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	mount := c.Scene().Mount()

	err := c.Load(raw)
	var lre *model.LinkResolutionError
	if !errors.As(err, &lre) {
		t.Fatalf("err = %v, want LinkResolutionError", err)
	}
	if lre.NodeID != ghost["id"] {
		t.Errorf("unresolved id = %q", lre.NodeID)
	}
	if c.Status().Kind != StatusError {
		t.Errorf("status = %+v", c.Status())
	}
	if c.Scene().Mount() != mount {
		t.Error("previous view should stay mounted")
	}
}

func TestNavigateSubGraphWithoutOwner(t *testing.T) {
	c, loc := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	mount := c.Scene().Mount()

	err := c.Navigate(model.SubGraph)
	if !errors.Is(err, model.ErrTransition) {
		t.Fatalf("err = %v, want transition error", err)
	}
	if c.Mode() != model.AttackGraph || c.Scene().Mount() != mount {
		t.Error("prior mode should stay mounted")
	}
	if loc.Token() == model.SubGraph.Token() {
		t.Error("token should not change on a failed transition")
	}
}

func TestNavigateFailureKeepsToken(t *testing.T) {
	c, loc := newController(t, "attack_graph")
	load(t, c, testutil.QuickMinimal())
	mount := c.Scene().Mount()

	c.raw = []byte(`{"type":`)
	if err := c.Navigate(model.ActivityThread); err == nil {
		t.Fatal("expected a parse error")
	}
	if got := loc.Token(); got != model.AttackGraph.Token() {
		t.Errorf("token = %q, want %q", got, model.AttackGraph.Token())
	}
	if c.Mode() != model.AttackGraph || c.Scene().Mount() != mount {
		t.Error("prior mode should stay mounted")
	}
}

func TestNavigateBackToSubGraphReusesSelection(t *testing.T) {
	c, loc := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	ap := nodeOfType(t, c.State().Bound, stix.TypeAttackPattern)
	if err := c.DrillDown(ap); err != nil {
		t.Fatal(err)
	}
	sub := c.State().Bound

	if err := c.Navigate(model.AttackGraph); err != nil {
		t.Fatal(err)
	}
	if c.State().Bound == sub {
		t.Fatal("attack graph should bind the root graph")
	}
	if err := c.Navigate(model.SubGraph); err != nil {
		t.Fatal(err)
	}
	if c.State().Bound != sub {
		t.Error("sub graph should be reused")
	}
	if loc.Token() != "sub_attack_graph" {
		t.Errorf("token = %q", loc.Token())
	}
}

func TestLoadInSubGraphResetsMode(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	if err := c.DrillDown(nodeOfType(t, c.State().Bound, stix.TypeAttackPattern)); err != nil {
		t.Fatal(err)
	}
	load(t, c, testutil.QuickMinimal())
	if c.Mode() != model.AttackGraph {
		t.Errorf("mode = %v, want AttackGraph", c.Mode())
	}
	if c.State().Selection != nil {
		t.Error("selection should be cleared by a new bundle")
	}
}

func TestDrillDownWithoutSubGraph(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	mw := nodeOfType(t, c.State().Bound, "malware")
	if err := c.DrillDown(mw); !errors.Is(err, model.ErrTransition) {
		t.Fatalf("err = %v", err)
	}
	// Clicking it opens the detail overlay instead.
	if err := c.Dispatch(interact.Click, interact.Event{}, mw); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != model.AttackGraph || c.Scene().CountKind(scene.KindDetail) != 1 {
		t.Error("click on a plain node should open the detail overlay")
	}
}

func TestActivityThread(t *testing.T) {
	c, _ := newController(t, "activity_thread")
	load(t, c, testutil.QuickThreads(3, 2))

	st := c.State()
	if st.Mode != model.ActivityThread {
		t.Fatalf("mode = %v", st.Mode)
	}
	testutil.AssertNodeCount(t, st.Bound, 6)
	if c.Running() {
		t.Error("activity thread has no simulation")
	}
	s := c.Scene()
	w := s.W / float64(len(stix.Tactics))
	for _, n := range st.Bound.Nodes {
		if n.Type != stix.TypeAttackPattern || n.GroupingID == "" {
			t.Errorf("%s should not be in the activity thread", n.ID)
		}
		i := indexOf(stix.Tactics, stix.Column(n))
		if want := w*float64(i) + 35; math.Abs(n.X-want) > 1e-9 {
			t.Errorf("%s x = %g, want %g", n.ID, n.X, want)
		}
		testutil.AssertWithin(t, n.ID, n.Y, 0, s.H)
	}
	for _, e := range s.ByKind(scene.KindLink) {
		if !e.Classed(ClassPath) {
			t.Errorf("%s should be drawn as a path", e.ID)
		}
	}
	if len(c.TimeTicks()) == 0 {
		t.Fatal("no time ticks")
	}

	c.ZoomIn()
	c.Wheel(-200, 0, c.zoom.Centre())
	created := func(n *model.Node) time.Time {
		tm, ok := stix.Created(st.Bound.GroupingByID(n.GroupingID))
		if !ok {
			t.Fatalf("%s has no grouping timestamp", n.ID)
		}
		return tm
	}
	for _, n := range st.Bound.Nodes {
		if want := c.axis.Current.Map(created(n)); math.Abs(n.Y-want) > 1e-6 {
			t.Errorf("%s y = %g, axis says %g", n.ID, n.Y, want)
		}
		if e := s.NodeElement(n); e.Y != n.Y {
			t.Errorf("%s element not synced", n.ID)
		}
	}
	ticks := c.TimeTicks()
	var drawn int
	for _, e := range s.ByKind(scene.KindAxis) {
		if e.Subtitle == "time" {
			drawn++
		}
	}
	if drawn != len(ticks) {
		t.Errorf("%d tick elements for %d ticks", drawn, len(ticks))
	}
	if c.SceneTransform().K != 1 {
		t.Error("activity thread draws untransformed")
	}
}

func TestZoomResetOnRebuild(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	c.ZoomIn()
	c.ZoomIn()
	if k := c.State().Transform.K; math.Abs(k-1.44) > 1e-9 {
		t.Fatalf("k = %g, want 1.44", k)
	}
	if err := c.Navigate(model.AttackGraph); err != nil {
		t.Fatal(err)
	}
	if c.State().Transform.K != 1 {
		t.Error("transform should reset on rebuild")
	}
	if c.DoubleClickBackground(c.zoom.Centre()) {
		t.Error("double-click is not a zoom gesture")
	}
}

func TestDragPinsAndRestarts(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	c.Settle(0)
	if c.Running() {
		t.Fatal("should be at rest")
	}
	mw := nodeOfType(t, c.State().Bound, "malware")
	if err := c.Dispatch(interact.DragStart, interact.Event{}, mw); err != nil {
		t.Fatal(err)
	}
	if mw.Pinned() || c.Running() {
		t.Error("drag start alone should neither pin nor restart")
	}
	if err := c.Dispatch(interact.Drag, interact.Event{X: -50, Y: 10000}, mw); err != nil {
		t.Fatal(err)
	}
	if !c.Running() {
		t.Error("drag should restart the simulation")
	}
	c.Settle(0)
	s := c.Scene()
	if fx, fy, ok := mw.Fixed(); !ok || fx != 0 || fy != s.H {
		t.Errorf("pin = (%g,%g,%v), want clamped to (0,%g)", fx, fy, ok, s.H)
	}
	if !s.NodeElement(mw).Classed(scene.ClassFixed) {
		t.Error("dragged node should be marked fixed")
	}
}

func TestSubGraphPlainClickLeavesNodeFree(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	ap := nodeOfType(t, c.State().Bound, stix.TypeAttackPattern)
	if err := c.DrillDown(ap); err != nil {
		t.Fatal(err)
	}
	c.Settle(0)
	n := nodeOfType(t, c.State().Bound, "malware")
	if err := c.Dispatch(interact.DragStart, interact.Event{}, n); err != nil {
		t.Fatal(err)
	}
	if err := c.Dispatch(interact.Click, interact.Event{}, n); err != nil {
		t.Fatal(err)
	}
	if n.Pinned() || c.Running() {
		t.Errorf("after a plain click: pinned=%v running=%v", n.Pinned(), c.Running())
	}
	if c.Scene().CountKind(scene.KindDetail) != 1 {
		t.Error("click should open the detail overlay")
	}
}

func TestDispatchIgnoresStaleNodes(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	old := nodeOfType(t, c.State().Bound, "malware")
	if err := c.Navigate(model.AttackGraph); err != nil {
		t.Fatal(err)
	}
	if err := c.Dispatch(interact.Click, interact.Event{}, old); err != nil {
		t.Fatal(err)
	}
	if c.Scene().CountKind(scene.KindDetail) != 0 {
		t.Error("event on a node of a torn-down mount should be dropped")
	}
}

func TestNodeAt(t *testing.T) {
	c, _ := newController(t, "")
	load(t, c, testutil.QuickMinimal())
	c.Settle(0)
	mw := nodeOfType(t, c.State().Bound, "malware")
	p := c.State().Transform.Apply(r2Vec(mw.X+3, mw.Y-3))
	if got := c.NodeAt(c.ToScene(p)); got != mw {
		t.Errorf("NodeAt = %v, want %s", got, mw.ID)
	}
	if got := c.NodeAt(r2Vec(-500, -500)); got != nil {
		t.Errorf("NodeAt far away = %s", got.ID)
	}
}

func r2Vec(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }
