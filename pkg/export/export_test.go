package export

import (
	"bytes"
	"context"
	"database/sql"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/threatgraph/pkg/config"
	"github.com/vanderheijden86/threatgraph/pkg/detail"
	"github.com/vanderheijden86/threatgraph/pkg/interact"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
	"github.com/vanderheijden86/threatgraph/pkg/testutil"
	"github.com/vanderheijden86/threatgraph/pkg/view"
)

type plainDetail struct{}

func (plainDetail) Render(data model.Object, title, body, typ detail.Slot) error {
	title.SetText(detail.Title(data))
	body.SetText(detail.Markdown(data))
	typ.SetText(data.String("type"))
	return nil
}

func mounted(t *testing.T, raw []byte, token string) *view.Controller {
	t.Helper()
	c := view.New(view.Options{
		Config:   config.DefaultConfig(),
		Location: view.NewMemoryLocation(token),
		Detail:   plainDetail{},
		TimeZone: time.UTC,
	})
	if err := c.Load(raw); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Settle(0)
	return c
}

func TestCaptureIsDetached(t *testing.T) {
	c := mounted(t, testutil.QuickMinimal(), "")
	f := Capture(c)
	if f.Mount != c.Scene().Mount() || len(f.Items) != c.Scene().Count() {
		t.Fatalf("frame has %d items for mount %s", len(f.Items), f.Mount)
	}
	nodes := f.Of(scene.KindNode)
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d", len(nodes))
	}
	before := nodes[0].X
	c.State().Bound.Nodes[0].Pin(5, 5)
	c.Restart()
	c.Settle(0)
	if f.Of(scene.KindNode)[0].X != before {
		t.Error("frame should not follow the live scene")
	}
	if w, h := f.CanvasSize(); w != 1390 || h != 725 {
		t.Errorf("canvas = %dx%d, want 1390x725", w, h)
	}
}

func TestRenderSVG(t *testing.T) {
	c := mounted(t, testutil.QuickMinimal(), "")
	mw := c.State().Bound.Nodes[1]
	if err := c.Dispatch(interact.DragStart, interact.Event{}, mw); err != nil {
		t.Fatal(err)
	}
	if err := c.Dispatch(interact.Click, interact.Event{}, mw); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := RenderSVG(&buf, Capture(c)); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<svg",
		"Current Graph: Attack Graph",
		`marker id="arrow"`,
		"translate(60,45)",
		"translate(0,0) scale(1)",
		"Initial Access",
		"Spearphishing",
		`class="fixed"`,
		"uses",
		c.Scene().Mount() + "/detail/detail",
		"</svg>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestRenderSVGSubGraphHeading(t *testing.T) {
	c := mounted(t, testutil.QuickMinimal(), "")
	ap := c.State().Bound.Nodes[0]
	if err := c.DrillDown(ap); err != nil {
		t.Fatal(err)
	}
	c.ZoomIn()
	var buf bytes.Buffer
	if err := RenderSVG(&buf, Capture(c)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Current Graph: Sub-Graph", "Adversary", "Victim", "scale(1.2)", "/heading/heading"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestRenderPNG(t *testing.T) {
	c := mounted(t, testutil.QuickThreads(2, 2), "activity_thread")
	var buf bytes.Buffer
	if err := RenderPNG(&buf, Capture(c)); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1390 || b.Dy() != 725 {
		t.Errorf("image = %v", b)
	}
}

func TestSaveSQLite(t *testing.T) {
	c := mounted(t, testutil.QuickThreads(2, 3), "")
	path := filepath.Join(t.TempDir(), "graph.sqlite3")
	if err := Save(context.Background(), path, FormatSQLite, Capture(c)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var nodes, links int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&nodes); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM links`).Scan(&links); err != nil {
		t.Fatal(err)
	}
	g := c.State().Bound
	if nodes != len(g.Nodes) || links != len(g.Links) {
		t.Errorf("db has %d nodes, %d links; graph has %d, %d", nodes, links, len(g.Nodes), len(g.Links))
	}

	var mode string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'mode'`).Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "attack_graph" {
		t.Errorf("mode = %q", mode)
	}

	var orphans int
	err = db.QueryRow(`SELECT COUNT(*) FROM links l LEFT JOIN nodes n ON n.id = l.source_id WHERE n.id IS NULL`).Scan(&orphans)
	if err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("%d links with unknown source", orphans)
	}
}

func TestSaveSQLiteActivityTicks(t *testing.T) {
	c := mounted(t, testutil.QuickThreads(3, 1), "activity_thread")
	path := filepath.Join(t.TempDir(), "activity.db")
	if err := Save(context.Background(), path, FormatSQLite, Capture(c)); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var ticks int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&ticks); err != nil {
		t.Fatal(err)
	}
	if ticks != len(c.TimeTicks()) || ticks == 0 {
		t.Errorf("ticks = %d, want %d", ticks, len(c.TimeTicks()))
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		format, path string
		want         Format
		wantErr      bool
	}{
		{"", "out/graph.svg", FormatSVG, false},
		{"", "graph.PNG", FormatPNG, false},
		{"", "graph.sqlite3", FormatSQLite, false},
		{"", "graph.txt", "", true},
		{".png", "whatever", FormatPNG, false},
		{"db", "", FormatSQLite, false},
		{"gif", "x.gif", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.format, tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q, %q) = %q, %v", tt.format, tt.path, got, err)
		}
	}
}

func TestSaveRejectsEmptyFrame(t *testing.T) {
	err := Save(context.Background(), filepath.Join(t.TempDir(), "x.svg"), FormatSVG, Frame{})
	if err == nil {
		t.Fatal("expected error for an empty frame")
	}
}

func TestRenderBatch(t *testing.T) {
	dir := t.TempDir()
	c := mounted(t, testutil.QuickThreads(2, 2), "")
	var jobs []Job
	jobs = append(jobs, JobsFor(dir, Capture(c), FormatSVG, FormatPNG, FormatSQLite)...)
	if err := c.Navigate(model.ActivityThread); err != nil {
		t.Fatal(err)
	}
	jobs = append(jobs, JobsFor(dir, Capture(c), FormatSVG, FormatPNG)...)

	if err := RenderBatch(context.Background(), jobs, 2); err != nil {
		t.Fatalf("RenderBatch: %v", err)
	}
	for _, name := range []string{
		"attack_graph.svg", "attack_graph.png", "attack_graph.sqlite3",
		"activity_thread.svg", "activity_thread.png",
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestRenderBatchReportsFailure(t *testing.T) {
	jobs := []Job{{Path: filepath.Join(t.TempDir(), "empty.svg"), Format: FormatSVG}}
	if err := RenderBatch(context.Background(), jobs, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestWrapLines(t *testing.T) {
	got := wrapLines("one two three four\nfive", 9)
	want := []string{"one two", "three", "four", "five"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrapLines = %q, want %q", got, want)
	}
}
