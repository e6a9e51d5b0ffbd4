// Package ui is the interactive terminal host for the threat graph: it draws
// the mounted scene as a character grid, turns keys and mouse gestures into
// controller interactions and drives the layout simulation with ticks.
package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bvp "github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/threatgraph/internal/datasource"
	"github.com/vanderheijden86/threatgraph/pkg/debug"
	"github.com/vanderheijden86/threatgraph/pkg/export"
	"github.com/vanderheijden86/threatgraph/pkg/interact"
	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
	"github.com/vanderheijden86/threatgraph/pkg/view"
	"github.com/vanderheijden86/threatgraph/pkg/viewport"
	"github.com/vanderheijden86/threatgraph/pkg/watcher"
)

// panStep is how far one pan key moves the view, in screen units.
const panStep = 40

// dragStep is how far one drag key moves a pinned node, in screen units.
const dragStep = 20

// doubleClickWindow bounds the gap between the clicks of a double-click.
const doubleClickWindow = 400 * time.Millisecond

// stepMsg advances the simulation of mount generation gen.
type stepMsg struct{ gen uint64 }

// FileChangedMsg is sent when the bundle file changes on disk
type FileChangedMsg struct{}

// NavigateMsg asks for the view named by a location token, e.g.
// "activity_thread".
type NavigateMsg struct{ Token string }

// exportDoneMsg reports a finished snapshot export.
type exportDoneMsg struct {
	paths []string
	err   error
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// Options configure the host.
type Options struct {
	// Source is the bundle shown; reloads re-read it.
	Source  datasource.DataSource
	Watcher *watcher.Watcher
	// ExportDir receives snapshots; empty uses the controller config.
	ExportDir string
	Theme     *Theme
}

// Model is the bubbletea model.
type Model struct {
	ctrl      *view.Controller
	source    datasource.DataSource
	watcher   *watcher.Watcher
	exportDir string

	keys   keyMap
	help   help.Model
	detail bvp.Model
	theme  Theme

	width, height int

	selected *model.Node
	selGen   uint64
	hovered  *model.Node

	dragging  *model.Node
	dragMoved bool
	lastClick time.Time
	lastNode  *model.Node

	ticking bool
	tickGen uint64

	detailKey string
	message   string
	quitting  bool
}

// New wraps c, which should already hold a loaded bundle.
func New(c *view.Controller, opts Options) Model {
	th := TestTheme()
	if opts.Theme != nil {
		th = *opts.Theme
	}
	w, h := terminalSize()
	dir := opts.ExportDir
	if dir == "" {
		dir = c.Config().SnapshotDir()
	}
	m := Model{
		ctrl:      c,
		source:    opts.Source,
		watcher:   opts.Watcher,
		exportDir: dir,
		keys:      defaultKeyMap(),
		help:      help.New(),
		detail:    bvp.New(detailPaneWidth-4, 10),
		theme:     th,
	}
	m.resize(w, h)
	if c.Running() {
		m.ticking, m.tickGen = true, c.Generation()
	}
	return m
}

func terminalSize() (int, int) {
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && h > 0 {
		return w, h
	}
	return 120, 40
}

// Controller exposes the wrapped controller.
func (m Model) Controller() *view.Controller { return m.ctrl }

// Selected is the keyboard-selected node.
func (m Model) Selected() *model.Node { return m.selected }

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	if m.ticking {
		cmds = append(cmds, m.tick(m.tickGen))
	}
	return tea.Batch(cmds...)
}

func (m Model) tick(gen uint64) tea.Cmd {
	return tea.Tick(m.ctrl.Config().Layout.TickInterval, func(time.Time) tea.Msg {
		return stepMsg{gen: gen}
	})
}

// ensureTicking schedules steps for the current mount if its simulation runs
// and nothing is scheduled for it yet.
func (m *Model) ensureTicking() tea.Cmd {
	gen := m.ctrl.Generation()
	if !m.ctrl.Running() || (m.ticking && m.tickGen == gen) {
		return nil
	}
	m.ticking, m.tickGen = true, gen
	return m.tick(gen)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case stepMsg:
		if msg.gen != m.tickGen {
			// superseded by a remount
			return m, nil
		}
		if m.ctrl.Step(msg.gen) {
			return m, m.tick(msg.gen)
		}
		m.ticking = false

	case NavigateMsg:
		m.navigate(msg.Token)

	case FileChangedMsg:
		m.reload()
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case exportDoneMsg:
		if msg.err != nil {
			m.message = "Export failed: " + msg.err.Error()
		} else {
			m.message = "Exported " + strings.Join(msg.paths, ", ")
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.quitting {
			return m, tea.Quit
		}
	}

	m.syncSelection()
	m.syncDetail()
	if cmd := m.ensureTicking(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w
	m.detail.Width = detailPaneWidth - 4
	m.detail.Height = max(h-chromeRows-2, 3)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	c := m.ctrl
	m.message = ""

	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, k.AttackGraph):
		m.navigate(model.AttackGraph.Token())
	case key.Matches(msg, k.ActivityThread):
		m.navigate(model.ActivityThread.Token())
	case key.Matches(msg, k.SubGraph):
		m.navigate(model.SubGraph.Token())
	case key.Matches(msg, k.Reload):
		m.reload()

	case key.Matches(msg, k.ZoomIn):
		c.ZoomIn()
	case key.Matches(msg, k.ZoomOut):
		c.ZoomOut()
	case key.Matches(msg, k.ZoomReset):
		c.ResetZoom()
	case key.Matches(msg, k.PanUp):
		c.Pan(0, panStep)
	case key.Matches(msg, k.PanDown):
		c.Pan(0, -panStep)
	case key.Matches(msg, k.PanLeft):
		c.Pan(panStep, 0)
	case key.Matches(msg, k.PanRight):
		c.Pan(-panStep, 0)

	case key.Matches(msg, k.Next):
		m.cycle(1)
	case key.Matches(msg, k.Prev):
		m.cycle(-1)
	case key.Matches(msg, k.Open):
		m.dispatch(interact.Click, m.selected)
	case key.Matches(msg, k.Unpin):
		m.dispatch(interact.DoubleClick, m.selected)
	case key.Matches(msg, k.Pin):
		m.dragBy(0, 0)
	case key.Matches(msg, k.DragUp):
		m.dragBy(0, -dragStep)
	case key.Matches(msg, k.DragDown):
		m.dragBy(0, dragStep)
	case key.Matches(msg, k.DragLeft):
		m.dragBy(-dragStep, 0)
	case key.Matches(msg, k.DragRight):
		m.dragBy(dragStep, 0)
	case key.Matches(msg, k.CloseDetail):
		interact.CloseDetail(c.Scene())
	case key.Matches(msg, k.ScrollUp), key.Matches(msg, k.ScrollDown):
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return cmd

	case key.Matches(msg, k.Copy):
		m.copySelected()
	case key.Matches(msg, k.Export):
		return m.exportCmd()
	}
	return nil
}

func (m *Model) navigate(token string) {
	if err := m.ctrl.NavigateToken(token); err != nil {
		debug.Log("ui: navigate to %q: %v", token, err)
	}
}

func (m *Model) reload() {
	if m.source.Path == "" {
		return
	}
	raw, err := datasource.Read(m.source)
	if err != nil {
		m.message = err.Error()
		return
	}
	if err := m.ctrl.Load(raw); err != nil {
		debug.Log("ui: reload %s: %v", m.source.Path, err)
		return
	}
	m.message = "Reloaded " + m.source.Path
}

// syncSelection forgets selections that belong to a previous mount.
func (m *Model) syncSelection() {
	if gen := m.ctrl.Generation(); gen != m.selGen {
		m.selGen = gen
		m.selected, m.hovered, m.dragging, m.lastNode = nil, nil, nil, nil
	}
}

// syncDetail refreshes the detail pane when the overlay changes.
func (m *Model) syncDetail() {
	d := m.detailElement()
	if d == nil {
		m.detailKey = ""
		return
	}
	dk := d.ID + "\x00" + d.Title + "\x00" + d.Text
	if dk == m.detailKey {
		return
	}
	m.detailKey = dk
	var sb strings.Builder
	sb.WriteString(m.theme.DetailTitle.Render(d.Title))
	sb.WriteByte('\n')
	sb.WriteString(m.theme.DetailType.Render(d.Subtitle))
	sb.WriteString("\n\n")
	sb.WriteString(d.Text)
	m.detail.SetContent(sb.String())
	m.detail.GotoTop()
}

func (m Model) detailElement() *scene.Element {
	s := m.ctrl.Scene()
	if e := s.Find(s.ID(scene.KindDetail, "detail")); e != nil && e.Visible {
		return e
	}
	return nil
}

func (m Model) nodes() []*model.Node {
	if !m.ctrl.Mounted() || m.ctrl.State().Bound == nil {
		return nil
	}
	return m.ctrl.State().Bound.Nodes
}

// cycle moves the keyboard selection and hovers the new node.
func (m *Model) cycle(dir int) {
	nodes := m.nodes()
	if len(nodes) == 0 {
		return
	}
	i := -1
	for j, n := range nodes {
		if n == m.selected {
			i = j
			break
		}
	}
	switch {
	case i < 0 && dir < 0:
		i = len(nodes) - 1
	case i < 0:
		i = 0
	default:
		i = (i + dir + len(nodes)) % len(nodes)
	}
	m.selected = nodes[i]
	m.hover(m.selected, m.screenOf(m.selected))
}

// hover moves the tooltip to n, leaving the previous node first.
func (m *Model) hover(n *model.Node, p r2.Vec) {
	if n != m.hovered && m.hovered != nil {
		m.dispatch(interact.HoverLeave, m.hovered)
	}
	if n == nil {
		m.hovered = nil
		return
	}
	if n != m.hovered {
		m.dispatch(interact.HoverEnter, n)
	}
	m.hovered = n
	m.dispatchAt(interact.HoverMove, n, p)
}

func (m *Model) dragBy(dx, dy float64) {
	n := m.selected
	if n == nil {
		return
	}
	m.dispatch(interact.DragStart, n)
	p := m.screenOf(n)
	m.dispatchAt(interact.Drag, n, r2.Vec{X: p.X + dx, Y: p.Y + dy})
}

func (m *Model) dispatch(h interact.Handler, n *model.Node) {
	if n == nil {
		return
	}
	m.dispatchAt(h, n, m.screenOf(n))
}

// dispatchAt runs h with the pointer at screen point p.
func (m *Model) dispatchAt(h interact.Handler, n *model.Node, p r2.Vec) {
	cfg := m.ctrl.Config().Scene
	sp := m.ctrl.ToScene(p)
	ev := interact.Event{
		X:          sp.X,
		Y:          sp.Y,
		PageX:      p.X + cfg.Margin.Left,
		PageY:      p.Y + cfg.Margin.Top,
		AvailWidth: cfg.Width + cfg.Margin.Left + cfg.Margin.Right,
	}
	if err := m.ctrl.Dispatch(h, ev, n); err != nil {
		debug.Log("ui: interaction on %s: %v", n.ID, err)
	}
}

func (m Model) screenOf(n *model.Node) r2.Vec {
	return m.ctrl.SceneTransform().Apply(r2.Vec{X: n.X, Y: n.Y})
}

// canvasOriginRow is the terminal row of the canvas's first row.
const canvasOriginRow = 1

func (m *Model) handleMouse(msg tea.MouseMsg) {
	// Hit-test against what the last View drew.
	cv := m.newCanvas()
	cv.Draw(m.ctrl.Scene().Elements(), m.ctrl.SceneTransform(), m.selected)
	col, row := msg.X, msg.Y-canvasOriginRow
	p := cv.ScreenOf(col, row)
	n := cv.NodeAt(col, row)
	if n == nil {
		// Cells are coarse; fall back to the scene hit radius.
		n = m.ctrl.NodeAt(m.ctrl.ToScene(p))
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.ctrl.Wheel(-3, viewport.DeltaLine, p)
	case msg.Button == tea.MouseButtonWheelDown:
		m.ctrl.Wheel(3, viewport.DeltaLine, p)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.dragging, m.dragMoved = n, false
		if n != nil {
			m.selected = n
			m.dispatchAt(interact.DragStart, n, p)
		}

	case msg.Action == tea.MouseActionMotion && m.dragging != nil:
		m.dragMoved = true
		m.dispatchAt(interact.Drag, m.dragging, p)

	case msg.Action == tea.MouseActionRelease:
		d := m.dragging
		m.dragging = nil
		if m.dragMoved {
			return
		}
		now := time.Now()
		if d == nil {
			if m.lastNode == nil && now.Sub(m.lastClick) <= doubleClickWindow {
				m.lastClick = time.Time{}
				if !m.ctrl.DoubleClickBackground(p) {
					debug.Log("ui: background double-click ignored")
				}
				return
			}
			m.lastNode, m.lastClick = nil, now
			return
		}
		if d == m.lastNode && now.Sub(m.lastClick) <= doubleClickWindow {
			m.lastNode = nil
			m.dispatchAt(interact.DoubleClick, d, p)
			return
		}
		m.lastNode, m.lastClick = d, now
		m.dispatchAt(interact.Click, d, p)

	case msg.Action == tea.MouseActionMotion:
		m.hover(n, p)
	}
}

func (m Model) canvasSize() (cols, rows int) {
	cols = m.width
	if m.detailElement() != nil {
		cols -= detailPaneWidth
	}
	rows = m.height - chromeRows
	if m.help.ShowAll {
		rows -= 4
	}
	return max(cols, 10), max(rows, 5)
}

func (m Model) newCanvas() *Canvas {
	cols, rows := m.canvasSize()
	s := m.ctrl.Scene()
	return NewCanvas(cols, rows, s.W, s.H)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	th := m.theme
	c := m.ctrl

	header := th.Header.Render(c.ModeLabel())
	s := c.Scene()
	if h := s.Find(s.ID(scene.KindHeading, "heading")); h != nil && h.Visible {
		header += " " + th.Heading.Render(h.Text)
	}
	header += th.StatusInfo.Render(fmt.Sprintf("  %s", c.State().Transform))

	cv := m.newCanvas()
	cv.Draw(s.Elements(), c.SceneTransform(), m.selected)
	body := cv.Render(th)
	if d := m.detailElement(); d != nil {
		_, rows := cv.Size()
		pane := th.Detail.Width(detailPaneWidth - 2).Height(rows - 2).Render(m.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, pane)
	}

	return strings.Join([]string{
		header,
		body,
		m.tooltipLine(),
		m.statusLine(),
		m.help.View(m.keys),
	}, "\n")
}

func (m Model) tooltipLine() string {
	s := m.ctrl.Scene()
	t := s.Find(s.ID(scene.KindTooltip, "tooltip"))
	if t == nil || !t.Visible {
		return ""
	}
	text := strings.ReplaceAll(t.Text, "\n", " ")
	return m.theme.Tooltip.Render(runewidth.Truncate(text, max(m.width-2, 10), "…"))
}

func (m Model) statusLine() string {
	st := m.ctrl.Status()
	switch st.Kind {
	case view.StatusError:
		return m.theme.StatusError.Render(st.Text)
	case view.StatusWarning:
		return m.theme.StatusWarning.Render(st.Text)
	}
	if m.message != "" {
		return m.theme.StatusInfo.Render(m.message)
	}
	return ""
}

func (m *Model) copySelected() {
	n := m.selected
	if n == nil {
		m.message = "Nothing selected"
		return
	}
	if err := clipboard.WriteAll(n.ID); err != nil {
		m.message = fmt.Sprintf("Clipboard error: %v", err)
		return
	}
	m.message = fmt.Sprintf("Copied %s to clipboard", n.ID)
}

// exportCmd captures the current frame and writes it in the background.
func (m *Model) exportCmd() tea.Cmd {
	if !m.ctrl.Mounted() {
		return nil
	}
	frame := export.Capture(m.ctrl)
	jobs := export.JobsFor(m.exportDir, frame, export.FormatSVG, export.FormatPNG)
	m.message = "Exporting..."
	return func() tea.Msg {
		err := export.RenderBatch(context.Background(), jobs, 0)
		paths := make([]string, len(jobs))
		for i, j := range jobs {
			paths[i] = j.Path
		}
		return exportDoneMsg{paths: paths, err: err}
	}
}
