package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/threatgraph/pkg/model"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
	"github.com/vanderheijden86/threatgraph/pkg/viewport"
)

// cellClass picks the style of a cell.
type cellClass uint8

const (
	clsBlank cellClass = iota
	clsBand
	clsAxis
	clsLink
	clsLinkLabel
	clsNode
	clsNodeFixed
	clsNodeSelected
	clsLabel
)

type cell struct {
	r    rune // 0 marks the right half of a wide rune
	cls  cellClass
	fill string
}

// Canvas rasterises the scene into terminal cells. The grid spans the scene
// extent in screen space, so cell (0,0) is the scene origin after the
// viewport transform.
type Canvas struct {
	cols, rows int
	sx, sy     float64 // screen units per cell
	cells      []cell
	hits       map[int]*model.Node
}

// NewCanvas sizes a blank canvas for a w×h scene.
func NewCanvas(cols, rows int, w, h float64) *Canvas {
	cols, rows = max(cols, 1), max(rows, 1)
	c := &Canvas{
		cols:  cols,
		rows:  rows,
		sx:    w / float64(cols),
		sy:    h / float64(rows),
		cells: make([]cell, cols*rows),
		hits:  make(map[int]*model.Node),
	}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

// Size is the grid size in cells.
func (c *Canvas) Size() (cols, rows int) { return c.cols, c.rows }

// CellOf maps a screen point to its cell.
func (c *Canvas) CellOf(p r2.Vec) (col, row int, ok bool) {
	col = int(math.Floor(p.X / c.sx))
	row = int(math.Floor(p.Y / c.sy))
	return col, row, col >= 0 && col < c.cols && row >= 0 && row < c.rows
}

// ScreenOf is the screen point at the centre of a cell.
func (c *Canvas) ScreenOf(col, row int) r2.Vec {
	return r2.Vec{X: (float64(col) + 0.5) * c.sx, Y: (float64(row) + 0.5) * c.sy}
}

// NodeAt returns the node drawn in a cell, if any.
func (c *Canvas) NodeAt(col, row int) *model.Node {
	if col < 0 || col >= c.cols || row < 0 || row >= c.rows {
		return nil
	}
	return c.hits[row*c.cols+col]
}

func (c *Canvas) at(col, row int) *cell {
	if col < 0 || col >= c.cols || row < 0 || row >= c.rows {
		return nil
	}
	return &c.cells[row*c.cols+col]
}

func (c *Canvas) set(col, row int, r rune, cls cellClass, fill string) {
	if p := c.at(col, row); p != nil {
		*p = cell{r: r, cls: cls, fill: fill}
	}
}

// text writes s starting at col, clipped to the grid. Wide runes take two
// cells.
func (c *Canvas) text(col, row int, s string, cls cellClass, fill string) {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col >= c.cols {
			return
		}
		c.set(col, row, r, cls, fill)
		if w == 2 {
			c.set(col+1, row, 0, cls, fill)
		}
		col += w
	}
}

// centred writes s centred on col, truncated to max cells.
func (c *Canvas) centred(col, row int, s string, maxW int, cls cellClass) {
	s = runewidth.Truncate(s, maxW, "…")
	c.text(col-runewidth.StringWidth(s)/2, row, s, cls, "")
}

// line draws a Bresenham line between two cells, leaving existing non-blank
// cells alone.
func (c *Canvas) line(c0, r0, c1, r1 int, cls cellClass) {
	dc, dr := abs(c1-c0), -abs(r1-r0)
	if dc-dr > 8*(c.cols+c.rows) {
		return
	}
	sc, sr := sign(c1-c0), sign(r1-r0)
	e := dc + dr
	for {
		if p := c.at(c0, r0); p != nil && (p.cls == clsBlank || p.cls == clsBand) {
			*p = cell{r: '·', cls: cls}
		}
		if c0 == c1 && r0 == r1 {
			return
		}
		e2 := 2 * e
		if e2 >= dr {
			e += dr
			c0 += sc
		}
		if e2 <= dc {
			e += dc
			r0 += sr
		}
	}
}

// Draw paints elems under the transform t. Overlays (tooltip, detail,
// heading) are left to the caller.
func (c *Canvas) Draw(elems []*scene.Element, t viewport.Transform, selected *model.Node) {
	screen := func(x, y float64) r2.Vec { return t.Apply(r2.Vec{X: x, Y: y}) }

	for _, e := range elems {
		if !e.Visible || e.Kind != scene.KindBand {
			continue
		}
		tl := screen(e.X, e.Y)
		br := screen(e.X+e.W, e.Y+e.H)
		c0, r0, _ := c.CellOf(tl)
		c1, r1, _ := c.CellOf(br)
		if e.H > e.W {
			for r := max(r0, 0); r <= min(r1, c.rows-1); r++ {
				c.set(c0, r, '│', clsBand, e.Fill)
			}
		} else {
			for col := max(c0, 0); col <= min(c1, c.cols-1); col++ {
				c.set(col, r0, '─', clsBand, e.Fill)
			}
		}
	}

	for _, e := range elems {
		if !e.Visible || e.Kind != scene.KindLink {
			continue
		}
		c0, r0, _ := c.CellOf(screen(e.X, e.Y))
		c1, r1, _ := c.CellOf(screen(e.X2, e.Y2))
		c.line(c0, r0, c1, r1, clsLink)
	}

	colW := max(int(math.Round(float64(c.cols)/14)), 4)
	for _, e := range elems {
		if !e.Visible {
			continue
		}
		switch e.Kind {
		case scene.KindAxis:
			switch e.Subtitle {
			case "x":
				col, _, _ := c.CellOf(screen(e.X, 0))
				c.centred(col, 0, e.Text, colW-1, clsAxis)
			case "y":
				_, row, _ := c.CellOf(screen(0, e.Y))
				c.text(0, row, e.Text, clsAxis, "")
			case "time":
				_, row, ok := c.CellOf(r2.Vec{Y: e.Y})
				if ok {
					c.text(0, row, "┤"+e.Text, clsAxis, "")
				}
			}
		case scene.KindLinkLabel:
			col, row, ok := c.CellOf(screen(e.X, e.Y))
			if ok && t.K >= 1 {
				c.centred(col, row, e.Text, colW, clsLinkLabel)
			}
		}
	}

	for _, e := range elems {
		if !e.Visible || e.Kind != scene.KindNodeLabel {
			continue
		}
		col, row, _ := c.CellOf(screen(e.X, e.Y))
		c.centred(col, row, e.Text, colW*2, clsLabel)
	}

	for _, e := range elems {
		if !e.Visible || e.Kind != scene.KindNode {
			continue
		}
		col, row, ok := c.CellOf(screen(e.X, e.Y))
		if !ok {
			continue
		}
		cls := clsNode
		switch {
		case e.Node == selected:
			cls = clsNodeSelected
		case e.Classed(scene.ClassFixed):
			cls = clsNodeFixed
		}
		col--
		c.text(col, row, e.Subtitle, cls, e.Title)
		for i := 0; i < runewidth.StringWidth(e.Subtitle); i++ {
			if col+i >= 0 && col+i < c.cols {
				c.hits[row*c.cols+col+i] = e.Node
			}
		}
	}
}

// String is the unstyled grid.
func (c *Canvas) String() string {
	var sb strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for _, ce := range c.cells[row*c.cols : (row+1)*c.cols] {
			if ce.r != 0 {
				sb.WriteRune(ce.r)
			}
		}
	}
	return sb.String()
}

// Render styles runs of equal cells with th.
func (c *Canvas) Render(th Theme) string {
	var sb strings.Builder
	var run strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		cells := c.cells[row*c.cols : (row+1)*c.cols]
		start := 0
		for i := 1; i <= len(cells); i++ {
			if i < len(cells) && cells[i].cls == cells[start].cls && cells[i].fill == cells[start].fill {
				continue
			}
			run.Reset()
			for _, ce := range cells[start:i] {
				if ce.r != 0 {
					run.WriteRune(ce.r)
				}
			}
			sb.WriteString(th.cellStyle(cells[start].cls, cells[start].fill).Render(run.String()))
			start = i
		}
	}
	return sb.String()
}

func (th Theme) cellStyle(cls cellClass, fill string) lipgloss.Style {
	switch cls {
	case clsBand:
		return th.Band
	case clsAxis:
		return th.Axis
	case clsLink:
		return th.Link
	case clsLinkLabel:
		return th.LinkLabel
	case clsLabel:
		return th.NodeLabel
	case clsNode:
		return th.NodeStyle(fill)
	case clsNodeFixed:
		return th.NodeStyle(fill).Underline(true)
	case clsNodeSelected:
		return th.NodeStyle(fill).Reverse(true)
	}
	return th.Base
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
