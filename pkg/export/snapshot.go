package export

import (
	"bufio"
	"context"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/threatgraph/pkg/metrics"
	"github.com/vanderheijden86/threatgraph/pkg/scene"
)

// Format is an output format.
type Format string

const (
	FormatSVG    Format = "svg"
	FormatPNG    Format = "png"
	FormatSQLite Format = "sqlite"
)

// NodeDrawRadius is the radius nodes are drawn with.
const NodeDrawRadius = 10

// DetailWidth is the width of the detail overlay box.
const DetailWidth = 320

// ParseFormat resolves an explicit format, or infers one from path's
// extension when format is empty.
func ParseFormat(format, path string) (Format, error) {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			return FormatSVG, nil
		case ".png":
			return FormatPNG, nil
		case ".db", ".sqlite", ".sqlite3":
			return FormatSQLite, nil
		default:
			return "", fmt.Errorf("cannot infer format from %q", path)
		}
	}
	switch Format(f) {
	case FormatSVG, FormatPNG, FormatSQLite:
		return Format(f), nil
	case "db", "sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("unsupported format %q (want svg, png or sqlite)", format)
}

// Save writes f to path in the given format, creating parent directories.
func Save(ctx context.Context, path string, format Format, f Frame) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if len(f.Items) == 0 {
		return fmt.Errorf("nothing mounted to export")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	if format == FormatSQLite {
		return SaveSQLite(ctx, path, f)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)

	switch format {
	case FormatSVG:
		err = RenderSVG(w, f)
	case FormatPNG:
		err = RenderPNG(w, f)
	default:
		err = fmt.Errorf("unhandled format %q", format)
	}
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// --- SVG -------------------------------------------------------------------

// RenderSVG draws f as an SVG document.
func RenderSVG(w io.Writer, f Frame) error {
	defer metrics.Timer(metrics.SnapshotRender)()

	cw, ch := f.CanvasSize()
	canvas := svg.New(w)
	canvas.Start(cw, ch)
	canvas.Title(f.Label)
	canvas.Def()
	canvas.Marker("arrow", 20, 5, 10, 10, `orient="auto"`)
	canvas.Path("M0,0 L10,5 L0,10 z", "fill:"+css(colorLink))
	canvas.MarkerEnd()
	canvas.DefEnd()
	canvas.Rect(0, 0, cw, ch, "fill:"+css(colorBackdrop))

	canvas.Text(int(f.Margin.Left), 18, f.Label,
		fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;font-weight:bold", css(colorText)))
	if f.Status != "" {
		canvas.Text(cw-int(f.Margin.Right), 18, f.Status,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:end", css(colorError)))
	}

	canvas.Gtransform(fmt.Sprintf("translate(%g,%g)", f.Margin.Left, f.Margin.Top))
	canvas.Gtransform(f.Transform.String())
	for _, it := range f.Items {
		if !overlay(it.Kind) {
			drawItemSVG(canvas, it)
		}
	}
	canvas.Gend()
	for _, it := range f.Items {
		if it.Kind == scene.KindHeading {
			canvas.Text(int(it.X), -20, it.Text, id(it),
				fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;font-weight:bold;text-anchor:middle", css(colorText)))
		}
	}
	canvas.Gend()

	// Tooltip and detail boxes are positioned in page coordinates.
	for _, it := range f.Items {
		switch {
		case it.Kind == scene.KindTooltip && it.Visible:
			canvas.Rect(int(it.X), int(it.Y), int(it.W), 24, id(it),
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorTooltip), css(colorStroke)))
			canvas.Text(int(it.X)+6, int(it.Y)+16, truncate(it.Text, int(it.W)/7), textStyle(11, colorText))
		case it.Kind == scene.KindDetail:
			drawDetailSVG(canvas, it, cw)
		}
	}
	canvas.End()
	return nil
}

func drawItemSVG(canvas *svg.SVG, it Item) {
	switch it.Kind {
	case scene.KindZoomSurface:
		canvas.Rect(0, 0, int(it.W), int(it.H), id(it), "fill:none;pointer-events:all")
	case scene.KindBand:
		canvas.Rect(int(it.X), int(it.Y), int(it.W+0.5), int(it.H+0.5), id(it),
			fmt.Sprintf("fill:%s;fill-opacity:0.4", it.Fill))
	case scene.KindAxis:
		switch it.Subtitle {
		case "x":
			canvas.Text(int(it.X), -8, it.Text, id(it), textStyle(10, colorSubtle)+";text-anchor:middle")
		default:
			canvas.Line(-4, int(it.Y), 0, int(it.Y), "stroke:"+css(colorSubtle))
			canvas.Text(-8, int(it.Y)+4, it.Text, id(it), textStyle(10, colorSubtle)+";text-anchor:end")
		}
	case scene.KindLink:
		style := fmt.Sprintf("stroke:%s;stroke-width:1.5;fill:none;marker-end:url(#arrow)", css(colorLink))
		if it.Path {
			canvas.Path(fmt.Sprintf("M%.1f,%.1f L%.1f,%.1f", it.X, it.Y, it.X2, it.Y2), id(it), `class="path"`, style)
		} else {
			canvas.Line(int(it.X), int(it.Y), int(it.X2), int(it.Y2), id(it), style)
		}
	case scene.KindLinkLabel:
		canvas.Text(int(it.X), int(it.Y), it.Text, id(it), textStyle(9, colorSubtle)+";text-anchor:middle")
	case scene.KindNode:
		attrs := []string{id(it)}
		width := 1.0
		if it.Fixed {
			attrs = append(attrs, `class="fixed"`)
			width = 3
		}
		attrs = append(attrs, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%g", css(TypeColor(it.NodeType)), css(colorStroke), width))
		canvas.Circle(int(it.X), int(it.Y), NodeDrawRadius, attrs...)
		canvas.Text(int(it.X), int(it.Y)+3, it.Subtitle, "fill:#ffffff;font-size:8px;font-family:monospace;text-anchor:middle")
	case scene.KindNodeLabel:
		canvas.Text(int(it.X), int(it.Y), it.Text, id(it), textStyle(10, colorText)+";text-anchor:middle")
	}
}

func drawDetailSVG(canvas *svg.SVG, it Item, cw int) {
	lines := wrapLines(it.Text, DetailWidth/7)
	h := 56 + 14*len(lines)
	x := cw - DetailWidth - 10
	canvas.Rect(x, 30, DetailWidth, h, id(it),
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorDetailBG), css(colorStroke)))
	canvas.Text(x+10, 50, it.Title, textStyle(13, colorText)+";font-weight:bold")
	canvas.Text(x+10, 68, it.Subtitle, textStyle(11, colorSubtle))
	for i, l := range lines {
		canvas.Text(x+10, 86+14*i, l, textStyle(11, colorText))
	}
}

func id(it Item) string { return fmt.Sprintf(`id=%q`, it.ID) }

func textStyle(size int, c color.RGBA) string {
	return fmt.Sprintf("fill:%s;font-size:%dpx;font-family:monospace", css(c), size)
}

// --- PNG -------------------------------------------------------------------

// RenderPNG draws f as a PNG image.
func RenderPNG(w io.Writer, f Frame) error {
	defer metrics.Timer(metrics.SnapshotRender)()

	cw, ch := f.CanvasSize()
	dc := gg.NewContext(cw, ch)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(f.Label, f.Margin.Left, 16, 0, 0.5)
	if f.Status != "" {
		dc.SetColor(colorError)
		dc.DrawStringAnchored(f.Status, float64(cw)-f.Margin.Right, 16, 1, 0.5)
	}

	dc.Push()
	dc.Translate(f.Margin.Left, f.Margin.Top)
	dc.Push()
	dc.Translate(f.Transform.X, f.Transform.Y)
	dc.Scale(f.Transform.K, f.Transform.K)
	for _, it := range f.Items {
		if !overlay(it.Kind) {
			drawItemPNG(dc, it)
		}
	}
	dc.Pop()
	for _, it := range f.Items {
		if it.Kind == scene.KindHeading {
			dc.SetColor(colorText)
			dc.DrawStringAnchored(it.Text, it.X, -20, 0.5, 0.5)
		}
	}
	dc.Pop()

	for _, it := range f.Items {
		switch {
		case it.Kind == scene.KindTooltip && it.Visible:
			dc.SetColor(colorTooltip)
			dc.DrawRectangle(it.X, it.Y, it.W, 24)
			dc.Fill()
			dc.SetColor(colorText)
			dc.DrawStringAnchored(truncate(it.Text, int(it.W)/7), it.X+6, it.Y+12, 0, 0.5)
		case it.Kind == scene.KindDetail:
			drawDetailPNG(dc, it, cw)
		}
	}
	return png.Encode(w, dc.Image())
}

func drawItemPNG(dc *gg.Context, it Item) {
	switch it.Kind {
	case scene.KindBand:
		c := parseHex(it.Fill, colorUnknown)
		c.A = 0x66
		dc.SetColor(c)
		dc.DrawRectangle(it.X, it.Y, it.W, it.H)
		dc.Fill()
	case scene.KindAxis:
		dc.SetColor(colorSubtle)
		if it.Subtitle == "x" {
			dc.DrawStringAnchored(it.Text, it.X, -10, 0.5, 0.5)
		} else {
			dc.DrawStringAnchored(it.Text, -8, it.Y, 1, 0.5)
		}
	case scene.KindLink:
		dc.SetColor(colorLink)
		dc.SetLineWidth(1.5)
		dc.DrawLine(it.X, it.Y, it.X2, it.Y2)
		dc.Stroke()
	case scene.KindLinkLabel:
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(it.Text, it.X, it.Y, 0.5, 0.5)
	case scene.KindNode:
		dc.SetColor(TypeColor(it.NodeType))
		dc.DrawCircle(it.X, it.Y, NodeDrawRadius)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1)
		if it.Fixed {
			dc.SetLineWidth(3)
		}
		dc.DrawCircle(it.X, it.Y, NodeDrawRadius)
		dc.Stroke()
	case scene.KindNodeLabel:
		dc.SetColor(colorText)
		dc.DrawStringAnchored(it.Text, it.X, it.Y, 0.5, 0.5)
	}
}

func drawDetailPNG(dc *gg.Context, it Item, cw int) {
	lines := wrapLines(it.Text, DetailWidth/7)
	x := float64(cw - DetailWidth - 10)
	h := float64(56 + 14*len(lines))
	dc.SetColor(colorDetailBG)
	dc.DrawRectangle(x, 30, DetailWidth, h)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, 30, DetailWidth, h)
	dc.Stroke()
	dc.SetColor(colorText)
	dc.DrawStringAnchored(it.Title, x+10, 46, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(it.Subtitle, x+10, 64, 0, 0.5)
	dc.SetColor(colorText)
	for i, l := range lines {
		dc.DrawStringAnchored(l, x+10, 82+14*float64(i), 0, 0.5)
	}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// wrapLines splits text into lines of at most width runes, keeping existing
// line breaks.
func wrapLines(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		var line []rune
		for _, word := range strings.Fields(para) {
			wr := []rune(word)
			if len(line) > 0 && len(line)+1+len(wr) > width {
				out = append(out, string(line))
				line = nil
			}
			if len(line) > 0 {
				line = append(line, ' ')
			}
			line = append(line, wr...)
		}
		out = append(out, string(line))
	}
	return out
}
