package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/threatgraph/pkg/export"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme is the set of styles the graph view draws with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	Base      lipgloss.Style
	Header    lipgloss.Style
	Heading   lipgloss.Style
	Band      lipgloss.Style
	Axis      lipgloss.Style
	Link      lipgloss.Style
	LinkLabel lipgloss.Style
	NodeLabel lipgloss.Style
	Tooltip   lipgloss.Style

	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusInfo    lipgloss.Style

	Detail      lipgloss.Style
	DetailTitle lipgloss.Style
	DetailType  lipgloss.Style

	nodes map[string]lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,
		Primary:  ColorPrimary,
		Subtext:  ColorSubtext,
		Muted:    ColorMuted,
		Border:   ColorBorder,
		nodes:    make(map[string]lipgloss.Style),
	}

	t.Base = r.NewStyle().Foreground(ColorText)
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Heading = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.Band = r.NewStyle().Foreground(ColorBand)
	t.Axis = r.NewStyle().Foreground(t.Subtext).Bold(true)
	t.Link = r.NewStyle().Foreground(ColorLink)
	t.LinkLabel = r.NewStyle().Foreground(t.Muted).Italic(true)
	t.NodeLabel = r.NewStyle().Foreground(t.Subtext)
	t.Tooltip = r.NewStyle().Foreground(ColorText).Background(ColorBgSubtle).Padding(0, 1)

	t.StatusError = r.NewStyle().Foreground(ColorDanger).Bold(true)
	t.StatusWarning = r.NewStyle().Foreground(ColorWarning).Bold(true)
	t.StatusInfo = r.NewStyle().Foreground(ColorInfo)

	t.Detail = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	t.DetailTitle = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.DetailType = r.NewStyle().Foreground(t.Muted)

	return t
}

// NodeStyle is the glyph style for a STIX type, coloured like the
// snapshot export.
func (t Theme) NodeStyle(typ string) lipgloss.Style {
	if s, ok := t.nodes[typ]; ok {
		return s
	}
	c := export.TypeColor(typ)
	s := t.Renderer.NewStyle().Bold(true).Foreground(ThemeFg(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)))
	if t.nodes != nil {
		t.nodes[typ] = s
	}
	return s
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
