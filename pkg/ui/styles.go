package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Adaptive palette. Light mode values keep WCAG AA contrast on white.
var (
	ColorText     = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted    = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorBgSubtle = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBorder   = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Graph chrome, after the layer band greys.
	ColorBand = lipgloss.AdaptiveColor{Light: "#90A4AE", Dark: "#455A64"}
	ColorLink = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#607D8B"}
)

// Spacing used around the panes, in cells.
const (
	detailPaneWidth = 44
	chromeRows      = 4 // header, tooltip, status, help
)
