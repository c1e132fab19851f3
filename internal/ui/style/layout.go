package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	indentStep = 2
	maxIndent  = 24
	minName    = 8
)

// Layout manages the arrangement of UI components within terminal dimensions.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the height available for the tree rows.
func (l Layout) ContentHeight() int {
	h := l.Height - 4 // header + activity + filter bar + statusbar
	if h < 1 {
		h = 1
	}
	return h
}

// ContentWidth returns the width available for the main content area.
func (l Layout) ContentWidth() int {
	if l.Width < 20 {
		return 20
	}
	return l.Width
}

// BarWidth returns the width for the size bar of each row.
func (l Layout) BarWidth() int {
	bar := l.ContentWidth() - l.rowOverhead() - minName
	if bar < 5 {
		bar = 5
	}
	if bar > 30 {
		bar = 30
	}
	return bar
}

// Indent returns the indentation of a row at depth. Deep rows stop
// indenting so names stay readable.
func (l Layout) Indent(depth int) int {
	return min(depth*indentStep, maxIndent)
}

// NameWidth returns the width left for the name of a row at depth,
// including its disclosure marker.
func (l Layout) NameWidth(depth int) int {
	w := l.ContentWidth() - l.rowOverhead() - l.BarWidth() - l.Indent(depth)
	if w < minName {
		w = minName
	}
	return w
}

// rowOverhead returns the fixed-width portion of each tree row.
//
// Layout: "  " cursor + "99.9%" pct(6) + " [" + bar + "] " + indent + name + " " + size(10)
func (l Layout) rowOverhead() int {
	return 23 // cursor(2) + pct(6) + " ["(2) + "] "(2) + " "(1) + size(10)
}

// FullWidth pads a string with spaces to reach exactly the target visual width.
// If the string is already wider, it is returned as-is (no truncation).
func FullWidth(s string, width int) string {
	visLen := lipgloss.Width(s)
	if visLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visLen)
}
