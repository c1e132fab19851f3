package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/ui/style"
	"github.com/sadopc/spacescope/internal/util"
)

// Row is one visible line of the tree.
type Row struct {
	Node  *model.Node
	Depth int
	// Open is set for expanded directories whose children are shown.
	Open bool
	// Loading is set while the directory's children are being listed.
	Loading bool
	// Excluded marks entries excluded since they were last listed.
	Excluded bool
}

// TreeView renders the disclosure tree.
type TreeView struct {
	Theme       style.Theme
	Layout      style.Layout
	Rows        []Row
	Cursor      int
	Offset      int
	UseApparent bool
	RootSize    int64
	// GreyBelow greys entries smaller than this many bytes (0 = off).
	GreyBelow int64
	// Spinner is drawn in place of the size of loading rows.
	Spinner string
}

// Render renders the tree view.
func (tv *TreeView) Render() string {
	width := tv.Layout.ContentWidth()
	contentHeight := tv.Layout.ContentHeight()

	if len(tv.Rows) == 0 {
		empty := lipgloss.NewStyle().Foreground(tv.Theme.TextMuted).Render("  (nothing to show)")
		lines := []string{style.FullWidth(empty, width)}
		for len(lines) < contentHeight {
			lines = append(lines, strings.Repeat(" ", width))
		}
		return strings.Join(lines, "\n")
	}

	start := tv.Offset
	end := min(start+contentHeight, len(tv.Rows))

	lines := make([]string, 0, contentHeight)
	for i := start; i < end; i++ {
		lines = append(lines, tv.renderRow(tv.Rows[i], i == tv.Cursor, width))
	}
	for len(lines) < contentHeight {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func (tv *TreeView) size(n *model.Node) int64 {
	if tv.UseApparent {
		return n.Size
	}
	return n.Usage
}

func (tv *TreeView) renderRow(row Row, selected bool, totalWidth int) string {
	n := row.Node
	size := tv.size(n)

	pct := util.Percent(size, tv.RootSize)
	pctStr := fmt.Sprintf("%5.1f%%", pct)
	bar := tv.Theme.BarGradient(tv.Layout.BarWidth(), pct/100.0)

	indicator := "  "
	if selected {
		indicator = tv.Theme.CursorIndicator.Render(" >")
	}

	disclosure := "  "
	switch {
	case !n.IsDir:
	case row.Open:
		disclosure = "▾ "
	default:
		disclosure = "▸ "
	}

	var suffix string
	if n.Flag&model.FlagError != 0 {
		suffix += tv.Theme.ErrorText.Render(" !")
	}
	if n.Flag&model.FlagSymlink != 0 {
		suffix += lipgloss.NewStyle().Foreground(tv.Theme.TextMuted).Render(" ->")
	}
	if row.Excluded {
		suffix += tv.Theme.ExcludedText.Render(" (excluded)")
	}

	name := n.Name
	if n.IsDir && row.Depth > 0 {
		name += "/"
	}
	nameWidth := tv.Layout.NameWidth(row.Depth) - lipgloss.Width(disclosure) - lipgloss.Width(suffix)
	name = util.TruncateString(name, max(nameWidth, 1))

	grey := tv.GreyBelow > 0 && size < tv.GreyBelow
	color := tv.Theme.SizeColor(size, tv.RootSize, grey || row.Excluded)
	nameStyle := lipgloss.NewStyle().Foreground(color)
	if n.IsDir {
		nameStyle = nameStyle.Bold(true)
	}

	nameCell := style.FullWidth(
		strings.Repeat(" ", tv.Layout.Indent(row.Depth))+
			tv.Theme.Disclosure.Render(disclosure)+
			nameStyle.Render(name)+suffix,
		tv.Layout.Indent(row.Depth)+tv.Layout.NameWidth(row.Depth),
	)

	sizeStr := util.FormatSize(size)
	if row.Loading && tv.Spinner != "" {
		sizeStr = tv.Spinner
	}

	line := fmt.Sprintf("%s%s [%s] %s %s",
		indicator,
		tv.Theme.PercentText.Render(pctStr),
		bar,
		nameCell,
		tv.Theme.SizeText.Width(10).Render(sizeStr),
	)
	line = style.FullWidth(line, totalWidth)

	if selected {
		return tv.Theme.SelectedRow.Width(totalWidth).Render(line)
	}
	return line
}

// EnsureVisible adjusts offset to keep cursor visible.
func (tv *TreeView) EnsureVisible() {
	contentHeight := tv.Layout.ContentHeight()
	if tv.Cursor < tv.Offset {
		tv.Offset = tv.Cursor
	}
	if tv.Cursor >= tv.Offset+contentHeight {
		tv.Offset = tv.Cursor - contentHeight + 1
	}
	if tv.Offset < 0 {
		tv.Offset = 0
	}
}
