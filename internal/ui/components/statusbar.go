package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/ui/style"
	"github.com/sadopc/spacescope/internal/util"
)

// StatusInfo holds the current state for the status bar.
type StatusInfo struct {
	Selected    *model.Node
	RowCount    int
	UseApparent bool
	Message     string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(theme style.Theme, info StatusInfo, width int) string {
	if info.Message != "" {
		msgLine := " " + lipgloss.NewStyle().Foreground(theme.Warning).Bold(true).Render(info.Message)
		return theme.StatusBarStyle.Width(width).Render(util.TruncateString(msgLine, width))
	}

	parts := []string{fmt.Sprintf("%d rows", info.RowCount)}
	if n := info.Selected; n != nil {
		size, label := n.Usage, "disk"
		if info.UseApparent {
			size, label = n.Size, "apparent"
		}
		parts = append(parts, fmt.Sprintf("%s: %s %s", n.Name, util.FormatSize(size), label))
		if n.IsDir && n.Expanded() {
			parts = append(parts, fmt.Sprintf("%d entries", len(n.Children)))
		}
	}

	left := " " + strings.Join(parts, " | ")

	hints := []struct{ key, desc string }{
		{"?", "help"},
		{"x", "exclude"},
		{"q", "quit"},
	}

	var rightParts []string
	for _, h := range hints {
		k := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(h.key)
		d := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(" " + h.desc)
		rightParts = append(rightParts, k+d)
	}
	right := strings.Join(rightParts, "  ") + " "

	leftW := lipgloss.Width(left)
	rightW := lipgloss.Width(right)
	if leftW+rightW >= width {
		left = util.TruncateString(left, max(width-rightW-1, 0))
		leftW = lipgloss.Width(left)
	}
	gap := max(width-leftW-rightW, 1)

	line := left + strings.Repeat(" ", gap) + right
	return theme.StatusBarStyle.Width(width).Render(line)
}

// FilterInfo describes the active display filters.
type FilterInfo struct {
	HideSmall  bool
	SmallBelow int64
	GreySmall  bool
	GreyBelow  int64
	HideHidden bool
	Sort       model.SortConfig
}

// RenderFilterBar renders the filter toggles and the sort order.
func RenderFilterBar(theme style.Theme, info FilterInfo, width int) string {
	toggles := []struct {
		key   string
		label string
		on    bool
	}{
		{"f", "hide < " + util.FormatSize(info.SmallBelow), info.HideSmall},
		{"g", "grey < " + util.FormatSize(info.GreyBelow), info.GreySmall},
		{".", "hide dotfiles", info.HideHidden},
	}

	var tabs []string
	for _, t := range toggles {
		label := fmt.Sprintf(" %s %s ", t.key, t.label)
		if t.on {
			tabs = append(tabs, theme.TabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, theme.TabInactiveStyle.Render(label))
		}
	}
	left := " " + strings.Join(tabs, " ")

	field := "Size"
	if info.Sort.Field == model.SortByName {
		field = "Name"
	}
	order := "desc"
	if info.Sort.Order == model.SortAsc {
		order = "asc"
	}
	sortLabel := lipgloss.NewStyle().
		Foreground(theme.TextMuted).
		Render(fmt.Sprintf("Sort: %s %s ", field, order))

	leftW := lipgloss.Width(left)
	rightW := lipgloss.Width(sortLabel)
	gap := max(width-leftW-rightW, 1)

	line := left + strings.Repeat(" ", gap) + sortLabel
	return lipgloss.NewStyle().
		Foreground(theme.TextSecondary).
		Background(theme.BgLight).
		Width(width).
		Render(line)
}
