package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/ui/style"
	"github.com/sadopc/spacescope/internal/util"
)

// RenderHeader renders the top header bar.
func RenderHeader(theme style.Theme, root *model.Node, useApparent bool, width int) string {
	if root == nil || width < 10 {
		return ""
	}

	titleStyled := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render(" spacescope")

	size, label := root.Usage, "disk"
	if useApparent {
		size, label = root.Size, "apparent"
	}
	stats := fmt.Sprintf("%s %s ", util.FormatSize(size), label)
	statsStyled := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(stats)

	titleW := lipgloss.Width(titleStyled)
	statsW := lipgloss.Width(statsStyled)

	// Path gets whatever space remains
	pathMaxW := width - titleW - statsW - 3
	pathStr := root.Path
	if pathMaxW > 5 {
		pathStr = util.TruncateString(pathStr, pathMaxW)
	} else {
		pathStr = ""
	}

	pathStyled := lipgloss.NewStyle().Foreground(theme.TextPrimary).Render("  " + pathStr)
	pathW := lipgloss.Width(pathStyled)

	gap := max(width-titleW-pathW-statsW, 1)
	line := titleStyled + pathStyled + strings.Repeat(" ", gap) + statsStyled
	return theme.HeaderStyle.Width(width).Render(line)
}

// RenderActivity renders the line under the header: the spinner and the
// coordinator status while work is running, the exclusion count otherwise.
func RenderActivity(theme style.Theme, spinner, status string, excluded int, width int) string {
	var line string
	switch {
	case status != "":
		line = " " + spinner + " " + lipgloss.NewStyle().Foreground(theme.TextSecondary).Render(status)
	case excluded > 0:
		line = " " + theme.ExcludedText.Render(fmt.Sprintf("%d path(s) excluded", excluded))
	default:
		line = " " + lipgloss.NewStyle().Foreground(theme.TextMuted).Render("Ready")
	}
	line = util.TruncateString(line, width)
	return theme.BreadcrumbStyle.Width(width).Render(line)
}
