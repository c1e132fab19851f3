package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/spacescope/internal/scanner"
	"github.com/sadopc/spacescope/internal/ui/style"
	"github.com/sadopc/spacescope/internal/util"
)

// RenderScanProgress renders the overlay shown while the root is sized.
func RenderScanProgress(theme style.Theme, spinner, rootPath string, progress scanner.Progress, width, height int) string {
	boxWidth := 56
	if boxWidth > width-4 {
		boxWidth = width - 4
	}

	var lines []string

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Primary).
		Render("  " + spinner + " Sizing " + util.TruncateString(rootPath, max(boxWidth-14, 1)))

	lines = append(lines, title)
	lines = append(lines, "")

	statStyle := lipgloss.NewStyle().Foreground(theme.TextSecondary)
	lines = append(lines,
		statStyle.Render(fmt.Sprintf("  Files:  %s", util.FormatCount(progress.FilesScanned))),
		statStyle.Render(fmt.Sprintf("  Dirs:   %s", util.FormatCount(progress.DirsScanned))),
		statStyle.Render(fmt.Sprintf("  Size:   %s", util.FormatSize(progress.BytesFound))),
		statStyle.Render(fmt.Sprintf("  Speed:  %s items/s", util.FormatCount(int64(progress.ItemsPerSecond())))),
	)

	if progress.Errors > 0 {
		lines = append(lines, theme.ErrorText.Render(fmt.Sprintf("  Errors: %d", progress.Errors)))
	}

	lines = append(lines, "")
	if progress.CurrentPath != "" {
		current := util.TruncateString(progress.CurrentPath, max(boxWidth-8, 1))
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextMuted).Render("  "+current))
	}
	elapsed := fmt.Sprintf("  Elapsed: %.1fs", progress.Duration.Seconds())
	lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextMuted).Render(elapsed))

	content := strings.Join(lines, "\n")

	box := theme.ModalStyle.
		Width(max(boxWidth, 0)).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
