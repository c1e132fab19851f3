package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/spacescope/internal/ui/style"
)

// HelpSection is a titled group of key bindings.
type HelpSection struct {
	Name     string
	Bindings []key.Binding
}

// RenderHelp renders the help overlay from the bindings' help text.
func RenderHelp(theme style.Theme, sections []HelpSection, width, height int) string {
	boxWidth := 60
	if boxWidth > width-4 {
		boxWidth = width - 4
	}

	title := theme.ModalTitle.Render("  spacescope - Keyboard Shortcuts")

	var lines []string
	lines = append(lines, title)
	lines = append(lines, "")

	for _, sec := range sections {
		secTitle := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent).
			Render("  " + sec.Name)
		lines = append(lines, secTitle)

		for _, b := range sec.Bindings {
			h := b.Help()
			k := theme.HelpKey.
				Width(16).
				Render("    " + h.Key)
			desc := lipgloss.NewStyle().
				Foreground(theme.TextSecondary).
				Render(h.Desc)
			lines = append(lines, fmt.Sprintf("%s %s", k, desc))
		}
		lines = append(lines, "")
	}

	closeHint := lipgloss.NewStyle().
		Foreground(theme.TextMuted).
		Render("  Press ? or Esc to close")
	lines = append(lines, closeHint)

	content := strings.Join(lines, "\n")

	box := theme.ModalStyle.
		Width(max(boxWidth, 0)).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
