package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/sadopc/spacescope/internal/ui/components"
)

// KeyMap holds all key bindings for the application.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Toggle   key.Binding

	Exclude key.Binding
	Refresh key.Binding
	Rescan  key.Binding
	Export  key.Binding

	// Sort
	SortSize key.Binding
	SortName key.Binding

	// Display toggles
	ToggleApparent key.Binding
	HideSmall      key.Binding
	GreySmall      key.Binding
	ToggleHidden   key.Binding

	Help      key.Binding
	Close     key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "first row"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "last row"),
		),
		Expand: key.NewBinding(
			key.WithKeys("right", "l", "enter"),
			key.WithHelp("→/l/enter", "expand directory"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse / go to parent"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "expand / collapse"),
		),
		Exclude: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "exclude / include path"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload selected directory"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "rescan from root"),
		),
		Export: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export loaded tree to JSON"),
		),
		SortSize: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort by size"),
		),
		SortName: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "sort by name"),
		),
		ToggleApparent: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "apparent / disk size"),
		),
		HideSmall: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "hide small entries"),
		),
		GreySmall: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "grey out small entries"),
		),
		ToggleHidden: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "hide dotfiles"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
	}
}

// HelpSections groups the bindings for the help overlay.
func (k KeyMap) HelpSections() []components.HelpSection {
	return []components.HelpSection{
		{Name: "Navigation", Bindings: []key.Binding{k.Up, k.Down, k.Top, k.Bottom, k.Expand, k.Collapse, k.Toggle}},
		{Name: "Scanning", Bindings: []key.Binding{k.Exclude, k.Refresh, k.Rescan, k.Export}},
		{Name: "Display", Bindings: []key.Binding{k.SortSize, k.SortName, k.ToggleApparent, k.HideSmall, k.GreySmall, k.ToggleHidden}},
		{Name: "General", Bindings: []key.Binding{k.Help, k.Quit}},
	}
}
