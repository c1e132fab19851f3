package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/spacescope/internal/coordinator"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/ops"
	"github.com/sadopc/spacescope/internal/scanner"
	"github.com/sadopc/spacescope/internal/ui/components"
	"github.com/sadopc/spacescope/internal/ui/style"
)

const defaultExportPath = "spacescope-export.json"

// AppState represents the application state.
type AppState int

const (
	StateScanning AppState = iota
	StateBrowsing
	StateHelp
)

// eventMsg carries one subscription event into Update. closed is set once
// the subscription has nothing more to deliver.
type eventMsg struct {
	sub    *coordinator.Subscription
	ev     coordinator.Event
	closed bool
}

// ExportDoneMsg is sent when export completes.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// App is the root Bubble Tea model. It owns no scanning state of its own:
// every tree it shows is a snapshot taken from the coordinator.
type App struct {
	ExportPath string
	Version    string

	coord    *coordinator.Coordinator
	rootPath string

	state  AppState
	width  int
	height int
	layout style.Layout

	root   *model.Node
	open   map[string]bool
	rows   []components.Row
	cursor int
	offset int

	sortConfig  model.SortConfig
	useApparent bool
	filters     Filters

	spin     spinner.Model
	progress scanner.Progress

	theme style.Theme
	keys  KeyMap

	statusMsg string
	fatalErr  error
}

// NewApp creates an App that browses rootPath through coord.
func NewApp(coord *coordinator.Coordinator, rootPath string, filters Filters) *App {
	theme := style.DefaultTheme()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Secondary)

	// Apparent size is the order expansions arrive in.
	return &App{
		coord:       coord,
		rootPath:    rootPath,
		state:       StateScanning,
		open:        make(map[string]bool),
		sortConfig:  model.DefaultSort(),
		useApparent: true,
		filters:     filters,
		spin:        sp,
		theme:       theme,
		keys:        DefaultKeyMap(),
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.startScan())
}

// waitForEvent reads one event; Update re-issues it until the terminal one.
func waitForEvent(sub *coordinator.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		return eventMsg{sub: sub, ev: ev, closed: !ok}
	}
}

func (a *App) startScan() tea.Cmd {
	a.state = StateScanning
	a.root = nil
	a.rows = nil
	a.open = make(map[string]bool)
	a.cursor, a.offset = 0, 0
	a.progress = scanner.Progress{}
	return waitForEvent(a.coord.StartScan(a.rootPath))
}

func (a *App) expand(path string) tea.Cmd {
	return waitForEvent(a.coord.Expand(path))
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout = style.NewLayout(msg.Width, msg.Height)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case eventMsg:
		return a, a.handleEvent(msg)

	case ExportDoneMsg:
		if msg.Err != nil {
			a.statusMsg = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			a.statusMsg = fmt.Sprintf("Exported to %s", msg.Path)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleEvent(msg eventMsg) tea.Cmd {
	if msg.closed {
		return nil
	}
	isRoot := msg.sub.Subject.Kind == coordinator.SubjectRoot
	path := msg.sub.Subject.Path

	switch msg.ev.Kind {
	case coordinator.EventProgress:
		if isRoot {
			a.progress = msg.ev.Progress
		}
		return waitForEvent(msg.sub)

	case coordinator.EventCompleted:
		if isRoot {
			a.fatalErr = nil
			a.root = msg.ev.Root
			a.open = map[string]bool{a.root.Path: true}
			a.cursor, a.offset = 0, 0
			if a.state == StateScanning {
				a.state = StateBrowsing
			}
			a.refreshRows()
			// The root's children are listed right away.
			return tea.Batch(tea.ClearScreen, a.expand(a.root.Path))
		}
		a.open[path] = true
		a.syncTree()
		return nil

	case coordinator.EventFailed:
		if isRoot {
			a.fatalErr = msg.ev.Err
			return tea.Quit
		}
		a.statusMsg = fmt.Sprintf("Cannot open %s: %v", model.DisplayName(path), msg.ev.Err)
		a.syncTree()
		return nil
	}

	// Cancelled: a newer request for the same subject is already running.
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		return a, tea.Quit
	}

	switch a.state {
	case StateScanning:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		return a, nil

	case StateHelp:
		if key.Matches(msg, a.keys.Help) || key.Matches(msg, a.keys.Close) {
			a.state = StateBrowsing
			return a, tea.ClearScreen
		}
		return a, nil

	case StateBrowsing:
		return a.handleBrowsingKey(msg)
	}

	return a, nil
}

func (a *App) handleBrowsingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.statusMsg = ""
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.state = StateHelp
		return a, tea.ClearScreen

	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-1)
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(1)
	case key.Matches(msg, a.keys.Top):
		a.cursor = 0
	case key.Matches(msg, a.keys.Bottom):
		a.cursor = max(len(a.rows)-1, 0)

	case key.Matches(msg, a.keys.Expand):
		return a, a.expandSelected()
	case key.Matches(msg, a.keys.Collapse):
		a.collapseSelected()
	case key.Matches(msg, a.keys.Toggle):
		if row, ok := a.selected(); ok && row.Open {
			a.collapseSelected()
			return a, nil
		}
		return a, a.expandSelected()

	case key.Matches(msg, a.keys.Exclude):
		a.toggleExclusion()
	case key.Matches(msg, a.keys.Refresh):
		return a, a.refreshSelected()
	case key.Matches(msg, a.keys.Rescan):
		return a, tea.Batch(tea.ClearScreen, a.startScan())
	case key.Matches(msg, a.keys.Export):
		return a, a.exportCmd()

	case key.Matches(msg, a.keys.SortSize):
		a.toggleSort(model.SortBySize)
	case key.Matches(msg, a.keys.SortName):
		a.toggleSort(model.SortByName)

	case key.Matches(msg, a.keys.ToggleApparent):
		a.useApparent = !a.useApparent
		a.refreshRows()
	case key.Matches(msg, a.keys.HideSmall):
		a.filters.HideSmall = !a.filters.HideSmall
		a.refreshRows()
	case key.Matches(msg, a.keys.GreySmall):
		a.filters.GreySmall = !a.filters.GreySmall
	case key.Matches(msg, a.keys.ToggleHidden):
		a.filters.HideHidden = !a.filters.HideHidden
		a.refreshRows()
	}

	return a, nil
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	switch a.state {
	case StateScanning:
		return components.RenderScanProgress(a.theme, a.spin.View(), a.rootPath, a.progress, a.width, a.height)
	case StateHelp:
		return components.RenderHelp(a.theme, a.keys.HelpSections(), a.width, a.height)
	}
	return a.renderBrowsing()
}

func (a *App) renderBrowsing() string {
	header := components.RenderHeader(a.theme, a.root, a.useApparent, a.width)
	activity := components.RenderActivity(a.theme, a.spin.View(), a.coord.Status(), len(a.coord.Exclusions()), a.width)
	filterBar := components.RenderFilterBar(a.theme, components.FilterInfo{
		HideSmall:  a.filters.HideSmall,
		SmallBelow: a.filters.SmallBelow,
		GreySmall:  a.filters.GreySmall,
		GreyBelow:  a.filters.GreyBelow,
		HideHidden: a.filters.HideHidden,
		Sort:       a.sortConfig,
	}, a.width)

	var rootSize int64
	if a.root != nil {
		rootSize = nodeSize(a.root, a.useApparent)
	}
	var greyBelow int64
	if a.filters.GreySmall {
		greyBelow = a.filters.GreyBelow
	}

	tv := &components.TreeView{
		Theme:       a.theme,
		Layout:      a.layout,
		Rows:        a.rows,
		Cursor:      a.cursor,
		Offset:      a.offset,
		UseApparent: a.useApparent,
		RootSize:    rootSize,
		GreyBelow:   greyBelow,
		Spinner:     a.spin.View(),
	}
	tv.EnsureVisible()
	a.offset = tv.Offset

	// Only the visible window needs the busy check.
	end := min(tv.Offset+a.layout.ContentHeight(), len(a.rows))
	for i := tv.Offset; i < end; i++ {
		a.rows[i].Loading = a.rows[i].Node.IsDir && a.coord.IsBusy(a.rows[i].Node.Path)
	}
	content := tv.Render()

	info := components.StatusInfo{
		RowCount:    len(a.rows),
		UseApparent: a.useApparent,
		Message:     a.statusMsg,
	}
	if row, ok := a.selected(); ok {
		info.Selected = row.Node
	}
	statusBar := components.RenderStatusBar(a.theme, info, a.width)

	return header + "\n" + activity + "\n" + filterBar + "\n" + content + "\n" + statusBar
}

func (a *App) selected() (components.Row, bool) {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return components.Row{}, false
	}
	return a.rows[a.cursor], true
}

func (a *App) moveCursor(delta int) {
	a.cursor += delta
	if a.cursor >= len(a.rows) {
		a.cursor = len(a.rows) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) expandSelected() tea.Cmd {
	row, ok := a.selected()
	if !ok || !row.Node.IsDir {
		return nil
	}
	n := row.Node
	switch {
	case n.Expanded():
		a.open[n.Path] = true
		a.refreshRows()
		return nil
	case row.Excluded:
		a.statusMsg = fmt.Sprintf("%s is excluded", n.Name)
		return nil
	case a.coord.IsBusy(n.Path):
		return nil
	}
	return a.expand(n.Path)
}

// collapseSelected closes an open row, or moves to the parent row.
func (a *App) collapseSelected() {
	row, ok := a.selected()
	if !ok {
		return
	}
	if row.Open {
		delete(a.open, row.Node.Path)
		a.refreshRows()
		return
	}
	for i := a.cursor - 1; i >= 0; i-- {
		if a.rows[i].Depth < row.Depth {
			a.cursor = i
			return
		}
	}
}

func (a *App) toggleExclusion() {
	row, ok := a.selected()
	if !ok {
		return
	}
	if row.Depth == 0 {
		a.statusMsg = "The scan root cannot be excluded"
		return
	}
	if a.coord.ToggleExclusion(row.Node.Path) {
		a.statusMsg = fmt.Sprintf("Excluded %s (press r on its parent to update sizes)", row.Node.Name)
	} else {
		a.statusMsg = fmt.Sprintf("Included %s", row.Node.Name)
	}
	a.refreshRows()
}

// refreshSelected re-lists the selected directory, or the directory that
// holds the selected file.
func (a *App) refreshSelected() tea.Cmd {
	row, ok := a.selected()
	if !ok {
		return nil
	}
	target := row.Node.Path
	if !row.Node.IsDir {
		for i := a.cursor - 1; i >= 0; i-- {
			if a.rows[i].Depth < row.Depth {
				target = a.rows[i].Node.Path
				break
			}
		}
	}
	return a.expand(target)
}

func (a *App) toggleSort(field model.SortField) {
	if a.sortConfig.Field == field {
		if a.sortConfig.Order == model.SortDesc {
			a.sortConfig.Order = model.SortAsc
		} else {
			a.sortConfig.Order = model.SortDesc
		}
	} else {
		a.sortConfig.Field = field
		a.sortConfig.Order = model.SortDesc
		if field == model.SortByName {
			a.sortConfig.Order = model.SortAsc
		}
	}
	a.refreshRows()
}

// syncTree takes a fresh snapshot after an expansion finished.
func (a *App) syncTree() {
	if root := a.coord.Root(); root != nil {
		a.root = root
	}
	a.refreshRows()
}

// refreshRows rebuilds the visible rows, keeping the cursor on the same
// path when it is still shown.
func (a *App) refreshRows() {
	var selPath string
	if row, ok := a.selected(); ok {
		selPath = row.Node.Path
	}

	a.rows = flattener{
		open:        a.open,
		sort:        a.sortConfig,
		useApparent: a.useApparent,
		filters:     a.filters,
		excluded:    a.coord.IsExcluded,
	}.rows(a.root)

	for i, row := range a.rows {
		if row.Node.Path == selPath {
			a.cursor = i
			return
		}
	}
	a.moveCursor(0)
}

// FatalError returns the root scan error that ended the session, if any.
func (a *App) FatalError() error { return a.fatalErr }

func (a *App) exportCmd() tea.Cmd {
	root := a.coord.Root()
	if root == nil {
		return nil
	}

	exportPath := a.ExportPath
	if exportPath == "" {
		exportPath = defaultExportPath
	}
	version := a.Version
	a.statusMsg = "Exporting..."

	return func() tea.Msg {
		err := ops.ExportJSON(root, exportPath, version)
		return ExportDoneMsg{Path: exportPath, Err: err}
	}
}
