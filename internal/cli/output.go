package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/util"
)

// printer writes the headless listing. Colours are used only on a terminal.
type printer struct {
	w     io.Writer
	dir   *color.Color
	size  *color.Color
	muted *color.Color
	warn  *color.Color
}

func newPrinter(w io.Writer) *printer {
	p := &printer{
		w:     w,
		dir:   color.New(color.FgBlue, color.Bold),
		size:  color.New(color.FgCyan),
		muted: color.New(color.FgHiBlack),
		warn:  color.New(color.FgYellow),
	}
	enable := isTerminal(w)
	for _, c := range []*color.Color{p.dir, p.size, p.muted, p.warn} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// tree prints root followed by its loaded descendants down to depth.
func (p *printer) tree(root *model.Node, depth int) {
	if root == nil {
		return
	}
	var files, dirs int64
	root.Walk(func(n *model.Node) bool {
		if n == root {
			return true
		}
		if n.IsDir {
			dirs++
		} else {
			files++
		}
		return true
	})

	fmt.Fprintf(p.w, "%s  %s apparent, %s on disk\n",
		p.dir.Sprint(root.Path),
		p.size.Sprint(util.FormatSize(root.Size)),
		p.size.Sprint(util.FormatSize(root.Usage)))
	if depth > 0 && root.Expanded() {
		fmt.Fprintf(p.w, "%s\n", p.muted.Sprintf("%s entries listed (%s dirs)",
			util.FormatCount(files+dirs), util.FormatCount(dirs)))
	}
	p.children(root, 1, depth)
}

func (p *printer) children(dir *model.Node, level, depth int) {
	if level > depth || !dir.Expanded() {
		return
	}
	for _, c := range dir.Children {
		p.row(c, level)
		if c.IsDir {
			p.children(c, level+1, depth)
		}
	}
}

func (p *printer) row(n *model.Node, level int) {
	indent := strings.Repeat("  ", level)
	name := n.Name
	if n.IsDir {
		name = p.dir.Sprint(name + "/")
	}

	var notes []string
	if n.Flag&model.FlagSymlink != 0 {
		notes = append(notes, "symlink")
	}
	if n.Flag&model.FlagError != 0 {
		notes = append(notes, p.warn.Sprint("unreadable"))
	}
	if n.Flag&model.FlagUsageEstimated != 0 {
		notes = append(notes, "estimated")
	}
	suffix := ""
	if len(notes) > 0 {
		suffix = " " + p.muted.Sprint("("+strings.Join(notes, ", ")+")")
	}

	// Rows arrive ordered by apparent size, so that is the size shown.
	fmt.Fprintf(p.w, "%s%s  %s%s\n", indent, p.size.Sprintf("%10s", util.FormatSize(n.Size)), name, suffix)
}

// isTerminal reports whether w is a TTY. NO_COLOR is honoured through
// color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
