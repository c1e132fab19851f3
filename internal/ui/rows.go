package ui

import (
	"strings"

	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/ui/components"
)

// Filters are the display filters applied to the children of open rows.
// The root row is always shown.
type Filters struct {
	HideSmall  bool
	SmallBelow int64
	GreySmall  bool
	GreyBelow  int64
	HideHidden bool
}

func (f Filters) visible(n *model.Node, size int64) bool {
	if f.HideHidden && strings.HasPrefix(n.Name, ".") {
		return false
	}
	if f.HideSmall && size < f.SmallBelow {
		return false
	}
	return true
}

func nodeSize(n *model.Node, useApparent bool) int64 {
	if useApparent {
		return n.Size
	}
	return n.Usage
}

// flattener turns the loaded tree into the list of visible rows.
type flattener struct {
	open        map[string]bool
	sort        model.SortConfig
	useApparent bool
	filters     Filters
	excluded    func(path string) bool
}

func (fl flattener) rows(root *model.Node) []components.Row {
	if root == nil {
		return nil
	}
	var out []components.Row
	fl.appendNode(&out, root, 0)
	return out
}

func (fl flattener) appendNode(out *[]components.Row, n *model.Node, depth int) {
	open := n.Expanded() && fl.open[n.Path]
	*out = append(*out, components.Row{
		Node:     n,
		Depth:    depth,
		Open:     open,
		Excluded: fl.excluded != nil && fl.excluded(n.Path),
	})
	if !open {
		return
	}

	children := make([]*model.Node, 0, len(n.Children))
	for _, c := range n.Children {
		if fl.filters.visible(c, nodeSize(c, fl.useApparent)) {
			children = append(children, c)
		}
	}
	model.SortChildren(children, fl.sort, fl.useApparent)
	for _, c := range children {
		fl.appendNode(out, c, depth+1)
	}
}
