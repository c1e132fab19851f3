package model

import (
	"path/filepath"
	"strings"
)

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// NodeFlag represents special file attributes.
type NodeFlag uint8

const (
	FlagNone    NodeFlag = 0
	FlagSymlink NodeFlag = 1 << iota
	// FlagError marks an entry that could not be read: a directory whose own
	// listing failed, or an entry whose metadata was unavailable. Its size
	// counts as zero.
	FlagError
	// FlagUsageEstimated marks nodes whose disk usage is estimated (not exact).
	FlagUsageEstimated
)

// Node is one entry of a scanned tree, addressed by its absolute path.
//
// Children is nil until the directory has been expanded. An expanded
// directory with nothing visible has a non-nil empty slice and Loaded set.
type Node struct {
	Path     string
	Name     string
	IsDir    bool
	Size     int64 // Apparent bytes, recursive for directories
	Usage    int64 // Allocated bytes, recursive for directories
	Flag     NodeFlag
	Children []*Node
	Loaded   bool
}

// NewRoot builds an unexpanded directory node for a completed root scan.
func NewRoot(path string, size, usage int64) *Node {
	return &Node{
		Path:  path,
		Name:  DisplayName(path),
		IsDir: true,
		Size:  size,
		Usage: usage,
	}
}

// DisplayName returns the final path component, or the path itself for
// roots such as "/" whose final component is empty.
func DisplayName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return path
	}
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	if vol := filepath.VolumeName(trimmed); vol == trimmed {
		return path
	}
	return trimmed
}

// Expanded reports whether the node's children have been loaded.
func (n *Node) Expanded() bool {
	return n.IsDir && n.Loaded && n.Children != nil
}

// Clone returns a deep copy of the node and its loaded descendants.
// The nil/empty distinction of Children is preserved.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// Walk visits n and every loaded descendant depth-first. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ChildrenSize sums the sizes of the loaded children.
func (n *Node) ChildrenSize() (size, usage int64) {
	for _, c := range n.Children {
		size = saturatingAddInt64(size, c.Size)
		usage = saturatingAddInt64(usage, c.Usage)
	}
	return size, usage
}

func saturatingAddInt64(a, b int64) int64 {
	if b > 0 && a > maxInt64-b {
		return maxInt64
	}
	if b < 0 && a < minInt64-b {
		return minInt64
	}
	return a + b
}

// SaturatingAdd adds b to a, clamping instead of wrapping on overflow.
func SaturatingAdd(a, b int64) int64 {
	return saturatingAddInt64(a, b)
}
