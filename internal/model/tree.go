package model

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNodeNotFound is returned when a path is not part of the tree.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNotDirectory is returned when children are attached to a file.
	ErrNotDirectory = errors.New("not a directory")
)

// Tree is the authoritative scan tree. Nodes are indexed by path so an
// expansion result can be merged without walking from the root.
//
// Readers get deep copies; only the owner mutates nodes through
// SetRoot, Reset and ReplaceChildren.
type Tree struct {
	mu    sync.RWMutex
	root  *Node
	index map[string]*Node
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{index: make(map[string]*Node)}
}

// SetRoot replaces the whole tree with root and its loaded descendants.
func (t *Tree) SetRoot(root *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.root = root
	t.index = make(map[string]*Node)
	if root != nil {
		t.indexLocked(root)
	}
}

// Reset clears the tree.
func (t *Tree) Reset() {
	t.SetRoot(nil)
}

// Root returns a snapshot of the root, or nil when nothing has been scanned.
func (t *Tree) Root() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.Clone()
}

// RootPath returns the path of the current root, or "".
func (t *Tree) RootPath() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.root == nil {
		return ""
	}
	return t.root.Path
}

// Lookup returns a snapshot of the subtree at path.
func (t *Tree) Lookup(path string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.index[path]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// IsDir reports whether path is a known directory node.
func (t *Tree) IsDir(path string) (isDir, found bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.index[path]
	if !ok {
		return false, false
	}
	return n.IsDir, true
}

// ReplaceChildren installs children under the directory at path, replacing
// anything loaded there before, and marks it loaded.
func (t *Tree) ReplaceChildren(path string, children []*Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.index[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNodeNotFound)
	}
	if !parent.IsDir {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}

	for _, old := range parent.Children {
		t.unindexLocked(old)
	}
	if children == nil {
		children = []*Node{}
	}
	parent.Children = children
	parent.Loaded = true
	for _, c := range children {
		t.indexLocked(c)
	}
	return nil
}

// Len returns the number of indexed nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}

func (t *Tree) indexLocked(n *Node) {
	n.Walk(func(c *Node) bool {
		t.index[c.Path] = c
		return true
	})
}

func (t *Tree) unindexLocked(n *Node) {
	n.Walk(func(c *Node) bool {
		if t.index[c.Path] == c {
			delete(t.index, c.Path)
		}
		return true
	})
}
