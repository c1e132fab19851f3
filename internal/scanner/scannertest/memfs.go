// Package scannertest provides an in-memory scanner.FileSystem whose
// listings can be held open, for deterministic concurrency tests.
package scannertest

import (
	"context"
	"io/fs"
	pathpkg "path"
	"sort"
	"sync"

	"github.com/sadopc/spacescope/internal/scanner"
)

type memNode struct {
	mode     fs.FileMode
	size     int64
	children map[string]struct{}
	readErr  error
	statErr  error
}

// FS is an in-memory filesystem with POSIX paths. All paths are absolute.
type FS struct {
	mu    sync.Mutex
	nodes map[string]*memNode
	gates map[string]*Gate
	reads map[string]int
}

// New returns an FS containing only "/".
func New() *FS {
	f := &FS{
		nodes: make(map[string]*memNode),
		gates: make(map[string]*Gate),
		reads: make(map[string]int),
	}
	f.nodes["/"] = &memNode{mode: fs.ModeDir | 0o755, children: map[string]struct{}{}}
	return f
}

// Dir creates path and any missing parents.
func (f *FS) Dir(path string) *FS {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirAllLocked(pathpkg.Clean(path))
	return f
}

// File creates a regular file of size bytes.
func (f *FS) File(path string, size int64) *FS {
	return f.add(path, &memNode{mode: 0o644, size: size})
}

// Symlink creates a link whose own stored length is size.
func (f *FS) Symlink(path string, size int64) *FS {
	return f.add(path, &memNode{mode: fs.ModeSymlink | 0o777, size: size})
}

// Special creates a named pipe.
func (f *FS) Special(path string) *FS {
	return f.add(path, &memNode{mode: fs.ModeNamedPipe | 0o644})
}

// FailRead makes listing path return err.
func (f *FS) FailRead(path string, err error) *FS {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[pathpkg.Clean(path)]; ok {
		n.readErr = err
	}
	return f
}

// FailStat makes path show up in its parent's listing without metadata.
func (f *FS) FailStat(path string, err error) *FS {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[pathpkg.Clean(path)]; ok {
		n.statErr = err
	}
	return f
}

// Remove deletes path and everything below it.
func (f *FS) Remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = pathpkg.Clean(path)
	for p := range f.nodes {
		if p == path || (len(p) > len(path) && p[:len(path)] == path && p[len(path)] == '/') {
			delete(f.nodes, p)
		}
	}
	if parent, ok := f.nodes[pathpkg.Dir(path)]; ok {
		delete(parent.children, pathpkg.Base(path))
	}
}

// Hold makes the next listings of path block until the returned gate is
// released or the caller's context ends.
func (f *FS) Hold(path string) *Gate {
	g := &Gate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.mu.Lock()
	f.gates[pathpkg.Clean(path)] = g
	f.mu.Unlock()
	return g
}

// Reads returns how many times path has been listed.
func (f *FS) Reads(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[pathpkg.Clean(path)]
}

func (f *FS) ReadDir(ctx context.Context, path string) ([]scanner.Entry, error) {
	path = pathpkg.Clean(path)

	f.mu.Lock()
	f.reads[path]++
	gate := f.gates[path]
	f.mu.Unlock()

	if gate != nil {
		gate.enter()
		select {
		case <-gate.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[path]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}
	if !n.mode.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: scanner.ErrNotDirectory}
	}
	if n.readErr != nil {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: n.readErr}
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]scanner.Entry, 0, len(names))
	for _, name := range names {
		c := f.nodes[pathpkg.Join(path, name)]
		if c.statErr != nil {
			out = append(out, scanner.Entry{Name: name, Mode: c.mode.Type(), Err: c.statErr})
			continue
		}
		out = append(out, scanner.Entry{Name: name, Mode: c.mode, Size: c.size, Usage: c.size})
	}
	return out, nil
}

func (f *FS) Lstat(ctx context.Context, path string) (scanner.Entry, error) {
	if err := ctx.Err(); err != nil {
		return scanner.Entry{}, err
	}
	path = pathpkg.Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[path]
	if !ok {
		return scanner.Entry{}, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	return scanner.Entry{Name: pathpkg.Base(path), Mode: n.mode, Size: n.size, Usage: n.size}, nil
}

func (f *FS) Join(elem ...string) string { return pathpkg.Join(elem...) }

func (f *FS) Base(path string) string { return pathpkg.Base(path) }

func (f *FS) add(path string, n *memNode) *FS {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = pathpkg.Clean(path)
	parent := f.mkdirAllLocked(pathpkg.Dir(path))
	parent.children[pathpkg.Base(path)] = struct{}{}
	f.nodes[path] = n
	return f
}

func (f *FS) mkdirAllLocked(path string) *memNode {
	if n, ok := f.nodes[path]; ok {
		return n
	}
	parent := f.mkdirAllLocked(pathpkg.Dir(path))
	n := &memNode{mode: fs.ModeDir | 0o755, children: map[string]struct{}{}}
	parent.children[pathpkg.Base(path)] = struct{}{}
	f.nodes[path] = n
	return n
}

// Gate holds a directory listing open.
type Gate struct {
	once    sync.Once
	entered chan struct{}
	relOnce sync.Once
	release chan struct{}
}

func (g *Gate) enter() {
	g.once.Do(func() { close(g.entered) })
}

// Entered is closed once a listing is blocked on the gate.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets blocked and future listings proceed.
func (g *Gate) Release() {
	g.relOnce.Do(func() { close(g.release) })
}
