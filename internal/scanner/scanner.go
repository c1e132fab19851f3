package scanner

import (
	"context"
	"io/fs"
	"runtime"
)

// Entry is one item of a directory listing. Mode has lstat semantics:
// a symlink is reported as a symlink, never as its target.
type Entry struct {
	Name  string
	Mode  fs.FileMode
	Size  int64 // Apparent size in bytes
	Usage int64 // Disk usage (blocks * block size, or an estimate)
	// Err is set when the entry was listed but its metadata could not be read.
	Err error
}

// FileSystem is the storage a scan walks. Implementations must be safe for
// concurrent use.
type FileSystem interface {
	ReadDir(ctx context.Context, path string) ([]Entry, error)
	Lstat(ctx context.Context, path string) (Entry, error)
	Join(elem ...string) string
	Base(path string) string
}

// Excluder decides whether a path is skipped. It is consulted live, so a
// change made mid-scan applies to every directory not yet entered.
type Excluder interface {
	Contains(path string) bool
}

// Options configures the engine.
type Options struct {
	// Concurrency caps the goroutines walking directories (0 = auto).
	Concurrency int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{Concurrency: 0}
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0) * 3
}

// Totals is the outcome of ComputeSize.
type Totals struct {
	Bytes  int64
	Usage  int64
	Files  int64
	Dirs   int64
	Errors int64
}

func excluded(excl Excluder, path string) bool {
	return excl != nil && excl.Contains(path)
}

func countsTowardSize(mode fs.FileMode) bool {
	return mode.IsRegular() || mode&fs.ModeSymlink != 0
}
