package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Engine computes recursive directory sizes. Walks share one semaphore, so
// the goroutine count stays bounded however many sizes run at once.
type Engine struct {
	fs  FileSystem
	sem chan struct{}
}

// NewEngine creates an engine over fsys.
func NewEngine(fsys FileSystem, opts Options) *Engine {
	return &Engine{
		fs:  fsys,
		sem: make(chan struct{}, opts.concurrency()),
	}
}

// FileSystem returns the filesystem the engine walks.
func (e *Engine) FileSystem() FileSystem { return e.fs }

// ComputeSize returns the total size of everything under path that is not
// excluded. Symlinks count their own length and are never followed.
// Unreadable entries below path count as zero; an unreadable path returns a
// *ScanError. On cancellation the partial totals are discarded and the
// error matches ErrCancelled.
func (e *Engine) ComputeSize(ctx context.Context, path string, excl Excluder, progress chan<- Progress) (Totals, error) {
	if excluded(excl, path) {
		return Totals{}, nil
	}

	root, err := e.fs.Lstat(ctx, path)
	if err != nil {
		return Totals{}, newScanError("stat", path, err)
	}
	if !root.Mode.IsDir() {
		if !countsTowardSize(root.Mode) {
			return Totals{}, nil
		}
		return Totals{Bytes: root.Size, Usage: root.Usage, Files: 1}, nil
	}
	return e.computeDir(ctx, path, excl, progress)
}

// computeDir sizes a path already known to be a directory.
func (e *Engine) computeDir(ctx context.Context, path string, excl Excluder, progress chan<- Progress) (Totals, error) {
	entries, err := e.fs.ReadDir(ctx, path)
	if err != nil {
		return Totals{}, newScanError("read", path, err)
	}

	w := &walk{
		fs:       e.fs,
		excl:     excl,
		progress: progress,
		sem:      e.sem,
		start:    time.Now(),
	}
	w.visit(ctx, path, entries)
	w.wg.Wait()

	if err := ctx.Err(); err != nil {
		return Totals{}, cancelledError("scan", path, err)
	}
	return w.totals(), nil
}

// walk is the state of one ComputeSize call.
type walk struct {
	fs       FileSystem
	excl     Excluder
	progress chan<- Progress
	sem      chan struct{}
	wg       sync.WaitGroup
	start    time.Time

	bytes, usage, files, dirs, errCount atomic.Int64
}

func (w *walk) totals() Totals {
	return Totals{
		Bytes:  w.bytes.Load(),
		Usage:  w.usage.Load(),
		Files:  w.files.Load(),
		Dirs:   w.dirs.Load(),
		Errors: w.errCount.Load(),
	}
}

func (w *walk) scanDir(ctx context.Context, dirPath string) {
	select {
	case <-ctx.Done():
		return
	default:
	}

	// The set may have changed while this directory was queued.
	if excluded(w.excl, dirPath) {
		return
	}

	entries, err := w.fs.ReadDir(ctx, dirPath)
	if err != nil {
		w.errCount.Add(1)
		return
	}
	w.visit(ctx, dirPath, entries)
}

func (w *walk) visit(ctx context.Context, dirPath string, entries []Entry) {
	w.dirs.Add(1)
	sendProgress(w.progress, Progress{
		CurrentPath:  dirPath,
		FilesScanned: w.files.Load(),
		DirsScanned:  w.dirs.Load(),
		BytesFound:   w.bytes.Load(),
		Errors:       w.errCount.Load(),
		StartTime:    w.start,
		Duration:     time.Since(w.start),
	})

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if entry.Err != nil {
			w.errCount.Add(1)
			continue
		}

		childPath := w.fs.Join(dirPath, entry.Name)
		if excluded(w.excl, childPath) {
			continue
		}

		if entry.Mode.IsDir() {
			w.spawnScan(ctx, childPath)
			continue
		}
		if countsTowardSize(entry.Mode) {
			w.files.Add(1)
			w.bytes.Add(entry.Size)
			w.usage.Add(entry.Usage)
		}
	}
}

// spawnScan walks path on a new goroutine when a slot is free. If all
// workers are busy it scans synchronously in the current goroutine instead
// of spawning blocked goroutines.
func (w *walk) spawnScan(ctx context.Context, path string) {
	select {
	case w.sem <- struct{}{}:
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.scanDir(ctx, path)
		}()
	default:
		w.scanDir(ctx, path)
	}
}
