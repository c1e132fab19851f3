package scanner

import (
	"context"
	"io/fs"
	"runtime"

	"github.com/sadopc/spacescope/internal/model"
	"golang.org/x/sync/errgroup"
)

// Loader lists one directory level on demand and sizes each subdirectory.
type Loader struct {
	engine *Engine
	fs     FileSystem
	limit  int
	flag   model.NodeFlag
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithParallelism caps how many subdirectories are sized at once.
func WithParallelism(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithNodeFlag marks every produced node, e.g. FlagUsageEstimated for
// filesystems that cannot report allocated blocks.
func WithNodeFlag(f model.NodeFlag) LoaderOption {
	return func(l *Loader) { l.flag |= f }
}

// NewLoader creates a loader that sizes directories with engine.
func NewLoader(engine *Engine, opts ...LoaderOption) *Loader {
	l := &Loader{
		engine: engine,
		fs:     engine.FileSystem(),
		limit:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Expand returns the visible children of dirPath ordered by size
// (largest first, ties by name). Excluded entries are omitted. A
// subdirectory that cannot be read is kept with size zero and FlagError.
// If dirPath itself cannot be listed the result is a *ScanError and no
// children are returned.
func (l *Loader) Expand(ctx context.Context, dirPath string, excl Excluder, progress chan<- Progress) ([]*model.Node, error) {
	entries, err := l.fs.ReadDir(ctx, dirPath)
	if err != nil {
		return nil, newScanError("expand", dirPath, err)
	}

	children := make([]*model.Node, 0, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.limit)

	for _, entry := range entries {
		childPath := l.fs.Join(dirPath, entry.Name)
		if excluded(excl, childPath) {
			continue
		}

		node := &model.Node{
			Path:  childPath,
			Name:  entry.Name,
			IsDir: entry.Mode.IsDir(),
			Flag:  l.flag,
		}
		if entry.Mode&fs.ModeSymlink != 0 {
			node.Flag |= model.FlagSymlink
		}
		children = append(children, node)

		switch {
		case entry.Err != nil:
			node.Flag |= model.FlagError
		case node.IsDir:
			g.Go(func() error {
				t, err := l.engine.computeDir(gctx, node.Path, excl, progress)
				if err != nil {
					if IsCancelled(err) {
						return err
					}
					node.Flag |= model.FlagError
					return nil
				}
				node.Size, node.Usage = t.Bytes, t.Usage
				return nil
			})
		case countsTowardSize(entry.Mode):
			node.Size, node.Usage = entry.Size, entry.Usage
		}
	}

	if err := g.Wait(); err != nil {
		return nil, cancelledError("expand", dirPath, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelledError("expand", dirPath, err)
	}

	// Drop anything excluded while the sizes were being computed.
	visible := children[:0]
	for _, c := range children {
		if !excluded(excl, c.Path) {
			visible = append(visible, c)
		}
	}

	model.SortChildren(visible, model.DefaultSort(), true)
	return visible, nil
}
