package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalFS reads the local filesystem.
type LocalFS struct{}

func (LocalFS) ReadDir(ctx context.Context, path string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		// DirEntry.Info is an lstat, so symlinks stay symlinks.
		info, err := d.Info()
		if err != nil {
			out = append(out, Entry{Name: d.Name(), Mode: d.Type(), Err: err})
			continue
		}
		out = append(out, entryFromInfo(info))
	}
	return out, nil
}

func (LocalFS) Lstat(ctx context.Context, path string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, err
	}
	return entryFromInfo(info), nil
}

func (LocalFS) Join(elem ...string) string { return filepath.Join(elem...) }

func (LocalFS) Base(path string) string { return filepath.Base(path) }

func entryFromInfo(info fs.FileInfo) Entry {
	return Entry{
		Name:  info.Name(),
		Mode:  info.Mode(),
		Size:  info.Size(),
		Usage: getStatInfo(info).diskUsage,
	}
}
