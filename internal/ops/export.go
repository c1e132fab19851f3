// Package ops writes snapshots of a scanned tree to disk.
package ops

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/sadopc/spacescope/internal/model"
)

// ncdu-compatible JSON format:
// [1, 0, {"progname":"spacescope","progver":"1.0","timestamp":1234567890},
//   [{"name":"/path","asize":123,"dsize":456},
//     {"name":"file1","asize":10,"dsize":20},
//     [{"name":"subdir","asize":30,"dsize":40,"unloaded":true}]
//   ]
// ]
//
// Directories whose children were never listed are written as a one-element
// array carrying "unloaded": true, so a reader can tell them from empty ones.

const progname = "spacescope"

type ncduHeader struct {
	Progname  string `json:"progname"`
	Progver   string `json:"progver"`
	Timestamp int64  `json:"timestamp"`
}

type ncduEntry struct {
	Name           string `json:"name"`
	Asize          int64  `json:"asize"`
	Dsize          int64  `json:"dsize,omitempty"`
	Err            bool   `json:"read_error,omitempty"`
	Symlink        bool   `json:"symlink,omitempty"`
	UsageEstimated bool   `json:"usage_estimated,omitempty"`
	Unloaded       bool   `json:"unloaded,omitempty"`
}

func entryFor(n *model.Node, name string) ncduEntry {
	return ncduEntry{
		Name:           name,
		Asize:          n.Size,
		Dsize:          n.Usage,
		Err:            n.Flag&model.FlagError != 0,
		Symlink:        n.Flag&model.FlagSymlink != 0,
		UsageEstimated: n.Flag&model.FlagUsageEstimated != 0,
		Unloaded:       n.IsDir && !n.Expanded(),
	}
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (ew *errWriter) writeJSON(v any) {
	if ew.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		ew.err = err
		return
	}
	_, ew.err = ew.w.Write(data)
}

// ExportJSON writes root to path, or to stdout when path is "-".
// File targets are written to a temp file and renamed into place while
// holding an advisory lock on path+".lock", so concurrent exports to the
// same file never interleave and a failed export leaves no partial file.
func ExportJSON(root *model.Node, path string, version string) (retErr error) {
	if root == nil {
		return errors.New("nothing to export: no scan has completed")
	}
	if path == "-" {
		return Export(os.Stdout, root, version)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".spacescope-export-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := Export(tmp, root, version); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, Rename cannot replace an existing destination.
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace export file %s: %w", path, err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return err
		}
	}
	return nil
}

// Export writes root to out in ncdu JSON format.
func Export(out io.Writer, root *model.Node, version string) error {
	if root == nil {
		return errors.New("nothing to export: no scan has completed")
	}
	bw := bufio.NewWriterSize(out, 64*1024)
	ew := &errWriter{w: bw}

	if version == "" {
		version = "dev"
	}
	ew.WriteString("[1, 0, ")
	ew.writeJSON(ncduHeader{
		Progname:  progname,
		Progver:   version,
		Timestamp: time.Now().Unix(),
	})
	ew.WriteString(",\n")

	// The root entry carries the full path.
	writeDir(ew, root, root.Path)

	ew.WriteString("\n]\n")
	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

func writeDir(ew *errWriter, dir *model.Node, name string) {
	ew.WriteString("[")
	ew.writeJSON(entryFor(dir, name))

	for _, child := range dir.Children {
		if ew.err != nil {
			return
		}
		ew.WriteString(",\n")
		if child.IsDir {
			writeDir(ew, child, child.Name)
			continue
		}
		ew.writeJSON(entryFor(child, child.Name))
	}

	ew.WriteString("]")
}
