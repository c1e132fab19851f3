package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sadopc/spacescope/internal/model"
)

// ImportJSON reads a tree written by ExportJSON (or by ncdu). Directories
// marked unloaded come back with nil Children; all others are expanded.
func ImportJSON(path string) (*model.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open import file: %w", err)
	}

	// Top-level array: [major, minor, header, rootDir]
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("invalid ncdu format: expected at least 4 elements, got %d", len(raw))
	}

	root, err := parseDir(raw[3], "")
	if err != nil {
		return nil, fmt.Errorf("cannot parse root directory: %w", err)
	}
	return root, nil
}

func parseDir(data json.RawMessage, parentPath string) (*model.Node, error) {
	// A directory is an array: [{dir_entry}, child1, child2, ...]
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("directory is not an array: %w", err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("empty directory array")
	}

	var entry ncduEntry
	if err := json.Unmarshal(elements[0], &entry); err != nil {
		return nil, fmt.Errorf("cannot parse directory entry: %w", err)
	}

	var dir *model.Node
	if parentPath == "" {
		dir = model.NewRoot(entry.Name, entry.Asize, entry.Dsize)
	} else {
		dir = nodeFromEntry(entry, parentPath)
	}
	dir.IsDir = true
	dir.Flag = flagsOf(entry)
	if entry.Unloaded {
		return dir, nil
	}

	dir.Children = make([]*model.Node, 0, len(elements)-1)
	dir.Loaded = true
	for _, child := range elements[1:] {
		trimmed := bytes.TrimLeft(child, " \t\r\n")
		if len(trimmed) == 0 {
			continue
		}

		switch trimmed[0] {
		case '[':
			sub, err := parseDir(child, dir.Path)
			if err != nil {
				return nil, err
			}
			dir.Children = append(dir.Children, sub)
		case '{':
			var fileEntry ncduEntry
			if err := json.Unmarshal(child, &fileEntry); err != nil {
				return nil, fmt.Errorf("cannot parse file entry: %w", err)
			}
			n := nodeFromEntry(fileEntry, dir.Path)
			n.Flag = flagsOf(fileEntry)
			dir.Children = append(dir.Children, n)
		}
	}

	// ncdu records a directory's own inode size rather than the recursive
	// total, so take whichever is larger.
	if size, usage := dir.ChildrenSize(); size > dir.Size {
		dir.Size, dir.Usage = size, max(usage, dir.Usage)
	}
	return dir, nil
}

func nodeFromEntry(e ncduEntry, parentPath string) *model.Node {
	return &model.Node{
		Path:  filepath.Join(parentPath, e.Name),
		Name:  e.Name,
		Size:  e.Asize,
		Usage: e.Dsize,
	}
}

func flagsOf(e ncduEntry) model.NodeFlag {
	var flag model.NodeFlag
	if e.Err {
		flag |= model.FlagError
	}
	if e.Symlink {
		flag |= model.FlagSymlink
	}
	if e.UsageEstimated {
		flag |= model.FlagUsageEstimated
	}
	return flag
}
