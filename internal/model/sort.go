package model

import (
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// SortField defines what to sort by.
type SortField int

const (
	SortBySize SortField = iota
	SortByName
)

// SortOrder defines ascending or descending.
type SortOrder int

const (
	SortDesc SortOrder = iota
	SortAsc
)

// SortConfig holds sort preferences.
type SortConfig struct {
	Field SortField
	Order SortOrder
	// DirsFirst keeps directories before files regardless of sort.
	DirsFirst bool
}

// DefaultSort is the order expansions are delivered in: largest first.
func DefaultSort() SortConfig {
	return SortConfig{
		Field: SortBySize,
		Order: SortDesc,
	}
}

// SortChildren sorts nodes in place. Equal keys fall back to the name in
// ascending natural order, then to the raw name, so the result is deterministic.
func SortChildren(children []*Node, cfg SortConfig, useApparent bool) {
	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i], children[j]

		if cfg.DirsFirst && a.IsDir != b.IsDir {
			return a.IsDir
		}

		switch cfg.Field {
		case SortBySize:
			sa, sb := a.Size, b.Size
			if !useApparent {
				sa, sb = a.Usage, b.Usage
			}
			if sa != sb {
				if cfg.Order == SortDesc {
					return sa > sb
				}
				return sa < sb
			}
			return nameLess(a.Name, b.Name)
		case SortByName:
			if cfg.Order == SortDesc {
				return nameLess(b.Name, a.Name)
			}
			return nameLess(a.Name, b.Name)
		default:
			return a.Size > b.Size
		}
	})
}

func nameLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		if natural.Less(la, lb) {
			return true
		}
		if natural.Less(lb, la) {
			return false
		}
	}
	return a < b
}
