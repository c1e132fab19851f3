// Package exclude holds the set of user-excluded paths. A path is excluded
// when it, or any of its ancestors, is a member.
package exclude

import (
	"path/filepath"
	"sort"
	"sync"
)

// Set is safe for concurrent use. Walks read it on every directory they
// enter, so a toggle takes effect for the rest of any in-flight scan.
type Set struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

// New returns a set seeded with paths.
func New(paths ...string) *Set {
	s := &Set{members: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		s.members[Normalize(p)] = struct{}{}
	}
	return s
}

// Normalize cleans p so that equivalent spellings map to one member.
func Normalize(p string) string {
	return filepath.Clean(p)
}

// Add inserts path. It returns false if the path was already a member.
func (s *Set) Add(path string) bool {
	path = Normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[path]; ok {
		return false
	}
	s.members[path] = struct{}{}
	return true
}

// Remove deletes path. It returns false if the path was not a member.
func (s *Set) Remove(path string) bool {
	path = Normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[path]; !ok {
		return false
	}
	delete(s.members, path)
	return true
}

// Toggle flips direct membership of path and returns the new state.
func (s *Set) Toggle(path string) bool {
	path = Normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[path]; ok {
		delete(s.members, path)
		return false
	}
	s.members[path] = struct{}{}
	return true
}

// Has reports direct membership only.
func (s *Set) Has(path string) bool {
	path = Normalize(path)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[path]
	return ok
}

// Contains reports whether path is a member or lies beneath one.
// Ancestors are compared as whole path segments, so /data/foobar is not
// under /data/foo.
func (s *Set) Contains(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.members) == 0 {
		return false
	}

	p := Normalize(path)
	for {
		if _, ok := s.members[p]; ok {
			return true
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

// Members returns the direct members in sorted order.
func (s *Set) Members() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of direct members.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}
