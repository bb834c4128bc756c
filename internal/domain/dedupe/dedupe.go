// Package dedupe tracks keys that were already seen so repeated rows of a
// dataset are only scored once.
package dedupe

import (
	"strings"
	"sync"
)

// Set records seen keys. It is safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSet returns an empty Set sized for about n keys.
func NewSet(n int) *Set {
	if n < 0 {
		n = 0
	}
	return &Set{seen: make(map[string]struct{}, n)}
}

// SeenAndRecord reports whether key was already recorded and records it if
// not. The empty key is never recorded and never reported as seen.
func (s *Set) SeenAndRecord(key string) bool {
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = struct{}{}
	return false
}

// Key joins parts into a composite key. It returns "" when the first part is
// empty, so rows without an identity are never treated as duplicates.
func Key(parts ...string) string {
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return strings.Join(parts, "\x1f")
}

// Filter keeps the first item for every key and returns the kept items with
// the number dropped.
func Filter[T any](items []T, key func(T) string) ([]T, int) {
	set := NewSet(len(items))
	out := make([]T, 0, len(items))
	dropped := 0
	for _, it := range items {
		if set.SeenAndRecord(key(it)) {
			dropped++
			continue
		}
		out = append(out, it)
	}
	return out, dropped
}
