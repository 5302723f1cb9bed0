package pcollections

import (
	"fmt"
	"strings"
)

type unit struct{}

func (unit) Hash() uint64    { return 0 }
func (unit) Equal(unit) bool { return true }

// Set is a persistent set. The zero value is the empty set.
type Set[K Hashable[K]] struct {
	m Map[K, unit]
}

// Add returns a set containing e. The receiver is returned when e is already present.
func (s Set[K]) Add(e K) Set[K] { return Set[K]{m: s.m.Put(e, unit{})} }

// Remove returns a set without e.
func (s Set[K]) Remove(e K) Set[K] { return Set[K]{m: s.m.Remove(e)} }

// Contains reports whether e is present.
func (s Set[K]) Contains(e K) bool { return s.m.Contains(e) }

// ForEach calls fn on every element until fn returns false.
func (s Set[K]) ForEach(fn func(K) bool) {
	s.m.ForEach(func(k K, _ unit) bool { return fn(k) })
}

// Slice returns the elements in traversal order.
func (s Set[K]) Slice() []K {
	out := make([]K, 0, s.Len())
	s.ForEach(func(k K) bool {
		out = append(out, k)
		return true
	})
	return out
}

func (s Set[K]) Len() int                { return s.m.Len() }
func (s Set[K]) IsEmpty() bool           { return s.m.IsEmpty() }
func (s Set[K]) Same(other Set[K]) bool  { return s.m.Same(other.m) }
func (s Set[K]) Hash() uint64            { return s.m.Hash() }
func (s Set[K]) Equal(other Set[K]) bool { return s.m.Equal(other.m) }

func (s Set[K]) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	first := true
	s.ForEach(func(k K) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%v", k)
		return true
	})
	sb.WriteByte(']')
	return sb.String()
}
