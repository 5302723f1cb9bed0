package pcollections

import (
	"fmt"
	"strings"
)

// Map is a persistent map. The zero value is the empty map.
type Map[K Hashable[K], V Hashable[V]] struct {
	root *node[K, V]
}

// Put returns a map where key maps to value. The receiver is returned as is
// when key already maps to an equal value.
func (m Map[K, V]) Put(key K, value V) Map[K, V] {
	return Map[K, V]{root: put(key, value, m.root)}
}

// Remove returns a map without key. Removing an absent key returns the receiver.
func (m Map[K, V]) Remove(key K) Map[K, V] {
	return Map[K, V]{root: remove(key, m.root)}
}

// Get returns the value of key and whether it was found.
func (m Map[K, V]) Get(key K) (V, bool) {
	return get(key, m.root)
}

// Contains reports whether key is present.
func (m Map[K, V]) Contains(key K) bool {
	_, ok := get(key, m.root)
	return ok
}

// ForEach calls fn on every entry until fn returns false.
func (m Map[K, V]) ForEach(fn func(K, V) bool) {
	forEach(m.root, fn)
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int { return treeSize(m.root) }

// IsEmpty reports whether the map has no entries.
func (m Map[K, V]) IsEmpty() bool { return m.root == nil }

// Same reports whether m and other share their root, i.e. no update
// happened between them.
func (m Map[K, V]) Same(other Map[K, V]) bool { return m.root == other.root }

// Hash is independent of insertion order.
func (m Map[K, V]) Hash() uint64 { return treeHash(m.root) }

// Equal reports whether both maps hold equal values for the same keys.
func (m Map[K, V]) Equal(other Map[K, V]) bool {
	if m.root == other.root {
		return true
	}
	if m.Len() != other.Len() || m.Hash() != other.Hash() {
		return false
	}
	equal := true
	m.ForEach(func(k K, v V) bool {
		ov, ok := other.Get(k)
		equal = ok && v.Equal(ov)
		return equal
	})
	return equal
}

func (m Map[K, V]) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	m.ForEach(func(k K, v V) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%v->%v", k, v)
		return true
	})
	sb.WriteByte('}')
	return sb.String()
}
