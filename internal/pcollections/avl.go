package pcollections

/*
Persistent AVL Map

Map is an immutable associative container. Every update returns a new map
that shares all untouched subtrees with the receiver, so keeping many
versions alive (one per program state) costs only the changed path.

1. Ordering:
	- Keys are ordered by Hash() only. This is fast but not a total order:
	unequal keys with the same hash are kept in a bucket chained from one
	tree node, in insertion-dependent but stable order.

2. Balance:
	- A node is rebalanced only when one side is more than two levels higher
	than the other. This is one level looser than textbook AVL and saves
	rotations on the write-heavy workloads of the engine.

3. Sharing:
	- Put of an existing key with an equal value, and Remove of an absent
	key, return the receiver unchanged. Callers rely on this to detect
	no-op transitions with a pointer comparison.
*/

// Hashable is implemented by map keys and values.
type Hashable[T any] interface {
	Hash() uint64
	Equal(other T) bool
}

// node is a tree node. A node created by newBucket only stores a key/value
// pair in the collision chain of a tree node; its children are always nil.
type node[K Hashable[K], V Hashable[V]] struct {
	left   *node[K, V]
	right  *node[K, V]
	bucket *node[K, V]
	key    K
	value  V
	height int
	hash   uint64
	size   int
}

func height[K Hashable[K], V Hashable[V]](n *node[K, V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func treeHash[K Hashable[K], V Hashable[V]](n *node[K, V]) uint64 {
	if n == nil {
		return 0
	}
	return n.hash
}

func treeSize[K Hashable[K], V Hashable[V]](n *node[K, V]) int {
	if n == nil {
		return 0
	}
	return n.size
}

// entryHash mixes key and value so that K ^ V is not 0 for identical elements.
func entryHash[K Hashable[K], V Hashable[V]](key K, value V) uint64 {
	return (31 * key.Hash()) ^ value.Hash()
}

func newNode[K Hashable[K], V Hashable[V]](l *node[K, V], key K, value V, bucket, r *node[K, V]) *node[K, V] {
	n := &node[K, V]{
		left:   l,
		right:  r,
		bucket: bucket,
		key:    key,
		value:  value,
		height: max(height(l), height(r)) + 1,
	}
	n.hash = treeHash(l) + treeHash(r) + entryHash(key, value)
	n.size = treeSize(l) + treeSize(r) + 1
	for b := bucket; b != nil; b = b.bucket {
		n.hash += entryHash(b.key, b.value)
		n.size++
	}
	return n
}

// rebuild copies old with new children.
func rebuild[K Hashable[K], V Hashable[V]](l, old, r *node[K, V]) *node[K, V] {
	return newNode(l, old.key, old.value, old.bucket, r)
}

func newBucket[K Hashable[K], V Hashable[V]](key K, value V, next *node[K, V]) *node[K, V] {
	return &node[K, V]{key: key, value: value, bucket: next}
}

func searchBucket[K Hashable[K], V Hashable[V]](key K, start *node[K, V]) *node[K, V] {
	for n := start; n != nil; n = n.bucket {
		if key.Equal(n.key) {
			return n
		}
	}
	return nil
}

func removeFromBucket[K Hashable[K], V Hashable[V]](start, victim *node[K, V]) *node[K, V] {
	var result *node[K, V]
	for n := start; n != nil; n = n.bucket {
		if n != victim {
			result = newBucket(n.key, n.value, result)
		}
	}
	return result
}

func put[K Hashable[K], V Hashable[V]](key K, value V, t *node[K, V]) *node[K, V] {
	if t == nil {
		return newNode(nil, key, value, nil, nil)
	}
	h, c := key.Hash(), t.key.Hash()
	switch {
	case h == c:
		if key.Equal(t.key) {
			if value.Equal(t.value) {
				return t
			}
			return newNode(t.left, key, value, t.bucket, t.right)
		}
		existing := searchBucket(key, t.bucket)
		if existing != nil && value.Equal(existing.value) {
			return t
		}
		chain := newBucket(t.key, t.value, removeFromBucket(t.bucket, existing))
		return newNode(t.left, key, value, chain, t.right)
	case h < c:
		left := put(key, value, t.left)
		if left == t.left {
			return t
		}
		return balance(left, t, t.right)
	default:
		right := put(key, value, t.right)
		if right == t.right {
			return t
		}
		return balance(t.left, t, right)
	}
}

func remove[K Hashable[K], V Hashable[V]](key K, t *node[K, V]) *node[K, V] {
	if t == nil {
		return nil
	}
	h, c := key.Hash(), t.key.Hash()
	switch {
	case h == c:
		if key.Equal(t.key) {
			if next := t.bucket; next != nil {
				return newNode(t.left, next.key, next.value, next.bucket, t.right)
			}
			return combine(t.left, t.right)
		}
		victim := searchBucket(key, t.bucket)
		if victim == nil {
			return t
		}
		return newNode(t.left, t.key, t.value, removeFromBucket(t.bucket, victim), t.right)
	case h < c:
		left := remove(key, t.left)
		if left == t.left {
			return t
		}
		return balance(left, t, t.right)
	default:
		right := remove(key, t.right)
		if right == t.right {
			return t
		}
		return balance(t.left, t, right)
	}
}

func combine[K Hashable[K], V Hashable[V]](l, r *node[K, V]) *node[K, V] {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	var least *node[K, V]
	right := removeMin(r, &least)
	return balance(l, least, right)
}

func removeMin[K Hashable[K], V Hashable[V]](t *node[K, V], removed **node[K, V]) *node[K, V] {
	if t.left == nil {
		*removed = t
		return t.right
	}
	return balance(removeMin(t.left, removed), t, t.right)
}

// balance rebuilds old with children l and r, rotating when one side is
// more than two levels higher.
func balance[K Hashable[K], V Hashable[V]](l, old, r *node[K, V]) *node[K, V] {
	if height(l) > height(r)+2 {
		ll, lr := l.left, l.right
		if height(ll) >= height(lr) {
			return rebuild(ll, l, rebuild(lr, old, r))
		}
		return rebuild(rebuild(ll, l, lr.left), lr, rebuild(lr.right, old, r))
	}
	if height(r) > height(l)+2 {
		rl, rr := r.left, r.right
		if height(rr) >= height(rl) {
			return rebuild(rebuild(l, old, rl), r, rr)
		}
		return rebuild(rebuild(l, old, rl.left), rl, rebuild(rl.right, r, rr))
	}
	return rebuild(l, old, r)
}

func get[K Hashable[K], V Hashable[V]](key K, t *node[K, V]) (V, bool) {
	h := key.Hash()
	for t != nil {
		c := t.key.Hash()
		switch {
		case h == c:
			if key.Equal(t.key) {
				return t.value, true
			}
			if b := searchBucket(key, t.bucket); b != nil {
				return b.value, true
			}
			var zero V
			return zero, false
		case h < c:
			t = t.left
		default:
			t = t.right
		}
	}
	var zero V
	return zero, false
}

// forEach visits the left subtree, the right subtree, then the node and its
// bucket. It stops as soon as fn returns false.
func forEach[K Hashable[K], V Hashable[V]](t *node[K, V], fn func(K, V) bool) bool {
	if t == nil {
		return true
	}
	if !forEach(t.left, fn) || !forEach(t.right, fn) {
		return false
	}
	for n := t; n != nil; n = n.bucket {
		if !fn(n.key, n.value) {
			return false
		}
	}
	return true
}
