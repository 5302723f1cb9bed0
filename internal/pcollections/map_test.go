package pcollections

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intKey int

func (k intKey) Hash() uint64            { return uint64(k) * 2654435761 }
func (k intKey) Equal(other intKey) bool { return k == other }

// collidingKey hashes every key into one of three buckets.
type collidingKey int

func (k collidingKey) Hash() uint64                  { return uint64(k % 3) }
func (k collidingKey) Equal(other collidingKey) bool { return k == other }

type str string

func (s str) Hash() uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func (s str) Equal(other str) bool { return s == other }

func checkBalanced[K Hashable[K], V Hashable[V]](t *testing.T, n *node[K, V]) int {
	t.Helper()
	if n == nil {
		return 0
	}
	l := checkBalanced(t, n.left)
	r := checkBalanced(t, n.right)
	d := l - r
	if d < 0 {
		d = -d
	}
	require.LessOrEqual(t, d, 2, "height difference at key %v", n.key)
	require.Equal(t, max(l, r)+1, n.height)
	return n.height
}

func TestPutGet(t *testing.T) {
	t.Parallel()
	var m Map[intKey, str]
	m = m.Put(1, "a").Put(2, "b").Put(3, "c")

	v, ok := m.Get(2)
	assert.True(t, ok)
	assert.Equal(t, str("b"), v)

	_, ok = m.Get(42)
	assert.False(t, ok, "absent key must report not found")
	assert.Equal(t, 3, m.Len())
}

func TestPutEqualValueReturnsSameMap(t *testing.T) {
	t.Parallel()
	var m Map[intKey, str]
	m = m.Put(1, "a").Put(2, "b")

	again := m.Put(1, "a")
	assert.True(t, again.Same(m))

	changed := m.Put(1, "z")
	assert.False(t, changed.Same(m))
	v, _ := m.Get(1)
	assert.Equal(t, str("a"), v, "the original version must be untouched")
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	t.Parallel()
	var m Map[intKey, str]
	m = m.Put(1, "a")
	assert.True(t, m.Remove(7).Same(m))

	var empty Map[intKey, str]
	assert.True(t, empty.Remove(1).IsEmpty())
}

func TestCollisionBuckets(t *testing.T) {
	t.Parallel()
	var m Map[collidingKey, str]
	for i := 0; i < 30; i++ {
		m = m.Put(collidingKey(i), str(rune('a'+i%26)))
	}
	assert.Equal(t, 30, m.Len())
	for i := 0; i < 30; i++ {
		v, ok := m.Get(collidingKey(i))
		require.True(t, ok, "key %d", i)
		assert.Equal(t, str(rune('a'+i%26)), v)
	}

	// updating a key stored in a bucket with the same value is a no-op
	assert.True(t, m.Put(collidingKey(27), str(rune('a'+1))).Same(m))

	for i := 0; i < 30; i += 2 {
		m = m.Remove(collidingKey(i))
	}
	assert.Equal(t, 15, m.Len())
	for i := 0; i < 30; i++ {
		_, ok := m.Get(collidingKey(i))
		assert.Equal(t, i%2 == 1, ok, "key %d", i)
	}
	assert.True(t, m.Remove(collidingKey(0)).Same(m))
}

func TestOracle(t *testing.T) {
	t.Parallel()
	rnd := rand.New(rand.NewSource(7))
	oracle := map[intKey]str{}
	var m Map[intKey, str]

	for i := 0; i < 5000; i++ {
		k := intKey(rnd.Intn(300))
		if rnd.Intn(3) == 0 {
			delete(oracle, k)
			m = m.Remove(k)
		} else {
			v := str(rune('a' + rnd.Intn(4)))
			oracle[k] = v
			m = m.Put(k, v)
		}
	}

	require.Equal(t, len(oracle), m.Len())
	for k, v := range oracle {
		got, ok := m.Get(k)
		require.True(t, ok)
		require.Equal(t, v, got)
	}
	seen := 0
	m.ForEach(func(k intKey, v str) bool {
		seen++
		assert.Equal(t, oracle[k], v)
		return true
	})
	assert.Equal(t, len(oracle), seen)
	checkBalanced(t, m.root)
}

func TestRelaxedBalance(t *testing.T) {
	t.Parallel()
	var m Map[intKey, str]
	for i := 0; i < 1000; i++ {
		m = m.Put(intKey(i), "x")
	}
	checkBalanced(t, m.root)
}

func TestStructuralEquality(t *testing.T) {
	t.Parallel()
	var a, b Map[str, str]
	keys := []str{"x", "y", "z", "w", "v"}
	for _, k := range keys {
		a = a.Put(k, k)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b = b.Put(keys[i], keys[i])
	}
	b = b.Put("tmp", "tmp").Remove("tmp")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	c := b.Put("x", "other")
	assert.False(t, a.Equal(c))

	var empty Map[str, str]
	assert.Equal(t, uint64(0), empty.Hash())
	assert.True(t, empty.Equal(a.Remove("x").Remove("y").Remove("z").Remove("w").Remove("v")))
}

func TestForEachPostOrder(t *testing.T) {
	t.Parallel()
	var m Map[intKey, str]
	m = m.Put(2, "b").Put(1, "a").Put(3, "c")

	var order []intKey
	m.ForEach(func(k intKey, _ str) bool {
		order = append(order, k)
		return true
	})
	require.Len(t, order, 3)
	assert.Equal(t, m.root.key, order[2], "the root is visited after both subtrees")

	count := 0
	m.ForEach(func(intKey, str) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestSet(t *testing.T) {
	t.Parallel()
	var s Set[str]
	s = s.Add("a").Add("b")
	assert.True(t, s.Add("a").Same(s))
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
	assert.ElementsMatch(t, []str{"a", "b"}, s.Slice())

	s = s.Remove("a")
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 1, s.Len())
}
