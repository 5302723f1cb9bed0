package constraint

import (
	"sort"
	"strings"

	"github.com/gnolang/symex/internal/pcollections"
)

// ByDomain holds at most one constraint per domain for one value. The zero
// value is the shared empty set of constraints.
type ByDomain struct {
	m pcollections.Map[Domain, Constraint]
}

// Empty is the constraint set of a value nothing is known about.
var Empty ByDomain

// Of builds a ByDomain from cs. Later constraints replace earlier ones of
// the same domain.
func Of(cs ...Constraint) ByDomain {
	var b ByDomain
	for _, c := range cs {
		b = b.Put(c)
	}
	return b
}

// Put sets c for its domain.
func (b ByDomain) Put(c Constraint) ByDomain {
	return ByDomain{m: b.m.Put(c.domain, c)}
}

// Remove drops the constraint of domain d.
func (b ByDomain) Remove(d Domain) ByDomain {
	return ByDomain{m: b.m.Remove(d)}
}

// Get returns the constraint of domain d.
func (b ByDomain) Get(d Domain) (Constraint, bool) {
	return b.m.Get(d)
}

// Has reports whether c itself is present.
func (b ByDomain) Has(c Constraint) bool {
	got, ok := b.m.Get(c.domain)
	return ok && got == c
}

func (b ByDomain) IsEmpty() bool { return b.m.IsEmpty() }
func (b ByDomain) Len() int      { return b.m.Len() }

// Same reports whether no update happened between b and other.
func (b ByDomain) Same(other ByDomain) bool { return b.m.Same(other.m) }

// ForEach calls fn for every constraint until fn returns false.
func (b ByDomain) ForEach(fn func(Constraint) bool) {
	b.m.ForEach(func(_ Domain, c Constraint) bool { return fn(c) })
}

// Slice returns the constraints ordered by domain.
func (b ByDomain) Slice() []Constraint {
	out := make([]Constraint, 0, b.Len())
	b.ForEach(func(c Constraint) bool {
		out = append(out, c)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].domain < out[j].domain })
	return out
}

func (b ByDomain) Hash() uint64              { return b.m.Hash() }
func (b ByDomain) Equal(other ByDomain) bool { return b.m.Equal(other.m) }

func (b ByDomain) String() string {
	cs := b.Slice()
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}
