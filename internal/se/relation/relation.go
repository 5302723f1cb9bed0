// Package relation implements the algebra of binary relations between
// symbolic values: equality, ordering and method equality, their inverses,
// and the sound rules to derive new relations from known ones.
package relation

import "fmt"

const (
	maxIterations       = 10_000
	maxDeducedRelations = 1_000
)

// Operand is a value a relation talks about. Operands are identified by ID.
type Operand interface {
	ID() int
}

// Relation asserts "Left Kind Right".
type Relation struct {
	Kind  Kind
	Left  Operand
	Right Operand
}

// New returns the relation "left kind right".
func New(kind Kind, left, right Operand) Relation {
	kind.mustBeValid()
	if left == nil || right == nil {
		panic("relation: nil operand")
	}
	return Relation{Kind: kind, Left: left, Right: right}
}

// Normalize rewrites > and <= into their swapped forms so that a relation
// set only holds ==, !=, <, >=, .Equal and !.Equal.
func (r Relation) Normalize() Relation {
	if r.Kind.normalized() {
		return r
	}
	return r.Symmetric()
}

// Inverse returns the relation holding exactly when r does not.
func (r Relation) Inverse() Relation {
	return Relation{Kind: r.Kind.Inverse(), Left: r.Left, Right: r.Right}
}

// Symmetric returns the same fact with swapped operands.
func (r Relation) Symmetric() Relation {
	return Relation{Kind: r.Kind.Symmetric(), Left: r.Right, Right: r.Left}
}

// SameOperand reports whether both sides are the same value.
func (r Relation) SameOperand() bool {
	return r.Left.ID() == r.Right.ID()
}

// SameOperandsAs reports whether r and o relate the same two values, in
// any order.
func (r Relation) SameOperandsAs(o Relation) bool {
	l, rr := r.Left.ID(), r.Right.ID()
	ol, or := o.Left.ID(), o.Right.ID()
	return (l == ol && rr == or) || (l == or && rr == ol)
}

// Involves reports whether id is one of the operands.
func (r Relation) Involves(id int) bool {
	return r.Left.ID() == id || r.Right.ID() == id
}

// Equal compares the facts, so "a > b" equals "b < a" and "a == b" equals "b == a".
func (r Relation) Equal(o Relation) bool {
	r, o = r.Normalize(), o.Normalize()
	if r.Kind != o.Kind {
		return false
	}
	if r.Left.ID() == o.Left.ID() && r.Right.ID() == o.Right.ID() {
		return true
	}
	return r.Kind.Commutative() && r.Left.ID() == o.Right.ID() && r.Right.ID() == o.Left.ID()
}

func (r Relation) Hash() uint64 {
	n := r.Normalize()
	l, rr := uint64(n.Left.ID()), uint64(n.Right.ID())
	if n.Kind.Commutative() {
		return uint64(n.Kind)*1_000_003 + (l + rr) + (l*rr)*31
	}
	return uint64(n.Kind)*1_000_003 + l*131 + rr
}

func (r Relation) String() string {
	return fmt.Sprintf("SV_%d%sSV_%d", r.Left.ID(), r.Kind, r.Right.ID())
}

// ImpliedBy checks r against a single known relation.
func (r Relation) ImpliedBy(known Relation) State {
	if r.Equal(known) {
		return Fulfilled
	}
	if r.Inverse().Equal(known) {
		return Unfulfilled
	}
	if !r.SameOperandsAs(known) {
		return Undetermined
	}
	checked := r
	if checked.Left.ID() != known.Left.ID() {
		checked = checked.Symmetric()
	}
	return solve(known.Kind, checked.Kind)
}

// Resolve checks r against the known relations and everything derivable
// from them by composition. Derivation is bounded; once a bound is hit the
// answer is Undetermined.
func (r Relation) Resolve(known []Relation) State {
	if r.SameOperand() {
		if r.Kind.Reflexive() {
			return Fulfilled
		}
		return Unfulfilled
	}
	for _, k := range known {
		if s := r.ImpliedBy(k); s != Undetermined {
			return s
		}
	}

	seen := make([]Relation, 0, len(known))
	seen = append(seen, known...)
	worklist := append([]Relation(nil), known...)
	iterations, deduced := 0, 0
	for len(worklist) > 0 {
		p := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for i := 0; i < len(seen); i++ {
			iterations++
			if iterations > maxIterations {
				return Undetermined
			}
			d, ok := deduce(p, seen[i])
			if !ok || contains(seen, d) {
				continue
			}
			if s := r.ImpliedBy(d); s != Undetermined {
				return s
			}
			deduced++
			if deduced > maxDeducedRelations {
				return Undetermined
			}
			seen = append(seen, d)
			worklist = append(worklist, d)
		}
	}
	return Undetermined
}

// Transitive returns the relations derivable from r and the known
// relations, by composition or simplification, excluding r and the known
// relations themselves.
func (r Relation) Transitive(known []Relation) []Relation {
	var derived []Relation
	worklist := []Relation{r}
	all := append([]Relation{r}, known...)
	iterations := 0
	for len(worklist) > 0 {
		p := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, k := range known {
			iterations++
			if iterations > maxIterations || len(derived) >= maxDeducedRelations {
				return derived
			}
			d, ok := deduce(p, k)
			if !ok || contains(all, d) {
				continue
			}
			all = append(all, d)
			derived = append(derived, d)
			worklist = append(worklist, d)
		}
	}
	return derived
}

// Simplify merges two facts on the same pair of values into a stronger
// one: a >= b and b >= a give a == b.
func Simplify(r1, r2 Relation) (Relation, bool) {
	r1, r2 = r1.Normalize(), r2.Normalize()
	if r1.Kind != GreaterThanOrEqual || r2.Kind != GreaterThanOrEqual || r1.SameOperand() {
		return Relation{}, false
	}
	if r1.Left.ID() != r2.Right.ID() || r1.Right.ID() != r2.Left.ID() {
		return Relation{}, false
	}
	return New(Equal, r1.Left, r1.Right), true
}

func deduce(r1, r2 Relation) (Relation, bool) {
	if d, ok := Simplify(r1, r2); ok {
		return d, true
	}
	return Combine(r1, r2)
}

// Combine derives the relation between the two non-shared operands of r1
// and r2. It reports false when r1 and r2 share no operand, share both,
// or no sound rule applies.
func Combine(r1, r2 Relation) (Relation, bool) {
	if r1.SameOperandsAs(r2) || r1.SameOperand() || r2.SameOperand() {
		return Relation{}, false
	}
	switch {
	case r1.Right.ID() == r2.Left.ID():
	case r1.Right.ID() == r2.Right.ID():
		r2 = r2.Symmetric()
	case r1.Left.ID() == r2.Left.ID():
		r1 = r1.Symmetric()
	case r1.Left.ID() == r2.Right.ID():
		r1, r2 = r1.Symmetric(), r2.Symmetric()
	default:
		return Relation{}, false
	}
	k, ok := compose(r1.Kind, r2.Kind)
	if !ok {
		return Relation{}, false
	}
	return New(k, r1.Left, r2.Right).Normalize(), true
}

func contains(rs []Relation, r Relation) bool {
	for _, x := range rs {
		if x.Equal(r) {
			return true
		}
	}
	return false
}
