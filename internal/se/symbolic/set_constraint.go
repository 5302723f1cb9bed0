package symbolic

import (
	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/relation"
)

// SetConstraint asserts c on v in s. It returns no state when c
// contradicts what s knows, and several states when the fact had to be
// propagated to operands that could take it in more than one way.
func (v *Value) SetConstraint(s *State, c constraint.Constraint) []*State {
	switch v.kind {
	case NullLiteral:
		if c.Domain() == constraint.Nullness && c != constraint.Null {
			return nil
		}
		return []*State{s}
	case TrueLiteral, FalseLiteral:
		if c == constraint.Null || (c.Domain() == constraint.Boolean && c != constraint.Bool(v.kind == TrueLiteral)) {
			return nil
		}
		return []*State{s}
	}

	if existing, ok := s.Constraint(v, c.Domain()); ok {
		if existing == c {
			return []*State{s}
		}
		return nil
	}

	if c.Domain() == constraint.Boolean {
		switch v.kind {
		case NullCheck:
			return addTo(v, c, v.setNullCheck(s, c))
		case Not:
			inverse, _ := c.Inverse()
			return addTo(v, c, v.operands[0].SetConstraint(s, inverse))
		case Relational:
			return addTo(v, c, v.setRelational(s, c))
		}
	}

	if c == constraint.Null {
		// nil has no other property
		return v.propagate(s.PutConstraints(v, constraint.Of(c)), c)
	}
	return v.propagate(s.AddConstraint(v, c), c)
}

func addTo(v *Value, c constraint.Constraint, states []*State) []*State {
	var out []*State
	for _, s := range states {
		out = append(out, v.propagate(s.AddConstraint(v, c), c)...)
	}
	return out
}

// propagate copies c, just learned on v, to the other operand of every
// known relation on v.
func (v *Value) propagate(s *State, c constraint.Constraint) []*State {
	states := []*State{s}
	for _, rel := range s.Relations() {
		var other *Value
		kind := rel.Kind
		switch {
		case rel.Left.ID() == v.id:
			other = rel.Right.(*Value)
		case rel.Right.ID() == v.id:
			other, kind = rel.Left.(*Value), kind.Symmetric()
		default:
			continue
		}
		copied, ok := c.CopyOver(kind)
		if !ok {
			continue
		}
		var next []*State
		for _, st := range states {
			next = append(next, other.SetConstraint(st, copied)...)
		}
		states = next
	}
	return states
}

func (v *Value) setNullCheck(s *State, c constraint.Constraint) []*State {
	isNull := (c == constraint.True) != v.negated
	target := constraint.NotNull
	if isNull {
		target = constraint.Null
	}
	return v.operands[0].SetConstraint(s, target)
}

// setRelational asserts the relation of v (its inverse for FALSE) against
// the known relations, copies the operands' constraints across it and
// across every relation it implies, and records it.
func (v *Value) setRelational(s *State, c constraint.Constraint) []*State {
	r := relation.New(v.rel, v.operands[0], v.operands[1])
	if c == constraint.False {
		r = r.Inverse()
	}
	if r.SameOperand() {
		if r.Kind.Reflexive() {
			return []*State{s}
		}
		return nil
	}

	known := s.Relations()
	switch r.Resolve(known) {
	case relation.Unfulfilled:
		return nil
	case relation.Fulfilled:
		return copyAcross([]*State{s}, r)
	}

	derived := r.Transitive(known)
	for _, d := range derived {
		for _, k := range known {
			if d.ImpliedBy(k) == relation.Unfulfilled {
				return nil
			}
		}
	}

	states := []*State{s}
	record := []relation.Relation{r}
	for _, rel := range append([]relation.Relation{r}, derived...) {
		states = copyAcross(states, rel)
		if rel.SameOperandsAs(r) && rel.Kind != r.Kind {
			// a simplification, such as a == b out of a >= b and b >= a
			record = append(record, rel)
		}
	}

	left, right := v.operands[0], v.operands[1]
	for i, st := range states {
		if st.CanReach(left) || st.CanReach(right) {
			for _, rel := range record {
				st = st.AddRelation(rel)
			}
			states[i] = st
		}
	}
	return states
}

// copyAcross copies the constraints of each operand of rel to the other.
func copyAcross(states []*State, rel relation.Relation) []*State {
	left, right := rel.Left.(*Value), rel.Right.(*Value)
	var next []*State
	for _, st := range states {
		for _, forward := range copyConstraints(st, left, right, rel.Kind) {
			next = append(next, copyConstraints(forward, right, left, rel.Kind.Symmetric())...)
		}
	}
	return next
}

// copyConstraints asserts on to what "from kind to" tells about it, given
// the constraints known on from.
func copyConstraints(s *State, from, to *Value, kind relation.Kind) []*State {
	states := []*State{s}
	for _, c := range s.Constraints(from).Slice() {
		copied, ok := c.CopyOver(kind)
		if !ok {
			continue
		}
		var next []*State
		for _, st := range states {
			next = append(next, to.SetConstraint(st, copied)...)
		}
		states = next
	}
	return states
}
