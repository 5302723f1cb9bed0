package symbolic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/pcollections"
	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/relation"
)

type visitCount int

func (c visitCount) Hash() uint64            { return uint64(c) }
func (c visitCount) Equal(o visitCount) bool { return c == o }

// frame is a node of the persistent evaluation stack.
type frame struct {
	value *Value
	next  *frame
	size  int
}

// State is an immutable snapshot of everything known at one point of one
// path. Every transition returns a new State sharing the untouched parts,
// or the receiver itself when nothing changed.
//
// Equality covers bindings, constraints, relations, the stack and the exit
// values. Visit counts are not part of it.
type State struct {
	values      pcollections.Map[*cfg.Symbol, *Value]
	constraints pcollections.Map[*Value, constraint.ByDomain]
	relations   pcollections.Set[relation.Relation]
	stack       *frame
	visits      pcollections.Map[cfg.Point, visitCount]
	exits       []*Value
	exception   *Value
}

var empty = func() *State {
	s := &State{}
	s = s.AddConstraint(Null, constraint.Null)
	s = s.AddConstraint(True, constraint.True)
	s = s.AddConstraint(True, constraint.NotNull)
	s = s.AddConstraint(False, constraint.False)
	s = s.AddConstraint(False, constraint.NotNull)
	return s
}()

// Empty returns the state every walk starts from: only the literals and
// their constraints are known.
func Empty() *State {
	return empty
}

func (s *State) with(fn func(n *State)) *State {
	n := *s
	fn(&n)
	return &n
}

// Put binds sym to v.
func (s *State) Put(sym *cfg.Symbol, v *Value) *State {
	values := s.values.Put(sym, v)
	if values.Same(s.values) {
		return s
	}
	return s.with(func(n *State) { n.values = values })
}

// Value returns the value bound to sym.
func (s *State) Value(sym *cfg.Symbol) (*Value, bool) {
	return s.values.Get(sym)
}

// ForEachBinding calls fn for every bound symbol until fn returns false.
func (s *State) ForEachBinding(fn func(*cfg.Symbol, *Value) bool) {
	s.values.ForEach(fn)
}

// AddConstraint sets c on v without checking for contradictions. Use
// Value.SetConstraint to assert a fact.
func (s *State) AddConstraint(v *Value, c constraint.Constraint) *State {
	cs, _ := s.constraints.Get(v)
	return s.putConstraints(v, cs.Put(c))
}

// RemoveConstraint drops the constraint of domain d on v.
func (s *State) RemoveConstraint(v *Value, d constraint.Domain) *State {
	cs, ok := s.constraints.Get(v)
	if !ok {
		return s
	}
	return s.putConstraints(v, cs.Remove(d))
}

// PutConstraints replaces every constraint of v.
func (s *State) PutConstraints(v *Value, cs constraint.ByDomain) *State {
	return s.putConstraints(v, cs)
}

func (s *State) putConstraints(v *Value, cs constraint.ByDomain) *State {
	var constraints pcollections.Map[*Value, constraint.ByDomain]
	if cs.IsEmpty() {
		constraints = s.constraints.Remove(v)
	} else {
		constraints = s.constraints.Put(v, cs)
	}
	if constraints.Same(s.constraints) {
		return s
	}
	return s.with(func(n *State) { n.constraints = constraints })
}

// Constraint returns the constraint of domain d on v.
func (s *State) Constraint(v *Value, d constraint.Domain) (constraint.Constraint, bool) {
	cs, ok := s.constraints.Get(v)
	if !ok {
		return constraint.Constraint{}, false
	}
	return cs.Get(d)
}

// Constraints returns every constraint on v.
func (s *State) Constraints(v *Value) constraint.ByDomain {
	cs, _ := s.constraints.Get(v)
	return cs
}

// ForEachConstraint calls fn for every constrained value until fn returns
// false.
func (s *State) ForEachConstraint(fn func(*Value, constraint.ByDomain) bool) {
	s.constraints.ForEach(fn)
}

// AddRelation records r as a known fact, in normal form.
func (s *State) AddRelation(r relation.Relation) *State {
	relations := s.relations.Add(r.Normalize())
	if relations.Same(s.relations) {
		return s
	}
	return s.with(func(n *State) { n.relations = relations })
}

// Relations returns the known relations.
func (s *State) Relations() []relation.Relation {
	return s.relations.Slice()
}

// CanReach reports whether v is bound to a symbol, on the stack, an exit
// value, or an operand of one of those.
func (s *State) CanReach(v *Value) bool {
	found := false
	s.forEachRoot(func(root *Value) bool {
		found = root.id == v.id || root.References(v)
		return !found
	})
	return found
}

func (s *State) forEachRoot(fn func(*Value) bool) {
	cont := true
	s.values.ForEach(func(_ *cfg.Symbol, v *Value) bool {
		cont = fn(v)
		return cont
	})
	for f := s.stack; cont && f != nil; f = f.next {
		cont = fn(f.value)
	}
	for _, v := range s.exits {
		if !cont {
			return
		}
		cont = fn(v)
	}
	if cont && s.exception != nil {
		fn(s.exception)
	}
}

// Push pushes values in order, so the last one ends on top.
func (s *State) Push(values ...*Value) *State {
	if len(values) == 0 {
		return s
	}
	stack := s.stack
	for _, v := range values {
		size := 1
		if stack != nil {
			size = stack.size + 1
		}
		stack = &frame{value: v, next: stack, size: size}
	}
	return s.with(func(n *State) { n.stack = stack })
}

// Pop removes the n topmost values and returns them in push order: the
// deepest first, the former top last. It panics when the stack holds
// fewer than n values.
func (s *State) Pop(n int) (*State, []*Value) {
	if n == 0 {
		return s, nil
	}
	if s.StackSize() < n {
		panic(fmt.Sprintf("symbolic: pop of %d values from a stack of %d", n, s.StackSize()))
	}
	values := make([]*Value, n)
	stack := s.stack
	for i := n - 1; i >= 0; i-- {
		values[i] = stack.value
		stack = stack.next
	}
	return s.with(func(ns *State) { ns.stack = stack }), values
}

// Peek returns the value i positions below the top; Peek(0) is the top.
func (s *State) Peek(i int) *Value {
	f := s.stack
	for ; i > 0 && f != nil; i-- {
		f = f.next
	}
	if f == nil {
		panic("symbolic: peek past the bottom of the stack")
	}
	return f.value
}

func (s *State) StackSize() int {
	if s.stack == nil {
		return 0
	}
	return s.stack.size
}

// Stack returns the stack from the bottom to the top.
func (s *State) Stack() []*Value {
	out := make([]*Value, s.StackSize())
	i := len(out) - 1
	for f := s.stack; f != nil; f = f.next {
		out[i] = f.value
		i--
	}
	return out
}

func (s *State) ClearStack() *State {
	if s.stack == nil {
		return s
	}
	return s.with(func(n *State) { n.stack = nil })
}

// VisitPoint counts one more visit of p on this path.
func (s *State) VisitPoint(p cfg.Point) *State {
	c, _ := s.visits.Get(p)
	visits := s.visits.Put(p, c+1)
	return s.with(func(n *State) { n.visits = visits })
}

// Visits returns how often this path went through p.
func (s *State) Visits(p cfg.Point) int {
	c, _ := s.visits.Get(p)
	return int(c)
}

// WithExit records the values the method returns, or the panic it
// raises when exception is not nil.
func (s *State) WithExit(values []*Value, exception *Value) *State {
	return s.with(func(n *State) {
		n.exits = values
		n.exception = exception
	})
}

func (s *State) ExitValues() []*Value { return s.exits }
func (s *State) Exception() *Value    { return s.exception }

// CleanupDeadSymbols unbinds the symbols live does not report.
func (s *State) CleanupDeadSymbols(live func(*cfg.Symbol) bool) *State {
	values := s.values
	s.values.ForEach(func(sym *cfg.Symbol, _ *Value) bool {
		if !live(sym) {
			values = values.Remove(sym)
		}
		return true
	})
	if values.Same(s.values) {
		return s
	}
	return s.with(func(n *State) { n.values = values })
}

// CleanupConstraints forgets the constraints and relations of values that
// can no longer be reached. Literals and protected values are kept.
func (s *State) CleanupConstraints(protected []*Value) *State {
	keep := make(map[int]bool)
	var mark func(v *Value)
	mark = func(v *Value) {
		if keep[v.id] {
			return
		}
		keep[v.id] = true
		for _, o := range v.operands {
			mark(o)
		}
	}
	s.forEachRoot(func(v *Value) bool {
		mark(v)
		return true
	})
	for _, v := range protected {
		mark(v)
	}
	kept := func(v *Value) bool { return v.IsLiteral() || keep[v.id] }

	constraints := s.constraints
	s.constraints.ForEach(func(v *Value, _ constraint.ByDomain) bool {
		if !kept(v) {
			constraints = constraints.Remove(v)
		}
		return true
	})
	relations := s.relations
	s.relations.ForEach(func(r relation.Relation) bool {
		if !kept(r.Left.(*Value)) || !kept(r.Right.(*Value)) {
			relations = relations.Remove(r)
		}
		return true
	})
	if constraints.Same(s.constraints) && relations.Same(s.relations) {
		return s
	}
	return s.with(func(n *State) {
		n.constraints = constraints
		n.relations = relations
	})
}

func (s *State) Hash() uint64 {
	h := s.values.Hash()*31 + s.constraints.Hash()
	h = h*31 + s.relations.Hash()
	for f := s.stack; f != nil; f = f.next {
		h = h*31 + f.value.Hash()
	}
	for _, v := range s.exits {
		h = h*17 + v.Hash()
	}
	if s.exception != nil {
		h = h*17 + s.exception.Hash() + 1
	}
	return h
}

func (s *State) Equal(o *State) bool {
	if s == o {
		return true
	}
	if !s.values.Equal(o.values) || !s.constraints.Equal(o.constraints) || !s.relations.Equal(o.relations) {
		return false
	}
	if s.StackSize() != o.StackSize() || !sameValues(s.exits, o.exits) {
		return false
	}
	if (s.exception == nil) != (o.exception == nil) || (s.exception != nil && !s.exception.Equal(o.exception)) {
		return false
	}
	for a, b := s.stack, o.stack; a != nil; a, b = a.next, b.next {
		if a == b {
			return true
		}
		if !a.value.Equal(b.value) {
			return false
		}
	}
	return true
}

func sameValues(a, b []*Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (s *State) String() string {
	var bindings []string
	s.values.ForEach(func(sym *cfg.Symbol, v *Value) bool {
		bindings = append(bindings, fmt.Sprintf("%s->%s", sym.Name, v))
		return true
	})
	sort.Strings(bindings)
	var constraints []string
	s.constraints.ForEach(func(v *Value, cs constraint.ByDomain) bool {
		if !v.IsLiteral() {
			constraints = append(constraints, fmt.Sprintf("%s%s", v, cs))
		}
		return true
	})
	sort.Strings(constraints)
	var relations []string
	for _, r := range s.Relations() {
		relations = append(relations, r.String())
	}
	sort.Strings(relations)
	var stack []string
	for _, v := range s.Stack() {
		stack = append(stack, v.String())
	}
	return fmt.Sprintf("{%s} {%s} {%s} [%s]",
		strings.Join(bindings, ","), strings.Join(constraints, ","),
		strings.Join(relations, ","), strings.Join(stack, ","))
}
