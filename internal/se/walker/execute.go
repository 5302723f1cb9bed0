package walker

import (
	"fmt"
	"go/token"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/analysis/lattice"
	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/graph"
	"github.com/gnolang/symex/internal/se/relation"
	"github.com/gnolang/symex/internal/se/symbolic"
	"github.com/gnolang/symex/internal/se/xproc"
	"go.uber.org/zap"
)

var relations = map[token.Token]relation.Kind{
	token.EQL: relation.Equal,
	token.NEQ: relation.NotEqual,
	token.LSS: relation.LessThan,
	token.GTR: relation.GreaterThan,
	token.LEQ: relation.LessThanOrEqual,
	token.GEQ: relation.GreaterThanOrEqual,
}

// execute runs the transfer function of e on the state of n.
func (wk *walk) execute(n *graph.Node, e *cfg.Element) {
	s := n.State
	switch e.Kind {
	case cfg.KindIdent:
		v, ok := s.Value(e.Symbol)
		if !ok {
			v = wk.values.Plain()
			s = s.Put(e.Symbol, v)
		}
		wk.next(n, s.Push(v))

	case cfg.KindNil:
		wk.next(n, s.Push(symbolic.Null))

	case cfg.KindBool:
		wk.next(n, s.Push(symbolic.Bool(e.Value)))

	case cfg.KindNumber:
		v := wk.values.Plain()
		c := constraint.NonZero
		if e.Zero {
			c = constraint.Zero
		}
		wk.next(n, s.Push(v).AddConstraint(v, c))

	case cfg.KindLiteral:
		wk.next(n, wk.pushNonNil(s))

	case cfg.KindUnary:
		wk.unary(n, e)

	case cfg.KindBinary:
		wk.binary(n, e)

	case cfg.KindNilCheck:
		s, ops := s.Pop(1)
		wk.next(n, s.Push(wk.values.NullCheck(ops[0], e.Negated)))

	case cfg.KindDeref, cfg.KindSelect:
		s, ops := s.Pop(1)
		if e.Kind == cfg.KindDeref || e.Deref {
			wk.dereference(n, s, ops[0], func(s *symbolic.State) {
				wk.next(n, wk.pushFresh(s, e.Results))
			})
			return
		}
		wk.next(n, wk.pushFresh(s, e.Results))

	case cfg.KindIndex, cfg.KindTypeAssert, cfg.KindOther:
		arity := e.Arity
		if e.Kind == cfg.KindTypeAssert {
			arity = 1
		}
		s, _ = s.Pop(arity)
		wk.next(n, wk.pushFresh(s, e.Results))

	case cfg.KindCall:
		wk.call(n, e)

	case cfg.KindAlloc:
		s, _ = s.Pop(e.Arity)
		wk.next(n, wk.pushNonNil(s))

	case cfg.KindConvert:
		wk.next(n, s)

	case cfg.KindAssign:
		s, values := s.Pop(len(e.Targets))
		for i, t := range e.Targets {
			if t != nil {
				s = s.Put(t, values[i])
			}
		}
		wk.next(n, s)

	case cfg.KindReturn:
		s, values := s.Pop(e.Arity)
		wk.next(n, s.ClearStack().WithExit(values, nil))

	case cfg.KindPanic:
		s, _ = s.Pop(1)
		exc := wk.values.Exception(e.TypeName)
		s = s.AddConstraint(exc, constraint.NotNull).AddConstraint(exc, constraint.TypeOf(e.TypeName))
		wk.raise(n, s, exc, nil)

	case cfg.KindDiscard:
		wk.next(n, s.ClearStack())

	default:
		panic(fmt.Sprintf("walker: unknown element kind %s", e.Kind))
	}
}

func (wk *walk) pushFresh(s *symbolic.State, count int) *symbolic.State {
	for i := 0; i < count; i++ {
		s = s.Push(wk.values.Plain())
	}
	return s
}

func (wk *walk) pushNonNil(s *symbolic.State) *symbolic.State {
	v := wk.values.Plain()
	return s.Push(v).AddConstraint(v, constraint.NotNull)
}

// dereference continues with v constrained NOT_NULL and ends the path
// with a runtime panic where v is nil.
func (wk *walk) dereference(n *graph.Node, s *symbolic.State, v *symbolic.Value, cont func(*symbolic.State)) {
	wk.guard(n, s, v, constraint.NotNull, constraint.Null, cont)
}

// guard forks s on v: where ok holds the path continues, where fail holds
// it panics.
func (wk *walk) guard(n *graph.Node, s *symbolic.State, v *symbolic.Value, ok, fail constraint.Constraint, cont func(*symbolic.State)) {
	for _, st := range v.SetConstraint(s, ok) {
		cont(st)
	}
	for _, st := range v.SetConstraint(s, fail) {
		wk.raise(n, st, wk.runtimeError(), nil)
	}
}

func (wk *walk) runtimeError() *symbolic.Value {
	return wk.values.Exception(RuntimeError)
}

func (wk *walk) unary(n *graph.Node, e *cfg.Element) {
	s, ops := n.State.Pop(1)
	var v *symbolic.Value
	switch e.Op {
	case token.NOT:
		v = wk.values.Not(ops[0])
	case token.SUB, token.ADD, token.XOR:
		v = wk.values.Arithmetic(e.Op, ops[0])
		s = withZeroness(s, v, lattice.Unary(e.Op, zeroness(s, ops[0])))
	default:
		v = wk.values.Plain()
	}
	wk.next(n, s.Push(v))
}

func (wk *walk) binary(n *graph.Node, e *cfg.Element) {
	s, ops := n.State.Pop(2)
	l, r := ops[0], ops[1]
	if kind, ok := relations[e.Op]; ok {
		wk.next(n, s.Push(wk.values.Relational(kind, l, r)))
		return
	}
	arith := func(s *symbolic.State) {
		v := wk.values.Arithmetic(e.Op, l, r)
		s = withZeroness(s, v, lattice.Binary(e.Op, zeroness(s, l), zeroness(s, r)))
		wk.next(n, s.Push(v))
	}
	if e.IntDiv {
		wk.guard(n, s, r, constraint.NonZero, constraint.Zero, arith)
		return
	}
	arith(s)
}

func zeroness(s *symbolic.State, v *symbolic.Value) lattice.ValueKind {
	c, ok := s.Constraint(v, constraint.Zeroness)
	switch {
	case !ok:
		return lattice.Top
	case c == constraint.Zero:
		return lattice.Zero
	default:
		return lattice.NonZero
	}
}

func withZeroness(s *symbolic.State, v *symbolic.Value, k lattice.ValueKind) *symbolic.State {
	switch k {
	case lattice.Zero:
		return s.AddConstraint(v, constraint.Zero)
	case lattice.NonZero:
		return s.AddConstraint(v, constraint.NonZero)
	}
	return s
}

// call applies the callee's behavior when it is known and complete, and
// otherwise pushes fresh results.
func (wk *walk) call(n *graph.Node, e *cfg.Element) {
	s, args := n.State.Pop(e.Arity)
	invoke := func(s *symbolic.State) {
		b := wk.behaviorOf(e)
		if b == nil || !b.IsComplete() {
			wk.next(n, wk.pushFresh(s, e.Results))
			return
		}
		for _, y := range b.Yields {
			states := y.StatesAfterInvocation(args, s, wk.values.Plain)
			for _, st := range states {
				if y.Exceptional {
					exc := wk.values.Exception(y.ExceptionType)
					wk.raise(n, st, exc, y)
					continue
				}
				wk.enqueue(n, cfg.Point{Block: n.Point.Block, Offset: n.Point.Offset + 1}, st, y)
			}
		}
	}
	if e.Deref && len(args) > 0 {
		wk.dereference(n, s, args[0], invoke)
		return
	}
	invoke(s)
}

func (wk *walk) behaviorOf(e *cfg.Element) *xproc.Behavior {
	if wk.cache == nil || e.Callee == nil || len(e.Callee.Params) != e.Arity {
		return nil
	}
	b, err := wk.cache.Get(wk.ctx, e.Callee)
	if err != nil {
		wk.logger.Debug("callee not summarized", zap.String("callee", e.Callee.Name), zap.Error(err))
		return nil
	}
	return b
}
