// Package xproc summarizes methods into yields and caches the summaries
// for interprocedural use by the walker.
package xproc

import (
	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/graph"
	"github.com/gnolang/symex/internal/se/symbolic"
)

// Behavior is the summary of one method.
type Behavior struct {
	Method *cfg.Method
	Yields []*Yield

	params   []*symbolic.Value
	complete bool
}

// NewBehavior starts the summary of m, whose walk bound its parameters to
// params.
func NewBehavior(m *cfg.Method, params []*symbolic.Value) *Behavior {
	return &Behavior{Method: m, params: params}
}

// IsComplete reports whether every path of the method was explored.
// Callers treat incomplete behaviors as unknown calls.
func (b *Behavior) IsComplete() bool { return b.complete }

// HappyYields returns the yields ending in a return.
func (b *Behavior) HappyYields() []*Yield {
	var out []*Yield
	for _, y := range b.Yields {
		if !y.Exceptional {
			out = append(out, y)
		}
	}
	return out
}

// CreateYield turns the exit node n into a yield. Only constraints on the
// parameters and results are kept. An equal yield is only recorded once.
func (b *Behavior) CreateYield(n *graph.Node) *Yield {
	s := n.State
	y := &Yield{Params: make([]constraint.ByDomain, len(b.params))}
	for i, p := range b.params {
		y.Params[i] = s.Constraints(p)
	}
	if exc := s.Exception(); exc != nil {
		y.Exceptional = true
		y.ExceptionType = exc.TypeName()
	} else {
		for _, v := range s.ExitValues() {
			y.Results = append(y.Results, Result{Param: b.paramIndex(v), Constraints: s.Constraints(v)})
		}
	}
	for _, known := range b.Yields {
		if known.equal(y) {
			return known
		}
	}
	b.Yields = append(b.Yields, y)
	return y
}

func (b *Behavior) paramIndex(v *symbolic.Value) int {
	for i, p := range b.params {
		if p == v {
			return i
		}
	}
	return NotParam
}

// Complete reduces the yields and marks the behavior complete. Two happy
// yields are merged when they differ only by complementary constraints on
// one parameter and agree on results that are neither nil nor zero.
func (b *Behavior) Complete() {
	for merged := true; merged; {
		merged = false
	search:
		for i := 0; i < len(b.Yields); i++ {
			for j := i + 1; j < len(b.Yields); j++ {
				if y, ok := merge(b.Yields[i], b.Yields[j]); ok {
					b.Yields[i] = y
					b.Yields = append(b.Yields[:j], b.Yields[j+1:]...)
					merged = true
					break search
				}
			}
		}
	}
	b.complete = true
}

func merge(a, b *Yield) (*Yield, bool) {
	if a.Exceptional || b.Exceptional || len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return nil, false
	}
	for i := range a.Results {
		r := a.Results[i]
		if !r.equal(b.Results[i]) || r.Constraints.Has(constraint.Null) || r.Constraints.Has(constraint.Zero) {
			return nil, false
		}
	}
	diff := -1
	for i := range a.Params {
		if a.Params[i].Equal(b.Params[i]) {
			continue
		}
		if diff >= 0 {
			return nil, false
		}
		diff = i
	}
	if diff < 0 {
		return a, true
	}
	d, ok := complementary(a.Params[diff], b.Params[diff])
	if !ok {
		return nil, false
	}
	params := append([]constraint.ByDomain(nil), a.Params...)
	params[diff] = params[diff].Remove(d)
	return &Yield{Params: params, Results: a.Results}, true
}

// complementary reports the single domain where x and y hold inverse
// constraints, provided they agree on every other domain.
func complementary(x, y constraint.ByDomain) (constraint.Domain, bool) {
	if x.Len() != y.Len() {
		return 0, false
	}
	var found bool
	var domain constraint.Domain
	for _, c := range x.Slice() {
		other, ok := y.Get(c.Domain())
		if !ok {
			return 0, false
		}
		if other == c {
			continue
		}
		if found || !inverse(c, other) {
			return 0, false
		}
		found, domain = true, c.Domain()
	}
	return domain, found
}

func inverse(a, b constraint.Constraint) bool {
	if inv, ok := a.Inverse(); ok && inv == b {
		return true
	}
	inv, ok := b.Inverse()
	return ok && inv == a
}
