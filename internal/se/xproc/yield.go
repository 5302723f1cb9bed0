package xproc

import (
	"fmt"
	"strings"

	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/symbolic"
)

// NotParam marks a result that is not one of the parameters.
const NotParam = -1

// Result describes one returned value.
type Result struct {
	// Param is the index of the parameter returned as is, or NotParam.
	Param       int
	Constraints constraint.ByDomain
}

func (r Result) equal(o Result) bool {
	return r.Param == o.Param && r.Constraints.Equal(o.Constraints)
}

// Yield summarizes one exit path of a method: what held on the parameters
// and what came out.
type Yield struct {
	Params []constraint.ByDomain
	// Exceptional yields end in a panic of ExceptionType and have no
	// results.
	Exceptional   bool
	ExceptionType string
	Results       []Result
}

func (y *Yield) equal(o *Yield) bool {
	if y.Exceptional != o.Exceptional || y.ExceptionType != o.ExceptionType {
		return false
	}
	if len(y.Params) != len(o.Params) || len(y.Results) != len(o.Results) {
		return false
	}
	for i := range y.Params {
		if !y.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	for i := range y.Results {
		if !y.Results[i].equal(o.Results[i]) {
			return false
		}
	}
	return true
}

func (y *Yield) String() string {
	params := make([]string, len(y.Params))
	for i, p := range y.Params {
		params[i] = p.String()
	}
	if y.Exceptional {
		return fmt.Sprintf("(%s) panics %s", strings.Join(params, ","), y.ExceptionType)
	}
	results := make([]string, len(y.Results))
	for i, r := range y.Results {
		if r.Param != NotParam {
			results[i] = fmt.Sprintf("p%d", r.Param)
		}
		results[i] += r.Constraints.String()
	}
	return fmt.Sprintf("(%s) -> (%s)", strings.Join(params, ","), strings.Join(results, ","))
}

// StatesAfterInvocation applies the yield to a call with the given
// arguments. Parameter constraints are asserted on the arguments, which
// drops the states where the yield cannot apply, and the results are
// pushed onto the stack: the argument itself for results that are
// parameters, a value from newValue otherwise. Exceptional yields push
// nothing.
func (y *Yield) StatesAfterInvocation(args []*symbolic.Value, s *symbolic.State, newValue func() *symbolic.Value) []*symbolic.State {
	states := []*symbolic.State{s}
	for i, cs := range y.Params {
		if i >= len(args) {
			break
		}
		states = applyConstraints(states, args[i], cs)
	}
	if y.Exceptional {
		return states
	}

	for _, r := range y.Results {
		var v *symbolic.Value
		if r.Param != NotParam && r.Param < len(args) {
			v = args[r.Param]
		} else {
			v = newValue()
		}
		states = applyConstraints(states, v, r.Constraints)
		for i, st := range states {
			states[i] = st.Push(v)
		}
	}
	return states
}

func applyConstraints(states []*symbolic.State, v *symbolic.Value, cs constraint.ByDomain) []*symbolic.State {
	for _, c := range cs.Slice() {
		var next []*symbolic.State
		for _, st := range states {
			next = append(next, v.SetConstraint(st, c)...)
		}
		states = next
	}
	return states
}
