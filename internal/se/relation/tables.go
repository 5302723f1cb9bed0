package relation

import "fmt"

// outcome is a cell of the composition table. The zero value marks a cell
// nobody filled in, which is a bug.
type outcome uint8

const (
	unfilled outcome = iota
	noRule
	toEQ
	toNE
	toGT
	toGE
	toLT
	toLE
	toME
	toNME
)

func (o outcome) kind() (Kind, bool) {
	switch o {
	case unfilled:
		panic("relation: composition table has an unfilled cell")
	case noRule:
		return 0, false
	}
	return Kind(o - toEQ), true
}

// composition[k1][k2] is the kind of "a ? c" given "a k1 b" and "b k2 c".
// Rows and columns follow the Kind declaration order:
// ==, !=, >, >=, <, <=, .Equal, !.Equal.
var composition = [numKinds][numKinds]outcome{
	Equal:              {toEQ, toNE, toGT, toGE, toLT, toLE, toME, toNME},
	NotEqual:           {toNE, noRule, noRule, noRule, noRule, noRule, noRule, noRule},
	GreaterThan:        {toGT, noRule, toGT, toGT, noRule, noRule, noRule, noRule},
	GreaterThanOrEqual: {toGE, noRule, toGT, toGE, noRule, noRule, noRule, noRule},
	LessThan:           {toLT, noRule, noRule, noRule, toLT, toLT, noRule, noRule},
	LessThanOrEqual:    {toLE, noRule, noRule, noRule, toLT, toLE, noRule, noRule},
	MethodEquals:       {toME, noRule, noRule, noRule, noRule, noRule, toME, toNME},
	NotMethodEquals:    {toNME, noRule, noRule, noRule, noRule, noRule, toNME, noRule},
}

// State is the outcome of checking a relation against known facts.
type State uint8

const (
	// zero is reserved for cells nobody filled in
	Undetermined State = iota + 1
	Fulfilled
	Unfulfilled
)

func (s State) String() string {
	switch s {
	case Undetermined:
		return "UNDETERMINED"
	case Fulfilled:
		return "FULFILLED"
	case Unfulfilled:
		return "UNFULFILLED"
	}
	return fmt.Sprintf("State(%d)", s)
}

const (
	und = Undetermined
	ful = Fulfilled
	unf = Unfulfilled
)

// implication[known][checked] tells what "a known b" says about "a checked b".
var implication = [numKinds][numKinds]State{
	Equal:              {ful, unf, unf, ful, unf, ful, ful, unf},
	NotEqual:           {unf, ful, und, und, und, und, und, und},
	GreaterThan:        {unf, ful, ful, ful, unf, unf, und, und},
	GreaterThanOrEqual: {und, und, und, ful, unf, und, und, und},
	LessThan:           {unf, ful, unf, unf, ful, ful, und, und},
	LessThanOrEqual:    {und, und, unf, und, und, ful, und, und},
	MethodEquals:       {und, und, und, und, und, und, ful, unf},
	NotMethodEquals:    {unf, ful, und, und, und, und, unf, ful},
}

func solve(known, checked Kind) State {
	known.mustBeValid()
	checked.mustBeValid()
	s := implication[known][checked]
	if s == 0 {
		panic("relation: implication table has an unfilled cell")
	}
	return s
}

func compose(k1, k2 Kind) (Kind, bool) {
	k1.mustBeValid()
	k2.mustBeValid()
	return composition[k1][k2].kind()
}
