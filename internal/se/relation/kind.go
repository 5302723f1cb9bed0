package relation

import "fmt"

// Kind is the comparison a relation asserts between its operands.
type Kind uint8

const (
	Equal Kind = iota
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	MethodEquals
	NotMethodEquals
	numKinds
)

// Kinds lists every kind in declaration order.
var Kinds = [numKinds]Kind{
	Equal, NotEqual, GreaterThan, GreaterThanOrEqual,
	LessThan, LessThanOrEqual, MethodEquals, NotMethodEquals,
}

var kindOperators = [numKinds]string{
	Equal:              "==",
	NotEqual:           "!=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	MethodEquals:       ".Equal",
	NotMethodEquals:    "!.Equal",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindOperators[k]
}

func (k Kind) mustBeValid() {
	if k >= numKinds {
		panic(fmt.Sprintf("relation: invalid kind %d", k))
	}
}

// Inverse returns the kind holding exactly when k does not.
func (k Kind) Inverse() Kind {
	switch k {
	case Equal:
		return NotEqual
	case NotEqual:
		return Equal
	case GreaterThan:
		return LessThanOrEqual
	case GreaterThanOrEqual:
		return LessThan
	case LessThan:
		return GreaterThanOrEqual
	case LessThanOrEqual:
		return GreaterThan
	case MethodEquals:
		return NotMethodEquals
	case NotMethodEquals:
		return MethodEquals
	}
	panic(fmt.Sprintf("relation: invalid kind %d", k))
}

// Symmetric returns the kind of the same fact with swapped operands.
func (k Kind) Symmetric() Kind {
	switch k {
	case GreaterThan:
		return LessThan
	case LessThan:
		return GreaterThan
	case GreaterThanOrEqual:
		return LessThanOrEqual
	case LessThanOrEqual:
		return GreaterThanOrEqual
	}
	k.mustBeValid()
	return k
}

// Commutative reports whether swapping the operands keeps the kind.
func (k Kind) Commutative() bool {
	return k.Symmetric() == k
}

// Reflexive reports whether "x k x" holds.
func (k Kind) Reflexive() bool {
	switch k {
	case Equal, GreaterThanOrEqual, LessThanOrEqual, MethodEquals:
		return true
	case NotEqual, GreaterThan, LessThan, NotMethodEquals:
		return false
	}
	panic(fmt.Sprintf("relation: invalid kind %d", k))
}

// normalized reports whether k is one of the kinds stored in a known
// relation set. GreaterThan and LessThanOrEqual are stored swapped.
func (k Kind) normalized() bool {
	return k != GreaterThan && k != LessThanOrEqual
}
