// Package lattice models the zero-ness of integer-like values and how it
// flows through arithmetic.
package lattice

import "go/token"

// ValueKind models the zero-ness lattice for integer-like values.
type ValueKind int

const (
	Bottom ValueKind = iota // unreachable
	Zero
	NonZero
	MaybeZero
	Top
)

func (v ValueKind) String() string {
	switch v {
	case Bottom:
		return "Bottom"
	case Zero:
		return "Zero"
	case NonZero:
		return "NonZero"
	case MaybeZero:
		return "MaybeZero"
	case Top:
		return "Top"
	default:
		return "Unknown"
	}
}

// Join returns the least upper bound in the lattice.
func Join(a, b ValueKind) ValueKind {
	if a == Bottom {
		return b
	}
	if b == Bottom {
		return a
	}
	if a == Top || b == Top {
		return Top
	}
	if a == MaybeZero || b == MaybeZero {
		return MaybeZero
	}
	if a == b {
		return a
	}
	// Zero + NonZero.
	return MaybeZero
}

// Meet returns the greatest lower bound in the lattice.
func Meet(a, b ValueKind) ValueKind {
	if a == Bottom || b == Bottom {
		return Bottom
	}
	if a == Top {
		return b
	}
	if b == Top {
		return a
	}
	if a == b {
		return a
	}
	if a == MaybeZero && (b == Zero || b == NonZero) {
		return b
	}
	if b == MaybeZero && (a == Zero || a == NonZero) {
		return a
	}
	return Bottom
}

// Binary returns the zero-ness of "lhs op rhs".
func Binary(op token.Token, lhs, rhs ValueKind) ValueKind {
	if lhs == Bottom || rhs == Bottom {
		return Bottom
	}
	if lhs == Top || rhs == Top {
		return Top
	}
	if lhs == MaybeZero || rhs == MaybeZero {
		if op == token.MUL && (lhs == Zero || rhs == Zero) {
			return Zero
		}
		return MaybeZero
	}

	switch op {
	case token.MUL, token.AND:
		if lhs == Zero || rhs == Zero {
			return Zero
		}
		if op == token.MUL {
			return NonZero
		}
		return MaybeZero
	case token.ADD, token.SUB, token.OR, token.XOR:
		if lhs == Zero {
			return rhs
		}
		if rhs == Zero {
			return lhs
		}
		return MaybeZero
	case token.QUO, token.REM:
		if rhs == Zero {
			return Top
		}
		if lhs == Zero {
			return Zero
		}
		return MaybeZero
	case token.SHL, token.SHR:
		if lhs == Zero {
			return Zero
		}
		if rhs == Zero {
			return lhs
		}
		return MaybeZero
	default:
		return MaybeZero
	}
}

// Unary returns the zero-ness of "op v".
func Unary(op token.Token, v ValueKind) ValueKind {
	switch op {
	case token.ADD, token.SUB:
		return v
	case token.XOR:
		switch v {
		case Zero:
			return NonZero
		case NonZero:
			return MaybeZero
		}
		return v
	default:
		return Top
	}
}
