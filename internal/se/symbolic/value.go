// Package symbolic implements symbolic values, the program states that
// bind them, and the assertion of constraints on values.
package symbolic

import (
	"fmt"
	"go/token"

	"github.com/gnolang/symex/internal/se/relation"
)

// Kind tags the closed set of symbolic value shapes.
type Kind uint8

const (
	Plain Kind = iota
	NullLiteral
	TrueLiteral
	FalseLiteral
	// Relational is "left kind right".
	Relational
	// NullCheck is "operand == nil", or "operand != nil" when negated.
	NullCheck
	// Not is the boolean negation of its operand.
	Not
	// Arithmetic is computed from its operands by an operator.
	Arithmetic
	// Exception is a panic value.
	Exception
)

var kindNames = [...]string{
	Plain:        "plain",
	NullLiteral:  "nil",
	TrueLiteral:  "true",
	FalseLiteral: "false",
	Relational:   "relational",
	NullCheck:    "nullcheck",
	Not:          "not",
	Arithmetic:   "arithmetic",
	Exception:    "exception",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Value is a placeholder for one unknown runtime value. Values are
// immutable and identified by their id.
type Value struct {
	id       int
	kind     Kind
	operands []*Value

	rel      relation.Kind
	negated  bool
	op       token.Token
	typeName string
}

// The literals are shared by every walk and keep the three lowest ids.
var (
	Null  = &Value{id: 0, kind: NullLiteral}
	True  = &Value{id: 1, kind: TrueLiteral}
	False = &Value{id: 2, kind: FalseLiteral}
)

const firstID = 3

// Bool returns the True or False literal.
func Bool(b bool) *Value {
	if b {
		return True
	}
	return False
}

func (v *Value) ID() int                     { return v.id }
func (v *Value) Kind() Kind                  { return v.kind }
func (v *Value) Operands() []*Value          { return v.operands }
func (v *Value) Hash() uint64                { return uint64(v.id) }
func (v *Value) Equal(o *Value) bool         { return v.id == o.id }
func (v *Value) IsLiteral() bool             { return v.id < firstID }
func (v *Value) RelationKind() relation.Kind { return v.rel }
func (v *Value) Negated() bool               { return v.negated }
func (v *Value) Op() token.Token             { return v.op }

// TypeName is the dynamic type of an Exception value.
func (v *Value) TypeName() string { return v.typeName }

// References reports whether other is an operand of v, directly or
// through other operands.
func (v *Value) References(other *Value) bool {
	for _, o := range v.operands {
		if o.id == other.id || o.References(other) {
			return true
		}
	}
	return false
}

func (v *Value) String() string {
	switch v.kind {
	case NullLiteral, TrueLiteral, FalseLiteral:
		return v.kind.String()
	case Relational:
		return fmt.Sprintf("SV_%d(%s)", v.id, relation.New(v.rel, v.operands[0], v.operands[1]))
	case NullCheck:
		op := "=="
		if v.negated {
			op = "!="
		}
		return fmt.Sprintf("SV_%d(SV_%d%snil)", v.id, v.operands[0].id, op)
	case Not:
		return fmt.Sprintf("SV_%d(!SV_%d)", v.id, v.operands[0].id)
	case Exception:
		return fmt.Sprintf("SV_%d(panic %s)", v.id, v.typeName)
	}
	return fmt.Sprintf("SV_%d", v.id)
}

// Factory hands out values with ids unique within one walk. It is not
// safe for concurrent use.
type Factory struct {
	next int
}

func NewFactory() *Factory {
	return &Factory{next: firstID}
}

func (f *Factory) newValue(kind Kind, operands ...*Value) *Value {
	v := &Value{id: f.next, kind: kind, operands: operands}
	f.next++
	return v
}

// Plain returns a fresh value nothing is known about.
func (f *Factory) Plain() *Value {
	return f.newValue(Plain)
}

// Relational returns the boolean value of "left kind right".
func (f *Factory) Relational(kind relation.Kind, left, right *Value) *Value {
	v := f.newValue(Relational, left, right)
	v.rel = kind
	return v
}

// NullCheck returns the boolean value of "operand == nil", or of
// "operand != nil" when negated.
func (f *Factory) NullCheck(operand *Value, negated bool) *Value {
	v := f.newValue(NullCheck, operand)
	v.negated = negated
	return v
}

// Not returns the negation of a boolean value.
func (f *Factory) Not(operand *Value) *Value {
	return f.newValue(Not, operand)
}

// Arithmetic returns the result of op applied to operands.
func (f *Factory) Arithmetic(op token.Token, operands ...*Value) *Value {
	v := f.newValue(Arithmetic, operands...)
	v.op = op
	return v
}

// Exception returns a panic value of the named type.
func (f *Factory) Exception(typeName string) *Value {
	v := f.newValue(Exception)
	v.typeName = typeName
	return v
}
