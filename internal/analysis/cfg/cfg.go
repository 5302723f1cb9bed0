package cfg

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
)

// SymbolKind tells where a symbol lives.
type SymbolKind uint8

const (
	Local SymbolKind = iota
	Param
	Result
	Synthetic
)

// Symbol is a variable the engine can bind a value to.
type Symbol struct {
	ID   int
	Name string
	Kind SymbolKind
	// Nilable is set for pointer, slice, map, chan, func and interface types.
	Nilable bool
	Obj     types.Object
}

func (s *Symbol) Hash() uint64             { return uint64(s.ID) }
func (s *Symbol) Equal(other *Symbol) bool { return s == other }
func (s *Symbol) String() string           { return s.Name }

// Method is a function or method the engine can summarize.
type Method struct {
	ID   int
	Name string
	// Params starts with the receiver for methods.
	Params       []*Symbol
	Results      int
	NamedResults []*Symbol
	Variadic     bool
	Obj          *types.Func
	Pos          token.Pos
}

func (m *Method) String() string { return m.Name }

// Point is a cursor into a graph: the element at Offset in Block is the
// next one to execute. Offset == len(Elements) is the block exit.
type Point struct {
	Block  int
	Offset int
}

func (p Point) Hash() uint64          { return uint64(p.Block)<<32 | uint64(uint32(p.Offset)) }
func (p Point) Equal(other Point) bool { return p == other }
func (p Point) String() string        { return fmt.Sprintf("B%d.%d", p.Block, p.Offset) }

// ElementKind is the closed set of element tags.
type ElementKind uint8

const (
	// KindIdent pushes the value bound to Symbol.
	KindIdent ElementKind = iota
	// KindNil pushes the nil literal.
	KindNil
	// KindBool pushes the true or false literal.
	KindBool
	// KindNumber pushes a fresh numeric constant, zero when Zero is set.
	KindNumber
	// KindLiteral pushes a fresh non-nil constant.
	KindLiteral
	// KindUnary pops one value and pushes the result of Op.
	KindUnary
	// KindBinary pops two values and pushes the result of Op.
	KindBinary
	// KindNilCheck pops one value and pushes "v == nil", or "v != nil" when Negated.
	KindNilCheck
	// KindDeref pops a pointer, and pushes Results fresh values.
	KindDeref
	// KindSelect pops the operand of a selector and pushes Results fresh values.
	KindSelect
	// KindIndex pops Arity values and pushes Results fresh values.
	KindIndex
	// KindCall pops Arity values and pushes Results values.
	KindCall
	// KindAlloc pops Arity values and pushes one fresh non-nil value.
	KindAlloc
	// KindConvert leaves the value on top of the stack unchanged.
	KindConvert
	// KindTypeAssert pops one value and pushes Results fresh values.
	KindTypeAssert
	// KindAssign pops len(Targets) values and binds them; nil targets discard.
	KindAssign
	// KindReturn pops Arity values and records them as the method results.
	KindReturn
	// KindPanic pops one value and leaves the method exceptionally.
	KindPanic
	// KindDiscard clears the stack.
	KindDiscard
	// KindOther pops Arity values and pushes Results fresh values.
	KindOther
	numElementKinds
)

var elementKindNames = [numElementKinds]string{
	KindIdent:      "ident",
	KindNil:        "nil",
	KindBool:       "bool",
	KindNumber:     "number",
	KindLiteral:    "literal",
	KindUnary:      "unary",
	KindBinary:     "binary",
	KindNilCheck:   "nilcheck",
	KindDeref:      "deref",
	KindSelect:     "select",
	KindIndex:      "index",
	KindCall:       "call",
	KindAlloc:      "alloc",
	KindConvert:    "convert",
	KindTypeAssert: "typeassert",
	KindAssign:     "assign",
	KindReturn:     "return",
	KindPanic:      "panic",
	KindDiscard:    "discard",
	KindOther:      "other",
}

func (k ElementKind) String() string {
	if k < numElementKinds {
		return elementKindNames[k]
	}
	return fmt.Sprintf("ElementKind(%d)", k)
}

// NumElementKinds is the number of element kinds.
const NumElementKinds = int(numElementKinds)

// Element is one evaluation step.
type Element struct {
	Kind ElementKind
	Node ast.Node

	Symbol  *Symbol
	Targets []*Symbol
	Op      token.Token
	Callee  *Method
	Arity   int
	Results int

	// Value is the literal of KindBool.
	Value bool
	// Zero marks a zero KindNumber.
	Zero bool
	// Negated turns a KindNilCheck into "!= nil".
	Negated bool
	// Deref marks selections and calls whose first operand is dereferenced.
	Deref bool
	// IntDiv marks integer divisions, which panic on a zero divisor.
	IntDiv bool
	// TypeName is the type of a KindPanic value.
	TypeName string
}

func (e *Element) String() string {
	switch e.Kind {
	case KindIdent:
		return "ident " + e.Symbol.Name
	case KindBool:
		return fmt.Sprintf("bool %t", e.Value)
	case KindNumber:
		if e.Zero {
			return "number 0"
		}
		return "number"
	case KindUnary, KindBinary:
		return e.Kind.String() + " " + e.Op.String()
	case KindNilCheck:
		if e.Negated {
			return "nilcheck !="
		}
		return "nilcheck =="
	case KindCall:
		if e.Callee != nil {
			return fmt.Sprintf("call %s/%d", e.Callee.Name, e.Arity)
		}
		return fmt.Sprintf("call ?/%d", e.Arity)
	case KindAssign:
		s := "assign"
		for _, t := range e.Targets {
			if t == nil {
				s += " _"
			} else {
				s += " " + t.Name
			}
		}
		return s
	case KindReturn:
		return fmt.Sprintf("return/%d", e.Arity)
	case KindPanic:
		return "panic " + e.TypeName
	}
	return e.Kind.String()
}

// Block is a basic block.
type Block struct {
	ID       int
	Comment  string
	Elements []*Element
	// Cond is set when the block branches on the value on top of the stack.
	Cond        bool
	True, False *Block
	Succs       []*Block
	// Exceptions receive the panics raised in this block. Panics leave
	// the method when it is empty.
	Exceptions []*Block
}

func (b *Block) String() string {
	return fmt.Sprintf("B%d(%s)", b.ID, b.Comment)
}

// Graph is the CFG of one method.
type Graph struct {
	Method *Method
	Blocks []*Block
	Entry  *Block
	Exit   *Block
}

// Preds returns the predecessors of b.
func (g *Graph) Preds(b *Block) []*Block {
	var preds []*Block
	for _, p := range g.Blocks {
		for _, s := range p.Succs {
			if s == b {
				preds = append(preds, p)
				break
			}
		}
	}
	return preds
}

// Succs returns the successors of b.
func (g *Graph) Succs(b *Block) []*Block {
	return b.Succs
}

// Element returns the element at p, or nil at a block exit.
func (g *Graph) Element(p Point) *Element {
	b := g.Blocks[p.Block]
	if p.Offset < len(b.Elements) {
		return b.Elements[p.Offset]
	}
	return nil
}
