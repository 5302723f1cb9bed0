// Package constraint defines the facts the engine attaches to symbolic
// values. A fact belongs to exactly one domain, and the tags of a domain
// are mutually exclusive.
package constraint

import (
	"hash/fnv"

	"github.com/gnolang/symex/internal/se/relation"
)

// Domain identifies a closed set of mutually exclusive constraints.
type Domain uint8

const (
	Nullness Domain = iota
	Boolean
	Zeroness
	Type
)

var domainNames = [...]string{
	Nullness: "nullness",
	Boolean:  "boolean",
	Zeroness: "zeroness",
	Type:     "type",
}

func (d Domain) String() string {
	if int(d) < len(domainNames) {
		return domainNames[d]
	}
	return "unknown"
}

func (d Domain) Hash() uint64        { return uint64(d) + 1 }
func (d Domain) Equal(o Domain) bool { return d == o }

type tag uint8

const (
	tagNull tag = iota + 1
	tagNotNull
	tagTrue
	tagFalse
	tagZero
	tagNonZero
	tagType
)

// Constraint is one fact about one value. Constraints are comparable with ==.
type Constraint struct {
	domain   Domain
	tag      tag
	typeName string
}

var (
	Null    = Constraint{domain: Nullness, tag: tagNull}
	NotNull = Constraint{domain: Nullness, tag: tagNotNull}
	True    = Constraint{domain: Boolean, tag: tagTrue}
	False   = Constraint{domain: Boolean, tag: tagFalse}
	Zero    = Constraint{domain: Zeroness, tag: tagZero}
	NonZero = Constraint{domain: Zeroness, tag: tagNonZero}
)

// TypeOf returns the constraint stating that a value has the named dynamic type.
func TypeOf(name string) Constraint {
	return Constraint{domain: Type, tag: tagType, typeName: name}
}

// Bool returns True or False.
func Bool(b bool) Constraint {
	if b {
		return True
	}
	return False
}

func (c Constraint) Domain() Domain { return c.domain }

// TypeName is only set for constraints of the Type domain.
func (c Constraint) TypeName() string { return c.typeName }

// IsNone reports whether c is the zero Constraint, which carries no fact.
func (c Constraint) IsNone() bool { return c.tag == 0 }

// Inverse returns the constraint that holds exactly when c does not. The
// second result is false when no single constraint of the domain does
// (NON_ZERO covers many values, types are open).
func (c Constraint) Inverse() (Constraint, bool) {
	switch c.tag {
	case tagNull:
		return NotNull, true
	case tagNotNull:
		return Null, true
	case tagTrue:
		return False, true
	case tagFalse:
		return True, true
	case tagZero:
		return NonZero, true
	default:
		return Constraint{}, false
	}
}

// CopyOver returns the constraint that the right operand of a relation of
// the given kind inherits when the left operand carries c.
func (c Constraint) CopyOver(kind relation.Kind) (Constraint, bool) {
	switch kind {
	case relation.Equal, relation.MethodEquals:
		return c, true
	}
	switch c.domain {
	case Nullness:
		// NOT_NULL across != says nothing about the other side
		if kind == relation.NotEqual && c == Null {
			return NotNull, true
		}
	case Boolean:
		if kind == relation.NotEqual || kind == relation.NotMethodEquals {
			return c.Inverse()
		}
	case Zeroness:
		switch kind {
		case relation.NotEqual, relation.NotMethodEquals, relation.LessThan, relation.GreaterThan:
			return c.Inverse()
		}
	}
	return Constraint{}, false
}

func (c Constraint) Hash() uint64 {
	h := uint64(c.domain)<<8 | uint64(c.tag)
	if c.typeName != "" {
		f := fnv.New64a()
		_, _ = f.Write([]byte(c.typeName))
		h ^= f.Sum64()
	}
	return h
}

func (c Constraint) Equal(o Constraint) bool { return c == o }

func (c Constraint) String() string {
	switch c.tag {
	case tagNull:
		return "NULL"
	case tagNotNull:
		return "NOT_NULL"
	case tagTrue:
		return "TRUE"
	case tagFalse:
		return "FALSE"
	case tagZero:
		return "ZERO"
	case tagNonZero:
		return "NON_ZERO"
	case tagType:
		return "TYPE(" + c.typeName + ")"
	default:
		return "NONE"
	}
}
