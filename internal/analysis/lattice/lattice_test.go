package lattice

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinMeet(t *testing.T) {
	t.Parallel()
	kinds := []ValueKind{Bottom, Zero, NonZero, MaybeZero, Top}
	for _, a := range kinds {
		assert.Equal(t, a, Join(a, Bottom))
		assert.Equal(t, a, Meet(a, Top))
		for _, b := range kinds {
			assert.Equal(t, Join(a, b), Join(b, a), "join %s %s", a, b)
			assert.Equal(t, Meet(a, b), Meet(b, a), "meet %s %s", a, b)
		}
	}
	assert.Equal(t, MaybeZero, Join(Zero, NonZero))
	assert.Equal(t, Bottom, Meet(Zero, NonZero))
	assert.Equal(t, Zero, Meet(MaybeZero, Zero))
}

func TestBinary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		op       token.Token
		lhs, rhs ValueKind
		want     ValueKind
	}{
		{token.ADD, Zero, NonZero, NonZero},
		{token.ADD, NonZero, NonZero, MaybeZero},
		{token.SUB, NonZero, Zero, NonZero},
		{token.MUL, Zero, MaybeZero, Zero},
		{token.MUL, NonZero, NonZero, NonZero},
		{token.MUL, Top, Zero, Top},
		{token.QUO, Zero, NonZero, Zero},
		{token.QUO, NonZero, Zero, Top},
		{token.REM, NonZero, NonZero, MaybeZero},
		{token.AND, Zero, NonZero, Zero},
		{token.SHL, NonZero, Zero, NonZero},
		{token.ADD, Bottom, NonZero, Bottom},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Binary(tt.op, tt.lhs, tt.rhs), "%s %s %s", tt.lhs, tt.op, tt.rhs)
	}
}

func TestUnary(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Zero, Unary(token.SUB, Zero))
	assert.Equal(t, NonZero, Unary(token.SUB, NonZero))
	assert.Equal(t, NonZero, Unary(token.XOR, Zero))
	assert.Equal(t, Top, Unary(token.NOT, Zero))
}
