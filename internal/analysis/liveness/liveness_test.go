package liveness

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandBuiltGraph(t *testing.T) {
	t.Parallel()
	x := &cfg.Symbol{ID: 1, Name: "x"}
	y := &cfg.Symbol{ID: 2, Name: "y"}

	exit := &cfg.Block{ID: 3}
	use := &cfg.Block{ID: 2, Elements: []*cfg.Element{
		{Kind: cfg.KindIdent, Symbol: x},
		{Kind: cfg.KindReturn, Arity: 1},
	}, Succs: []*cfg.Block{exit}}
	redefine := &cfg.Block{ID: 1, Elements: []*cfg.Element{
		{Kind: cfg.KindNumber},
		{Kind: cfg.KindAssign, Targets: []*cfg.Symbol{x}},
	}, Succs: []*cfg.Block{use}}
	entry := &cfg.Block{ID: 0, Elements: []*cfg.Element{
		{Kind: cfg.KindIdent, Symbol: y},
		{Kind: cfg.KindAssign, Targets: []*cfg.Symbol{x}},
		{Kind: cfg.KindIdent, Symbol: y},
	}, Cond: true, True: redefine, False: use, Succs: []*cfg.Block{redefine, use}}
	g := &cfg.Graph{Blocks: []*cfg.Block{entry, redefine, use, exit}, Entry: entry, Exit: exit}

	l := Analyze(g)
	assert.True(t, l.In(use).Has(x))
	assert.False(t, l.In(redefine).Has(x), "x is written before it is read")
	assert.True(t, l.Out(entry).Has(x))
	assert.True(t, l.In(entry).Has(y))
	assert.False(t, l.In(entry).Has(x))
	assert.False(t, l.Out(entry).Has(y), "y is not read after the entry block")
	assert.Empty(t, l.Out(use))
	assert.Empty(t, l.In(exit))
}

func TestLoop(t *testing.T) {
	t.Parallel()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", `package main
func f(n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += i
	}
	dead := 1
	_ = dead
	return sum
}`, 0)
	require.NoError(t, err)
	p, err := cfg.Load(fset, []*ast.File{f})
	require.NoError(t, err)
	m, err := p.Lookup("f")
	require.NoError(t, err)
	g := p.Graph(m)

	l := Analyze(g)
	n := m.Params[0]
	assert.True(t, l.In(g.Entry).Has(n))

	var sum *cfg.Symbol
	for _, b := range g.Blocks {
		for _, e := range b.Elements {
			if e.Kind != cfg.KindAssign {
				continue
			}
			for _, target := range e.Targets {
				if target != nil && target.Name == "sum" {
					sum = target
				}
			}
		}
	}
	require.NotNil(t, sum)

	for _, b := range g.Blocks {
		if b.Cond {
			assert.True(t, l.In(b).Has(n), "block %s", b)
			assert.True(t, l.In(b).Has(sum), "block %s", b)
		}
		for s := range l.Out(b) {
			assert.NotEqual(t, "dead", s.Name)
		}
	}
}
