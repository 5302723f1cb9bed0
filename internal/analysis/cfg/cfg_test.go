package cfg

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, src string) *Program {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", src, 0)
	require.NoError(t, err)
	p, err := Load(fset, []*ast.File{f})
	require.NoError(t, err)
	return p
}

func graphOf(t *testing.T, p *Program, name string) *Graph {
	t.Helper()
	m, err := p.Lookup(name)
	require.NoError(t, err)
	g := p.Graph(m)
	require.NotNil(t, g)
	return g
}

func elementsOf(g *Graph, kind ElementKind) []*Element {
	var out []*Element
	for _, b := range g.Blocks {
		for _, e := range b.Elements {
			if e.Kind == kind {
				out = append(out, e)
			}
		}
	}
	return out
}

func blockByComment(g *Graph, comment string) *Block {
	for _, b := range g.Blocks {
		if b.Comment == comment {
			return b
		}
	}
	return nil
}

func reachable(g *Graph) map[*Block]bool {
	seen := map[*Block]bool{g.Entry: true}
	work := []*Block{g.Entry}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range b.Succs {
			if !seen[s] {
				seen[s] = true
				work = append(work, s)
			}
		}
	}
	return seen
}

func TestLowerStructure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "MultiStatementFunction",
			src: `package main
func f() int {
	x := 1
	if x > 0 {
		x = 2
	} else {
		x = 3
	}
	for i := 0; i < 10; i++ {
		x += i
	}
	return x
}`,
		},
		{
			name: "Switch",
			src: `package main
func f(day string) int {
	switch day {
	case "Monday":
		return 1
	case "Tuesday", "Wednesday":
		return 2
	default:
		return 0
	}
}`,
		},
		{
			name: "TypeSwitch",
			src: `package main
type MyType int
func f(i interface{}) int {
	switch i.(type) {
	case int:
		return 1
	case MyType:
		return 2
	}
	return 0
}`,
		},
		{
			name: "EmptyFunc",
			src: `package main
func f() {}`,
		},
		{
			name: "Range",
			src: `package main
func f(xs []int) (sum int) {
	for _, x := range xs {
		sum += x
	}
	return
}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := graphOf(t, load(t, tt.src), "f")
			require.NotNil(t, g.Entry)
			require.NotNil(t, g.Exit)
			assert.Empty(t, g.Exit.Succs)
			assert.True(t, reachable(g)[g.Exit], "exit must be reachable")
			for i, b := range g.Blocks {
				assert.Equal(t, i, b.ID)
				if b.Cond {
					assert.Equal(t, []*Block{b.True, b.False}, b.Succs)
				}
				if b != g.Exit {
					assert.NotEmpty(t, b.Succs, "block %s has no successor", b)
				}
			}
		})
	}
}

func TestLowerConditions(t *testing.T) {
	t.Parallel()
	p := load(t, `package main
type T struct{ x int }
func nilCheck(o *T) int {
	if o == nil {
		return 0
	}
	if nil != o {
		return o.x
	}
	return 1
}
func shortCircuit(a, b int) bool { return a == b && a < b }
func negated(a, b int) int {
	if !(a < b) || a == 0 {
		return 1
	}
	return 2
}`)

	g := graphOf(t, p, "nilCheck")
	checks := elementsOf(g, KindNilCheck)
	require.Len(t, checks, 2)
	assert.False(t, checks[0].Negated)
	assert.True(t, checks[1].Negated)
	selects := elementsOf(g, KindSelect)
	require.Len(t, selects, 1)
	assert.True(t, selects[0].Deref)

	g = graphOf(t, p, "shortCircuit")
	rhs := blockByComment(g, "and.rhs")
	require.NotNil(t, rhs)
	require.True(t, rhs.Cond)
	assert.Equal(t, "cond.true", rhs.True.Comment)
	assert.Equal(t, "cond.false", rhs.False.Comment)
	last := rhs.Elements[len(rhs.Elements)-1]
	assert.Equal(t, KindBinary, last.Kind)
	assert.Equal(t, token.LSS, last.Op)
	done := blockByComment(g, "cond.done")
	require.NotNil(t, done)
	assert.Equal(t, KindReturn, done.Elements[0].Kind)

	g = graphOf(t, p, "negated")
	assert.Empty(t, elementsOf(g, KindUnary), "negations in conditions swap branches")
}

func TestLowerCalls(t *testing.T) {
	t.Parallel()
	p := load(t, `package main
import "errors"
type T struct{}
func (t T) Value() int { return 0 }
func (t *T) Ptr() int { return 0 }
type I interface{ M() }
func id(x int) int { return x }
func sum(xs ...int) int { return 0 }
func f(p *T, v T, i I, fn func()) error {
	_ = p.Value()
	_ = p.Ptr()
	_ = v.Ptr()
	i.M()
	fn()
	y := id(5)
	_ = sum()
	_ = sum(1, 2, y)
	return errors.New("x")
}`)

	g := graphOf(t, p, "f")
	calls := elementsOf(g, KindCall)
	require.Len(t, calls, 9)

	assert.Equal(t, "(main.T).Value", calls[0].Callee.Name)
	assert.True(t, calls[0].Deref, "value receiver through a pointer")
	assert.Equal(t, 1, calls[0].Arity)

	assert.Equal(t, "(*main.T).Ptr", calls[1].Callee.Name)
	assert.False(t, calls[1].Deref)
	assert.False(t, calls[2].Deref)

	assert.True(t, calls[3].Deref, "interface receiver")
	assert.Nil(t, p.Graph(calls[3].Callee))

	assert.Nil(t, calls[4].Callee)
	assert.True(t, calls[4].Deref, "func value")

	assert.Equal(t, "main.id", calls[5].Callee.Name)
	assert.Equal(t, 1, calls[5].Arity)
	assert.Equal(t, 1, calls[5].Results)

	assert.Equal(t, 1, calls[6].Arity, "empty variadic slice")
	assert.Equal(t, 1, calls[7].Arity, "packed variadic slice")

	assert.Equal(t, "errors.New", calls[8].Callee.Name)
	assert.Nil(t, p.Graph(calls[8].Callee))
	m, err := p.Lookup("id")
	require.NoError(t, err)
	assert.Same(t, m, calls[5].Callee)
	assert.Len(t, m.Params, 1)
}

func TestLowerNamedResults(t *testing.T) {
	t.Parallel()
	p := load(t, `package main
func f(p *int) (n int, err error) {
	if p == nil {
		return
	}
	return *p, nil
}`)
	g := graphOf(t, p, "f")
	m := g.Method
	require.Len(t, m.NamedResults, 2)
	assert.Equal(t, 2, m.Results)

	entry := g.Entry.Elements
	require.Len(t, entry, 4)
	assert.Equal(t, KindNumber, entry[0].Kind)
	assert.True(t, entry[0].Zero)
	assert.Equal(t, KindNil, entry[2].Kind)

	returns := elementsOf(g, KindReturn)
	require.Len(t, returns, 2)
	for _, r := range returns {
		assert.Equal(t, 2, r.Arity)
	}
	derefs := elementsOf(g, KindDeref)
	require.Len(t, derefs, 1)
	assert.Equal(t, 1, derefs[0].Results)
}

func TestLowerDivision(t *testing.T) {
	t.Parallel()
	p := load(t, `package main
func f(a, b int, x, y float64) (int, float64) {
	a /= b
	return a % b, x / y
}`)
	var intDiv, floatDiv int
	for _, e := range elementsOf(graphOf(t, p, "f"), KindBinary) {
		if e.IntDiv {
			intDiv++
		} else if e.Op == token.QUO {
			floatDiv++
		}
	}
	assert.Equal(t, 2, intDiv)
	assert.Equal(t, 1, floatDiv)
}

func TestLookup(t *testing.T) {
	t.Parallel()
	p := load(t, `package main
type T struct{}
func (t *T) M() {}
func F() {}`)

	for _, name := range []string{"F", "main.F", "T.M", "(*main.T).M"} {
		_, err := p.Lookup(name)
		assert.NoError(t, err, name)
	}
	_, err := p.Lookup("G")
	assert.ErrorIs(t, err, ErrFunctionNotFound)
	assert.Len(t, p.Methods, 2)
}

func TestLowerWithoutBody(t *testing.T) {
	t.Parallel()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "src.go", "package main\nfunc f() int\n", 0)
	require.NoError(t, err)
	info, _ := Check(fset, []*ast.File{f})
	_, err = Lower(fset, info, f.Decls[0].(*ast.FuncDecl))
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestPrintDot(t *testing.T) {
	t.Parallel()
	p := load(t, `package main
func f(x int) int {
	if x > 0 {
		return 1
	}
	return 0
}`)
	var buf bytes.Buffer
	graphOf(t, p, "f").PrintDot(&buf)
	out := buf.String()
	assert.Contains(t, out, "digraph mgraph {")
	assert.Contains(t, out, `"B0(entry)" -> "B1(B0)";`)
	assert.Contains(t, out, `[label="T"]`)
	assert.Contains(t, out, `[label="F"]`)
	assert.Contains(t, out, "binary >")
}
