package checks

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/se/walker"
	"github.com/gnolang/symex/internal/se/xproc"
	tt "github.com/gnolang/symex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"
)

func parse(t *testing.T, src string) (*token.FileSet, []*ast.File) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	require.NoError(t, err)
	return fset, []*ast.File{f}
}

func run(t *testing.T, src string, rules map[string]tt.ConfigRule) []tt.Issue {
	t.Helper()
	fset, files := parse(t, src)
	p, err := cfg.Load(fset, files)
	require.NoError(t, err)

	collector := NewCollector(fset)
	var w *walker.Walker
	cache := xproc.NewCache(func(ctx context.Context, m *cfg.Method) (*xproc.Behavior, error) {
		return w.Behavior(ctx, m)
	})
	w = walker.New(p, cache, walker.WithChecks(Enabled(rules, collector)...))
	for _, m := range p.Methods {
		_, err := cache.Get(context.Background(), m)
		require.NoError(t, err)
	}
	return collector.Issues()
}

const nilSource = `package main

type T struct{ x int }

func f(o *T) int {
	if o == nil {
		return o.x
	}
	return 0
}

func g(o *T) int {
	return o.x
}
`

const divSource = `package main

func f() int {
	x := 0
	return 10 / x
}

func g(d int) int {
	return 10 / d
}

func h(d int) int {
	if d != 0 {
		return 10 / d
	}
	return 0
}
`

const bothSource = `package main

type T struct{ x int }

func load(o *T) int {
	if o == nil {
		return o.x
	}
	return 0
}

func divide() int {
	x := 0
	return 10 / x
}
`

func TestNilDereference(t *testing.T) {
	t.Parallel()
	issues := run(t, nilSource, nil)
	require.Len(t, issues, 1, "g dereferences a value nothing is known about")

	issue := issues[0]
	assert.Equal(t, NilDereference, issue.Rule)
	assert.Equal(t, "symex", issue.Category)
	assert.Equal(t, "main.f", issue.Function)
	assert.Equal(t, "nil dereference: o is nil here", issue.Message)
	assert.Equal(t, tt.SeverityError, issue.Severity)
	assert.Equal(t, 7, issue.Start.Line)
	assert.Equal(t, "test.go", issue.Filename)
}

func TestDivisionByZero(t *testing.T) {
	t.Parallel()
	issues := run(t, divSource, nil)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, DivisionByZero, issue.Rule)
	assert.Equal(t, "main.f", issue.Function)
	assert.Equal(t, "integer division by zero: x is zero here", issue.Message)
	assert.Equal(t, 5, issue.Start.Line)
}

func TestFactsFlowAcrossRelations(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		src     string
		rule    string
		message string
		line    int
	}{
		{
			name: "equality then nil check",
			src: `package main

type T struct{ x int }

func f(a, b *T) int {
	if a == b {
		if a == nil {
			return b.x
		}
	}
	return 0
}
`,
			rule:    NilDereference,
			message: "nil dereference: b is nil here",
			line:    8,
		},
		{
			name: "at least both ways",
			src: `package main

func f(a, b int) int {
	if a >= b && b >= a {
		if a == 0 {
			return 1 / b
		}
	}
	return 0
}
`,
			rule:    DivisionByZero,
			message: "integer division by zero: b is zero here",
			line:    6,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			issues := run(t, tc.src, nil)
			require.Len(t, issues, 1)
			assert.Equal(t, tc.rule, issues[0].Rule)
			assert.Equal(t, tc.message, issues[0].Message)
			assert.Equal(t, tc.line, issues[0].Start.Line)
		})
	}
}

func TestEnabled(t *testing.T) {
	t.Parallel()
	c := NewCollector(token.NewFileSet())
	assert.Len(t, Enabled(nil, c), len(All))

	off := map[string]tt.ConfigRule{NilDereference: {Severity: tt.SeverityOff}}
	assert.Len(t, Enabled(off, c), len(All)-1)

	issues := run(t, bothSource, off)
	for _, issue := range issues {
		assert.NotEqual(t, NilDereference, issue.Rule)
	}

	warn := map[string]tt.ConfigRule{DivisionByZero: {Severity: tt.SeverityWarning}}
	issues = run(t, divSource, warn)
	require.Len(t, issues, 1)
	assert.Equal(t, tt.SeverityWarning, issues[0].Severity)
}

// analyze drives an analyzer over a single file without a driver.
func analyze(t *testing.T, src string, a *analysis.Analyzer) []analysis.Diagnostic {
	t.Helper()
	fset, files := parse(t, src)
	info, err := cfg.Check(fset, files)
	require.NoError(t, err)

	var diags []analysis.Diagnostic
	pass := &analysis.Pass{
		Analyzer:  a,
		Fset:      fset,
		Files:     files,
		TypesInfo: info,
		Report:    func(d analysis.Diagnostic) { diags = append(diags, d) },
	}
	_, err = a.Run(pass)
	require.NoError(t, err)
	return diags
}

func TestAnalyzer(t *testing.T) {
	t.Parallel()
	diags := analyze(t, bothSource, Analyzer)
	require.Len(t, diags, 2)
	assert.Equal(t, NilDereference, diags[0].Category)
	assert.Equal(t, DivisionByZero, diags[1].Category)
	assert.Less(t, diags[0].Pos, diags[1].Pos)
}
