// Package checks turns exploded graphs into issues. A check only reports
// what holds on every path reaching a point: a dereferenced value already
// known to be nil, a divisor already known to be zero.
package checks

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"
	"sync"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/graph"
	"github.com/gnolang/symex/internal/se/symbolic"
	"github.com/gnolang/symex/internal/se/walker"
	tt "github.com/gnolang/symex/internal/types"
)

const (
	NilDereference = "nil-dereference"
	DivisionByZero = "division-by-zero"
)

const category = "symex"

// Rule describes a check and how to build it.
type Rule struct {
	Name     string
	Doc      string
	Severity tt.Severity
	new      func(c *Collector, severity tt.Severity) walker.Check
}

var All = []Rule{
	{
		Name:     NilDereference,
		Doc:      "dereference of a value that is nil on every path reaching it",
		Severity: tt.SeverityError,
		new: func(c *Collector, s tt.Severity) walker.Check {
			return &nilDereference{collector: c, severity: s}
		},
	},
	{
		Name:     DivisionByZero,
		Doc:      "integer division by a value that is zero on every path reaching it",
		Severity: tt.SeverityError,
		new: func(c *Collector, s tt.Severity) walker.Check {
			return &divisionByZero{collector: c, severity: s}
		},
	},
}

// Enabled builds the checks that rules do not turn off. Rules missing
// from the map keep their default severity.
func Enabled(rules map[string]tt.ConfigRule, c *Collector) []walker.Check {
	var out []walker.Check
	for _, r := range All {
		severity := r.Severity
		if cr, ok := rules[r.Name]; ok {
			severity = cr.Severity
		}
		if severity == tt.SeverityOff {
			continue
		}
		out = append(out, r.new(c, severity))
	}
	return out
}

type finding struct {
	issue    tt.Issue
	pos, end token.Pos
}

// Collector gathers the findings of checks running on concurrent walks.
// A finding is kept once per rule and position.
type Collector struct {
	fset *token.FileSet

	mu       sync.Mutex
	seen     map[string]bool
	findings []finding
}

func NewCollector(fset *token.FileSet) *Collector {
	return &Collector{fset: fset, seen: make(map[string]bool)}
}

func (c *Collector) report(rule string, severity tt.Severity, m *cfg.Method, n ast.Node, message string) {
	key := fmt.Sprintf("%s@%d", rule, n.Pos())
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	start, end := c.fset.Position(n.Pos()), c.fset.Position(n.End())
	c.findings = append(c.findings, finding{
		issue: tt.Issue{
			Rule:     rule,
			Category: category,
			Filename: start.Filename,
			Function: m.Name,
			Message:  message,
			Start:    start,
			End:      end,
			Severity: severity,
		},
		pos: n.Pos(),
		end: n.End(),
	})
}

func (c *Collector) sorted() []finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]finding(nil), c.findings...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].pos != out[j].pos {
			return out[i].pos < out[j].pos
		}
		return out[i].issue.Rule < out[j].issue.Rule
	})
	return out
}

// Issues returns the findings ordered by position.
func (c *Collector) Issues() []tt.Issue {
	findings := c.sorted()
	out := make([]tt.Issue, len(findings))
	for i, f := range findings {
		out[i] = f.issue
	}
	return out
}

type nilDereference struct {
	collector *Collector
	severity  tt.Severity
}

func (k *nilDereference) Check(g *graph.Graph) {
	for _, n := range g.Nodes() {
		e := g.Element(n)
		if e == nil {
			continue
		}
		v, ok := dereferenced(n.State, e)
		if !ok || !n.State.Constraints(v).Has(constraint.Null) {
			continue
		}
		k.collector.report(NilDereference, k.severity, g.CFG.Method, e.Node,
			describe("nil dereference", derefOperand(e.Node), "is nil"))
	}
}

// dereferenced returns the value e dereferences, if any.
func dereferenced(s *symbolic.State, e *cfg.Element) (*symbolic.Value, bool) {
	switch e.Kind {
	case cfg.KindDeref:
		return s.Peek(0), true
	case cfg.KindSelect:
		if e.Deref {
			return s.Peek(0), true
		}
	case cfg.KindCall:
		if e.Deref && e.Arity > 0 {
			return s.Peek(e.Arity - 1), true
		}
	}
	return nil, false
}

func derefOperand(n ast.Node) ast.Expr {
	switch n := n.(type) {
	case *ast.StarExpr:
		return n.X
	case *ast.SelectorExpr:
		return n.X
	case *ast.CallExpr:
		if sel, ok := n.Fun.(*ast.SelectorExpr); ok {
			return sel.X
		}
		return n.Fun
	}
	return nil
}

type divisionByZero struct {
	collector *Collector
	severity  tt.Severity
}

func (k *divisionByZero) Check(g *graph.Graph) {
	for _, n := range g.Nodes() {
		e := g.Element(n)
		if e == nil || e.Kind != cfg.KindBinary || !e.IntDiv {
			continue
		}
		if !n.State.Constraints(n.State.Peek(0)).Has(constraint.Zero) {
			continue
		}
		k.collector.report(DivisionByZero, k.severity, g.CFG.Method, e.Node,
			describe("integer division by zero", divisor(e.Node), "is zero"))
	}
}

func divisor(n ast.Node) ast.Expr {
	switch n := n.(type) {
	case *ast.BinaryExpr:
		return n.Y
	case *ast.AssignStmt:
		if len(n.Rhs) == 1 {
			return n.Rhs[0]
		}
	}
	return nil
}

func describe(what string, operand ast.Expr, state string) string {
	if operand == nil {
		return what
	}
	return fmt.Sprintf("%s: %s %s here", what, types.ExprString(operand), state)
}
