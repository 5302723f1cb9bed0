// Package nolint reads //nolint directives and filters the issues they
// silence.
//
// A directive either names the rules it silences, "//nolint:rule1,rule2",
// or silences every rule when bare. The category of a rule works as a
// name too, so "//nolint:symex" silences every symbolic-execution check.
//
// The scope of a directive depends on where it sits:
//
//	before the package clause    the whole file
//	on the line above a func     the whole function
//	after code on the same line  the statement starting there
//	on the line above a stmt     that statement
//	anywhere else                its own line
package nolint

import (
	"errors"
	"go/ast"
	"go/token"
	"strings"

	tt "github.com/gnolang/symex/internal/types"
)

const prefix = "//nolint"

var (
	errNotDirective = errors.New("not a nolint directive")
	errNoRules      = errors.New("nolint directive names no rule after the colon")
)

type scope struct {
	rules      map[string]struct{}
	start, end int
}

func (s scope) covers(line int, names ...string) bool {
	if line < s.start || line > s.end {
		return false
	}
	if len(s.rules) == 0 {
		return true
	}
	for _, n := range names {
		if _, ok := s.rules[n]; ok {
			return true
		}
	}
	return false
}

// Manager knows the nolint scopes of a set of files.
type Manager struct {
	scopes map[string][]scope
}

func New() *Manager {
	return &Manager{scopes: make(map[string][]scope)}
}

// ParseComments returns a Manager for the directives of f.
func ParseComments(f *ast.File, fset *token.FileSet) *Manager {
	m := New()
	m.Add(f, fset)
	return m
}

// Add records the directives of f. Malformed directives are ignored.
func (m *Manager) Add(f *ast.File, fset *token.FileSet) {
	filename := fset.Position(f.Package).Filename
	stmts := statementsByLine(f, fset)
	for _, cg := range f.Comments {
		for _, c := range cg.List {
			rules, err := parseDirective(c.Text)
			if err != nil {
				continue
			}
			s := scopeOf(c, f, fset, stmts)
			s.rules = rules
			m.scopes[filename] = append(m.scopes[filename], s)
		}
	}
}

func parseDirective(text string) (map[string]struct{}, error) {
	rest, ok := strings.CutPrefix(text, prefix)
	if !ok {
		return nil, errNotDirective
	}
	rules := make(map[string]struct{})
	if rest == "" {
		return rules, nil
	}
	list, ok := strings.CutPrefix(rest, ":")
	if !ok {
		return nil, errNotDirective
	}
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rules[r] = struct{}{}
		}
	}
	if len(rules) == 0 {
		return nil, errNoRules
	}
	return rules, nil
}

func scopeOf(c *ast.Comment, f *ast.File, fset *token.FileSet, stmts map[int]ast.Stmt) scope {
	line := fset.Position(c.Slash).Line
	lineOf := func(p token.Pos) int { return fset.Position(p).Line }

	if line < lineOf(f.Package) {
		return scope{start: 1, end: lineOf(f.End())}
	}
	for _, d := range f.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && lineOf(fd.Type.Pos()) == line+1 {
			return scope{start: line, end: lineOf(fd.End())}
		}
	}
	if stmt, ok := stmts[line]; ok && c.Slash > stmt.Pos() {
		return scope{start: line, end: lineOf(stmt.End())}
	}
	if stmt, ok := stmts[line+1]; ok {
		return scope{start: line, end: lineOf(stmt.End())}
	}
	return scope{start: line, end: line}
}

// statementsByLine maps each line to the first statement starting on it.
func statementsByLine(f *ast.File, fset *token.FileSet) map[int]ast.Stmt {
	stmts := make(map[int]ast.Stmt)
	ast.Inspect(f, func(n ast.Node) bool {
		stmt, ok := n.(ast.Stmt)
		if !ok {
			return true
		}
		if _, block := stmt.(*ast.BlockStmt); block {
			return true
		}
		line := fset.Position(stmt.Pos()).Line
		if _, seen := stmts[line]; !seen {
			stmts[line] = stmt
		}
		return true
	})
	return stmts
}

// IsNolint reports whether rule is silenced at pos. Any of the extra
// names, such as the rule's category, silences it too.
func (m *Manager) IsNolint(pos token.Position, rule string, names ...string) bool {
	for _, s := range m.scopes[pos.Filename] {
		if s.covers(pos.Line, append([]string{rule}, names...)...) {
			return true
		}
	}
	return false
}

// Filter drops the issues a directive silences.
func (m *Manager) Filter(issues []tt.Issue) []tt.Issue {
	if m == nil {
		return issues
	}
	out := issues[:0:0]
	for _, issue := range issues {
		if !m.IsNolint(issue.Start, issue.Rule, issue.Category) {
			out = append(out, issue)
		}
	}
	return out
}
