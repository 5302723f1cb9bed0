package nolint

import (
	"go/parser"
	"go/token"
	"testing"

	tt "github.com/gnolang/symex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirective(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text    string
		rules   []string
		wantErr error
	}{
		{"//nolint", nil, nil},
		{"//nolint:nil-dereference", []string{"nil-dereference"}, nil},
		{"//nolint: a , b,", []string{"a", "b"}, nil},
		{"//nolint:", nil, errNoRules},
		{"//nolintx", nil, errNotDirective},
		{"// nolint", nil, errNotDirective},
		{"// regular comment", nil, errNotDirective},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			rules, err := parseDirective(tc.text)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rules, len(tc.rules))
			for _, r := range tc.rules {
				assert.Contains(t, rules, r)
			}
		})
	}
}

const source = `package main

//nolint:division-by-zero
func quiet(d int) int {
	return 10 / d
}

func loud(p *int) int {
	a := *p //nolint:nil-dereference
	//nolint:symex
	b := *p
	//nolint
	if a > b {
		return *p
	}
	return *p
}
`

func manager(t *testing.T, src string) *Manager {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	require.NoError(t, err)
	return ParseComments(f, fset)
}

func at(line int) token.Position {
	return token.Position{Filename: "test.go", Line: line}
}

func TestIsNolint(t *testing.T) {
	t.Parallel()
	m := manager(t, source)

	tests := []struct {
		name     string
		file     string
		line     int
		rule     string
		category string
		want     bool
	}{
		{"function scope", "test.go", 5, "division-by-zero", "", true},
		{"function scope other rule", "test.go", 5, "nil-dereference", "", false},
		{"inline", "test.go", 9, "nil-dereference", "", true},
		{"inline other rule", "test.go", 9, "division-by-zero", "", false},
		{"next statement by category", "test.go", 11, "nil-dereference", "symex", true},
		{"next statement without category", "test.go", 11, "nil-dereference", "", false},
		{"bare directive covers the whole if", "test.go", 14, "anything", "", true},
		{"after the if", "test.go", 16, "nil-dereference", "symex", false},
		{"other file", "other.go", 5, "division-by-zero", "", false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pos := token.Position{Filename: tc.file, Line: tc.line}
			assert.Equal(t, tc.want, m.IsNolint(pos, tc.rule, tc.category))
		})
	}
}

func TestFileScope(t *testing.T) {
	t.Parallel()
	m := manager(t, `//nolint:nil-dereference
package main

func f(p *int) int { return *p }
`)
	assert.True(t, m.IsNolint(at(4), "nil-dereference"))
	assert.False(t, m.IsNolint(at(4), "division-by-zero"))
}

func TestFilter(t *testing.T) {
	t.Parallel()
	m := manager(t, source)
	issues := []tt.Issue{
		{Rule: "division-by-zero", Category: "symex", Start: at(5)},
		{Rule: "nil-dereference", Category: "symex", Start: at(9)},
		{Rule: "nil-dereference", Category: "symex", Start: at(11)},
		{Rule: "nil-dereference", Category: "symex", Start: at(16)},
	}
	got := m.Filter(issues)
	require.Len(t, got, 1)
	assert.Equal(t, 16, got[0].Start.Line)
	assert.Len(t, issues, 4, "the input is left untouched")

	var none *Manager
	assert.Equal(t, issues, none.Filter(issues))
}
