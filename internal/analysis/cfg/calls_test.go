package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callGraph = `package main

import "strings"

func a(n int) int {
	if n == 0 {
		return 0
	}
	return b(n - 1)
}

func b(n int) int {
	return a(n) + a(n-1)
}

func c() int {
	return a(1) + len(strings.TrimSpace(" x "))
}

func d() {}

func e(n int) int {
	if n > 0 {
		return e(n - 1)
	}
	return d2()
}

func d2() int { return 0 }
`

func TestCallees(t *testing.T) {
	t.Parallel()
	p := load(t, callGraph)

	tests := []struct {
		name    string
		callees []string
	}{
		{name: "a", callees: []string{"main.b"}},
		{name: "b", callees: []string{"main.a"}},
		{name: "c", callees: []string{"main.a"}},
		{name: "d"},
		{name: "e", callees: []string{"main.e", "main.d2"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := p.Lookup(tc.name)
			require.NoError(t, err)
			var names []string
			for _, c := range p.Callees(m) {
				names = append(names, c.Name)
			}
			assert.ElementsMatch(t, tc.callees, names)
		})
	}
}

func TestComponents(t *testing.T) {
	t.Parallel()
	p := load(t, callGraph)

	var got [][]string
	for _, comp := range p.Components() {
		var names []string
		for _, m := range comp {
			names = append(names, m.Name)
		}
		got = append(got, names)
	}
	assert.Equal(t, [][]string{
		{"main.a", "main.b"},
		{"main.c"},
		{"main.d"},
		{"main.d2"},
		{"main.e"},
	}, got)
}
