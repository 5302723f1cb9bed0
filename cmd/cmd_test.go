package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnolang/symex/internal/checks"
	tt "github.com/gnolang/symex/internal/types"
	"github.com/gnolang/symex/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `package main

type T struct{ x int }

func load(p *T) int {
	if p == nil {
		return p.x
	}
	return p.x
}

func id(x int) int { return x }
`

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestRunCFG(t *testing.T) {
	t.Parallel()
	path := writeSource(t)
	var buf bytes.Buffer
	require.NoError(t, runCFG(&buf, []string{path}, "load", ""))
	assert.Contains(t, buf.String(), "digraph")

	err := runCFG(&buf, []string{path}, "missing", "")
	assert.Error(t, err)

	err = runCFG(&buf, []string{filepath.Join(t.TempDir(), "none.go")}, "load", "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunEGraph(t *testing.T) {
	path := writeSource(t)
	showYields = true
	maxSteps = 1000
	t.Cleanup(func() { showYields = false })

	var buf bytes.Buffer
	require.NoError(t, runEGraph(context.Background(), &buf, []string{path}, "id", ""))
	out := buf.String()
	assert.Contains(t, out, "digraph egraph {")
	assert.Contains(t, out, "// main.id complete=true")
	assert.Contains(t, out, "-> (p0{")
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	c, err := loadConfig(lint.DefaultConfigPath)
	if _, statErr := os.Stat(lint.DefaultConfigPath); os.IsNotExist(statErr) {
		require.NoError(t, err)
		assert.Equal(t, lint.DefaultConfig(), c)
	}

	_, err = loadConfig(filepath.Join(t.TempDir(), "custom.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist, "only the default file may be missing")
}

func TestIgnore(t *testing.T) {
	t.Parallel()
	rules := lint.DefaultConfig().Rules
	ignore(rules, " nil-dereference , other,")
	assert.Equal(t, tt.SeverityOff, rules[checks.NilDereference].Severity)
	assert.Equal(t, tt.SeverityOff, rules["other"].Severity)
	assert.Equal(t, tt.SeverityError, rules[checks.DivisionByZero].Severity)
}

func TestInitConfigurationFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".symex.yaml")
	require.NoError(t, initConfigurationFile(path))
	c, err := lint.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, lint.DefaultConfig(), c)
	assert.Error(t, initConfigurationFile(path), "an existing file is kept")
}

func TestRunLint(t *testing.T) {
	path := writeSource(t)
	engine, err := lint.New(lint.DefaultConfig(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = runLint(context.Background(), &buf, engine, []string{path}, lint.Options{})
	assert.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, buf.String(), "nil-dereference")
	assert.Contains(t, buf.String(), "= in main.load")

	lintJSONOutput = true
	t.Cleanup(func() { lintJSONOutput = false })
	buf.Reset()
	err = runLint(context.Background(), &buf, engine, []string{path}, lint.Options{})
	assert.ErrorIs(t, err, ErrIssuesFound)
	var byFile map[string][]tt.Issue
	require.NoError(t, json.Unmarshal(buf.Bytes(), &byFile))
	require.Len(t, byFile[path], 1)
	assert.Equal(t, checks.NilDereference, byFile[path][0].Rule)
}

func TestPrintIssuesToFile(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "issues.json")
	issues := []tt.Issue{{Rule: checks.DivisionByZero, Filename: "a.go", Severity: tt.SeverityWarning}}
	require.NoError(t, printIssues(&bytes.Buffer{}, issues, true, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Severity":"WARNING"`)
}
