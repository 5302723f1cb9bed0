package lint

import (
	"bytes"
	"context"
	"errors"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	tt "github.com/gnolang/symex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockLintEngine struct {
	mock.Mock
}

func (m *mockLintEngine) Run(ctx context.Context, filenames ...string) ([]tt.Issue, error) {
	args := m.Called(filenames)
	return args.Get(0).([]tt.Issue), args.Error(1)
}

func (m *mockLintEngine) RunSource(ctx context.Context, source []byte) ([]tt.Issue, error) {
	args := m.Called(source)
	return args.Get(0).([]tt.Issue), args.Error(1)
}

func issueAt(filename string, line int) tt.Issue {
	return tt.Issue{
		Rule:     "nil-dereference",
		Filename: filename,
		Start:    token.Position{Filename: filename, Line: line, Column: 1},
		End:      token.Position{Filename: filename, Line: line, Column: 11},
		Message:  "nil dereference",
	}
}

func createTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "lint_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("package p\n"), 0o644))
	return path
}

func TestProcessPackage(t *testing.T) {
	t.Parallel()
	expected := []tt.Issue{issueAt("a.go", 1)}
	engine := new(mockLintEngine)
	engine.On("Run", []string{"a.go", "b.go"}).Return(expected, nil)

	issues, err := ProcessPackage(context.Background(), engine, []string{"a.go", "b.go"})
	assert.NoError(t, err)
	assert.Equal(t, expected, issues)
	engine.AssertExpectations(t)
}

func TestProcessSource(t *testing.T) {
	t.Parallel()
	src := []byte("package main\n")
	expected := []tt.Issue{issueAt("", 1)}
	engine := new(mockLintEngine)
	engine.On("RunSource", src).Return(expected, nil)

	issues, err := ProcessSource(context.Background(), engine, src)
	assert.NoError(t, err)
	assert.Equal(t, expected, issues)
	engine.AssertExpectations(t)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()
	a, b := []byte("package a\n"), []byte("package b\n")
	engine := new(mockLintEngine)
	engine.On("RunSource", a).Return([]tt.Issue{issueAt("", 1)}, nil)
	engine.On("RunSource", b).Return([]tt.Issue{issueAt("", 2)}, nil)

	issues, err := ProcessSources(context.Background(), zap.NewNop(), engine, [][]byte{a, b})
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	failing := new(mockLintEngine)
	failing.On("RunSource", a).Return([]tt.Issue(nil), errors.New("boom"))
	_, err = ProcessSources(context.Background(), zap.NewNop(), failing, [][]byte{a})
	assert.EqualError(t, err, "boom")
}

func TestProcessPathGroupsPackages(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t)
	a := touch(t, filepath.Join(dir, "a.go"))
	b := touch(t, filepath.Join(dir, "b.gno"))
	touch(t, filepath.Join(dir, "a_test.go"))
	touch(t, filepath.Join(dir, "z_filetest.gno"))
	touch(t, filepath.Join(dir, "notes.txt"))
	sub := touch(t, filepath.Join(dir, "sub", "c.go"))
	touch(t, filepath.Join(dir, "testdata", "d.go"))
	touch(t, filepath.Join(dir, ".hidden", "e.go"))

	engine := new(mockLintEngine)
	engine.On("Run", []string{a, b}).Return([]tt.Issue{issueAt(b, 3), issueAt(a, 7)}, nil)
	engine.On("Run", []string{sub}).Return([]tt.Issue{issueAt(sub, 1)}, nil)

	var progress bytes.Buffer
	issues, err := ProcessPath(context.Background(), nil, engine, dir, ProcessPackage, Options{Workers: 2, Progress: &progress})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, a, issues[0].Filename, "issues are ordered by file and line")
	assert.Equal(t, b, issues[1].Filename)
	assert.Equal(t, sub, issues[2].Filename)
	engine.AssertExpectations(t)
	assert.NotEmpty(t, progress.String())
}

func TestProcessPathSingleFile(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t)
	a := touch(t, filepath.Join(dir, "a.go"))
	txt := touch(t, filepath.Join(dir, "a.txt"))

	engine := new(mockLintEngine)
	engine.On("Run", []string{a}).Return([]tt.Issue{issueAt(a, 1)}, nil)

	issues, err := ProcessPath(context.Background(), nil, engine, a, ProcessPackage, Options{})
	require.NoError(t, err)
	assert.Len(t, issues, 1)

	issues, err = ProcessPath(context.Background(), nil, engine, txt, ProcessPackage, Options{})
	require.NoError(t, err)
	assert.Empty(t, issues)

	_, err = ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "missing.go"), ProcessPackage, Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessPathSkipsFailingPackages(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t)
	bad := touch(t, filepath.Join(dir, "bad", "a.go"))
	good := touch(t, filepath.Join(dir, "good", "a.go"))

	engine := new(mockLintEngine)
	engine.On("Run", []string{bad}).Return([]tt.Issue(nil), errors.New("parse error"))
	engine.On("Run", []string{good}).Return([]tt.Issue{issueAt(good, 1)}, nil)

	issues, err := ProcessPath(context.Background(), zap.NewNop(), engine, dir, ProcessPackage, Options{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, good, issues[0].Filename)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()
	dir := createTempDir(t)
	a := touch(t, filepath.Join(dir, "a.go"))
	b := touch(t, filepath.Join(dir, "b.go"))

	engine := new(mockLintEngine)
	engine.On("Run", []string{a}).Return([]tt.Issue{issueAt(a, 1)}, nil)
	engine.On("Run", []string{b}).Return([]tt.Issue{issueAt(b, 1)}, nil)

	issues, err := ProcessFiles(context.Background(), nil, engine, []string{a, b}, ProcessPackage, Options{})
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	_, err = ProcessFiles(context.Background(), zap.NewNop(), engine, []string{filepath.Join(dir, "missing")}, ProcessPackage, Options{})
	assert.Error(t, err)
}

func TestHasDesiredExtension(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want bool
	}{
		{"a.go", true},
		{"a.gno", true},
		{"a.txt", false},
		{"go", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, hasDesiredExtension(tc.path), tc.path)
	}
	assert.True(t, isTestFile("x/a_test.go"))
	assert.True(t, isTestFile("x/z_filetest.gno"))
	assert.False(t, isTestFile("x/test.go"))
}
