package lint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gnolang/symex/internal/checks"
	tt "github.com/gnolang/symex/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for _, name := range []string{"b.go", "a.gno", "a_test.go", "x_filetest.gno", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.go"), 0o755))

	files, err := packageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.gno"), filepath.Join(dir, "b.go")}, files)
}

func TestWatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	processor := func(_ context.Context, _ LintEngine, files []string) ([]tt.Issue, error) {
		return []tt.Issue{{Rule: checks.DivisionByZero, Filename: files[0]}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	type report struct {
		dir    string
		issues []tt.Issue
	}
	reports := make(chan report, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, nil, nil, []string{path}, processor, func(dir string, issues []tt.Issue) {
			reports <- report{dir, issues}
		})
	}()

	// The watcher may not be ready yet; keep writing until it reports.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc f() {}\n"), 0o644))
		select {
		case r := <-reports:
			assert.Equal(t, dir, r.dir)
			require.Len(t, r.issues, 1)
			assert.Equal(t, path, r.issues[0].Filename)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no report")
		}
	}
}

func TestWatchMissingPath(t *testing.T) {
	t.Parallel()
	err := Watch(context.Background(), nil, nil, []string{filepath.Join(t.TempDir(), "none")}, ProcessPackage, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
