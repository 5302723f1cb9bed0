package lint

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/gnolang/symex/internal"
	tt "github.com/gnolang/symex/internal/types"
	"go.uber.org/zap"
)

// Watch analyses a package again each time one of its files changes
// below paths, and hands the result to report. It blocks until ctx is
// done.
func Watch(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	paths []string,
	processor Processor,
	report func(dir string, issues []tt.Issue),
) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	roots := make([]string, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			path = filepath.Dir(path)
		}
		roots = append(roots, path)
	}

	w, err := internal.NewWatcher(logger, roots...)
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx, func(dir string) {
		files, err := packageFiles(dir)
		if err != nil || len(files) == 0 {
			return
		}
		issues, err := processor(ctx, engine, files)
		if err != nil {
			logger.Error("Error processing package", zap.String("dir", dir), zap.Error(err))
			return
		}
		sortIssues(issues)
		report(dir, issues)
	})
}

// packageFiles lists the non-test sources of dir.
func packageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !e.IsDir() && hasDesiredExtension(path) && !isTestFile(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}
