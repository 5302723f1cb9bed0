package lint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/gnolang/symex/internal"
	tt "github.com/gnolang/symex/internal/types"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type LintEngine interface {
	Run(ctx context.Context, filenames ...string) ([]tt.Issue, error)
	RunSource(ctx context.Context, source []byte) ([]tt.Issue, error)
}

// New builds an engine from config.
func New(config Config, logger *zap.Logger) (*internal.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []internal.EngineOption{
		internal.WithRules(config.Rules),
		internal.WithWalkerConfig(config.Engine.walker()),
		internal.WithWorkers(config.Engine.Workers),
		internal.WithLogger(logger),
	}
	if config.Engine.CacheDir != "" {
		cache, err := internal.NewCache(config.Engine.CacheDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, internal.WithCache(cache))
	}
	return internal.NewEngine(opts...), nil
}

// Package is a set of files analysed together.
type Package struct {
	Dir   string
	Files []string
}

type Processor func(ctx context.Context, engine LintEngine, files []string) ([]tt.Issue, error)

// ProcessPackage runs the engine on the files of one package.
func ProcessPackage(ctx context.Context, engine LintEngine, files []string) ([]tt.Issue, error) {
	return engine.Run(ctx, files...)
}

func ProcessSource(ctx context.Context, engine LintEngine, source []byte) ([]tt.Issue, error) {
	return engine.RunSource(ctx, source)
}

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	sources [][]byte,
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for i, source := range sources {
		issues, err := ProcessSource(ctx, engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		allIssues = append(allIssues, issues...)
	}
	return allIssues, nil
}

// Options tune ProcessFiles and ProcessPath.
type Options struct {
	// Workers bounds the packages processed at once; zero means one per
	// CPU.
	Workers int
	// Progress receives a progress bar for directory runs; nil hides it.
	Progress io.Writer
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	paths []string,
	processor Processor,
	opts Options,
) ([]tt.Issue, error) {
	var allIssues []tt.Issue
	for _, path := range paths {
		issues, err := ProcessPath(ctx, logger, engine, path, processor, opts)
		allIssues = append(allIssues, issues...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return allIssues, err
		}
	}
	return allIssues, nil
}

// ProcessPath analyses a file, or every package below a directory. A
// package that fails is logged and skipped. On cancellation the issues
// found so far are returned with the context error.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine LintEngine,
	path string,
	processor Processor,
	opts Options,
) ([]tt.Issue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}
	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return nil, nil
		}
		return processor(ctx, engine, []string{path})
	}

	pkgs, err := collectPackages(path)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(pkgs),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(path),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var (
		mu     sync.Mutex
		issues []tt.Issue
		g      errgroup.Group
	)
	g.SetLimit(workers)
	for _, pkg := range pkgs {
		if ctx.Err() != nil {
			break
		}
		pkg := pkg
		g.Go(func() error {
			found, err := processor(ctx, engine, pkg.Files)
			if bar != nil {
				_ = bar.Add(1)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				logger.Error("Error processing package", zap.String("dir", pkg.Dir), zap.Error(err))
				return nil
			}
			mu.Lock()
			issues = append(issues, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	sortIssues(issues)
	if ctx.Err() != nil {
		return issues, ctx.Err()
	}
	return issues, nil
}

// collectPackages groups the source files below root by directory. Test
// files are left out.
func collectPackages(root string) ([]Package, error) {
	byDir := make(map[string][]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "testdata" || d.Name() == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if hasDesiredExtension(p) && !isTestFile(p) {
			dir := filepath.Dir(p)
			byDir[dir] = append(byDir[dir], p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}

	pkgs := make([]Package, 0, len(byDir))
	for dir, files := range byDir {
		sort.Strings(files)
		pkgs = append(pkgs, Package{Dir: dir, Files: files})
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Dir < pkgs[j].Dir })
	return pkgs, nil
}

func sortIssues(issues []tt.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i].Start, issues[j].Start
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

var desiredExtensions = map[string]bool{
	".go":  true,
	".gno": true,
}

func hasDesiredExtension(path string) bool {
	return desiredExtensions[filepath.Ext(path)]
}

func isTestFile(path string) bool {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.HasSuffix(base, "_test") || strings.HasSuffix(base, "_filetest")
}
