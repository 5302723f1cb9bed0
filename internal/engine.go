package internal

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/checks"
	"github.com/gnolang/symex/internal/nolint"
	"github.com/gnolang/symex/internal/se/walker"
	"github.com/gnolang/symex/internal/se/xproc"
	tt "github.com/gnolang/symex/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine runs the checks over the functions of a package.
type Engine struct {
	rules   map[string]tt.ConfigRule
	walker  walker.Config
	workers int
	logger  *zap.Logger
	cache   *Cache
}

type EngineOption func(*Engine)

func WithRules(rules map[string]tt.ConfigRule) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

func WithWalkerConfig(c walker.Config) EngineOption {
	return func(e *Engine) { e.walker = c }
}

// WithWorkers bounds how many functions are walked at once. Values below
// one mean one worker per CPU.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithCache reuses the issues of packages whose files did not change.
func WithCache(c *Cache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// NewEngine creates an engine running every check with its default
// severity unless rules say otherwise.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		walker:  walker.DefaultConfig(),
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// settings identifies everything besides the sources that changes the
// issues of a package.
func (e *Engine) settings() string {
	names := make([]string, 0, len(e.rules))
	for name := range e.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	fmt.Fprintf(&b, "steps=%d points=%d", e.walker.MaxSteps, e.walker.MaxExecProgramPoint)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%s", name, e.rules[name].Severity)
	}
	return b.String()
}

// Run analyses filenames as the files of one package. Files ending in
// .gno are read as Go.
func (e *Engine) Run(ctx context.Context, filenames ...string) ([]tt.Issue, error) {
	sources := make([][]byte, len(filenames))
	for i, name := range filenames {
		src, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", name, err)
		}
		sources[i] = src
	}

	key := strings.Join(filenames, "\x00")
	sum := digest(e.settings(), sources...)
	if e.cache != nil {
		if issues, ok := e.cache.Get(key, sum); ok {
			e.logger.Debug("issues from cache", zap.Strings("files", filenames))
			return issues, nil
		}
	}

	fset := token.NewFileSet()
	files := make([]*ast.File, len(filenames))
	for i, name := range filenames {
		f, err := parser.ParseFile(fset, name, sources[i], parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", name, err)
		}
		files[i] = f
	}

	issues, err := e.Analyze(ctx, fset, files)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if err := e.cache.Set(key, sum, issues); err != nil {
			e.logger.Warn("failed to update the issue cache", zap.Error(err))
		}
	}
	return issues, nil
}

// RunSource analyses a single source file held in memory.
func (e *Engine) RunSource(ctx context.Context, source []byte) ([]tt.Issue, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("error parsing content: %w", err)
	}
	return e.Analyze(ctx, fset, []*ast.File{f})
}

// Analyze walks every function of files and returns the issues that no
// nolint directive silences, ordered by position. Type errors are logged
// and the analysis goes on with what could be typed.
func (e *Engine) Analyze(ctx context.Context, fset *token.FileSet, files []*ast.File) ([]tt.Issue, error) {
	p, err := cfg.Load(fset, files)
	if err != nil {
		e.logger.Debug("type errors", zap.Error(err))
	}

	collector := checks.NewCollector(fset)
	var w *walker.Walker
	cache := xproc.NewCache(func(ctx context.Context, m *cfg.Method) (*xproc.Behavior, error) {
		return w.Behavior(ctx, m)
	}, xproc.WithLogger(e.logger))
	w = walker.New(p, cache,
		walker.WithConfig(e.walker),
		walker.WithLogger(e.logger),
		walker.WithChecks(checks.Enabled(e.rules, collector)...),
	)

	// Each component is walked by one goroutine once its callees are done,
	// so a recursive cycle is always entered at the same function.
	comps := p.Components()
	finished := make(map[*cfg.Method]chan struct{}, len(p.Methods))
	for _, comp := range comps {
		ch := make(chan struct{})
		for _, m := range comp {
			finished[m] = ch
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, comp := range comps {
		comp := comp
		g.Go(func() error {
			defer close(finished[comp[0]])
			for _, m := range comp {
				for _, c := range p.Callees(m) {
					if ch := finished[c]; ch != nil && ch != finished[comp[0]] {
						select {
						case <-ch:
						case <-gctx.Done():
							return gctx.Err()
						}
					}
				}
			}
			for _, m := range comp {
				b, err := cache.Get(gctx, m)
				if err != nil {
					return fmt.Errorf("walking %s: %w", m.Name, err)
				}
				if b != nil && !b.IsComplete() {
					e.logger.Debug("incomplete behavior", zap.String("function", m.Name))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nolints := nolint.New()
	for _, f := range files {
		nolints.Add(f, fset)
	}
	return nolints.Filter(collector.Issues()), nil
}

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	return &SourceCode{Lines: lines}, nil
}
