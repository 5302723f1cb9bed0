// Package walker explores the reachable states of a method by walking its
// CFG with symbolic values, building the exploded graph and the method's
// behavior.
package walker

import (
	"context"
	"fmt"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/analysis/liveness"
	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/graph"
	"github.com/gnolang/symex/internal/se/symbolic"
	"github.com/gnolang/symex/internal/se/xproc"
	"go.uber.org/zap"
)

const (
	DefaultMaxSteps            = 16000
	DefaultMaxExecProgramPoint = 2
)

// RuntimeError is the type of the panics raised by nil dereferences and
// integer divisions by zero.
const RuntimeError = "runtime.Error"

// Config bounds a walk.
type Config struct {
	// MaxSteps is the number of nodes expanded before the walk gives up.
	MaxSteps int
	// MaxExecProgramPoint is how often one path may enter the same block.
	MaxExecProgramPoint int
}

func DefaultConfig() Config {
	return Config{
		MaxSteps:            DefaultMaxSteps,
		MaxExecProgramPoint: DefaultMaxExecProgramPoint,
	}
}

// Check inspects the exploded graph of every completed walk. Checks may be
// called concurrently for different methods.
type Check interface {
	Check(g *graph.Graph)
}

// Result is the outcome of one walk.
type Result struct {
	Graph    *graph.Graph
	Behavior *xproc.Behavior
	Steps    int
	// Complete is false when the walk stopped on its step budget or on
	// cancellation.
	Complete bool
}

type Walker struct {
	program *cfg.Program
	cache   *xproc.Cache
	config  Config
	logger  *zap.Logger
	checks  []Check
}

type Option func(*Walker)

func WithConfig(c Config) Option {
	return func(w *Walker) {
		if c.MaxSteps > 0 {
			w.config.MaxSteps = c.MaxSteps
		}
		if c.MaxExecProgramPoint > 0 {
			w.config.MaxExecProgramPoint = c.MaxExecProgramPoint
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(w *Walker) { w.logger = logger }
}

func WithChecks(checks ...Check) Option {
	return func(w *Walker) { w.checks = append(w.checks, checks...) }
}

// New returns a walker over the methods of p. Calls are resolved through
// cache; a nil cache treats every call as unknown.
func New(p *cfg.Program, cache *xproc.Cache, opts ...Option) *Walker {
	w := &Walker{
		program: p,
		cache:   cache,
		config:  DefaultConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Behavior walks m and runs the checks on its graph. It is the walk
// function of the behavior cache and returns nil for methods without a
// body.
func (w *Walker) Behavior(ctx context.Context, m *cfg.Method) (*xproc.Behavior, error) {
	g := w.program.Graph(m)
	if g == nil {
		return nil, nil
	}
	res, err := w.WalkGraph(ctx, g)
	if err != nil {
		return res.Behavior, err
	}
	for _, c := range w.checks {
		c.Check(res.Graph)
	}
	return res.Behavior, nil
}

// Walk explores m.
func (w *Walker) Walk(ctx context.Context, m *cfg.Method) (*Result, error) {
	g := w.program.Graph(m)
	if g == nil {
		return nil, fmt.Errorf("walking %s: %w", m.Name, cfg.ErrNoBody)
	}
	return w.WalkGraph(ctx, g)
}

// WalkGraph explores g from a state where every parameter is bound to a
// fresh value. Values of non-nilable types start NOT_NULL.
//
// When the step budget runs out the partial result is returned with an
// incomplete behavior. On cancellation the partial result is returned
// together with the context error.
func (w *Walker) WalkGraph(ctx context.Context, g *cfg.Graph) (*Result, error) {
	wk := &walk{
		Walker: w,
		ctx:    ctx,
		cfg:    g,
		graph:  graph.New(g),
		live:   liveness.Analyze(g),
		values: symbolic.NewFactory(),
	}

	start := symbolic.Empty()
	for _, p := range g.Method.Params {
		v := wk.values.Plain()
		wk.params = append(wk.params, v)
		start = start.Put(p, v)
		if !p.Nilable {
			start = start.AddConstraint(v, constraint.NotNull)
		}
	}
	wk.behavior = xproc.NewBehavior(g.Method, wk.params)
	wk.enqueue(nil, cfg.Point{Block: g.Entry.ID}, start, nil)

	err := wk.run()
	res := &Result{Graph: wk.graph, Behavior: wk.behavior, Steps: wk.steps}
	if err == nil && !wk.exhausted {
		wk.behavior.Complete()
		res.Complete = true
	}
	return res, err
}

type walk struct {
	*Walker
	ctx context.Context

	cfg      *cfg.Graph
	graph    *graph.Graph
	live     *liveness.Liveness
	values   *symbolic.Factory
	params   []*symbolic.Value
	behavior *xproc.Behavior

	work      []*graph.Node
	steps     int
	exhausted bool
}

func (wk *walk) run() error {
	for len(wk.work) > 0 {
		if err := wk.ctx.Err(); err != nil {
			wk.logger.Debug("walk cancelled", zap.String("method", wk.cfg.Method.Name), zap.Int("steps", wk.steps))
			return err
		}
		if wk.steps >= wk.config.MaxSteps {
			wk.exhausted = true
			wk.logger.Debug("step budget exhausted",
				zap.String("method", wk.cfg.Method.Name),
				zap.Int("steps", wk.steps),
				zap.Int("nodes", wk.graph.Len()))
			return nil
		}
		n := wk.work[len(wk.work)-1]
		wk.work = wk.work[:len(wk.work)-1]
		wk.steps++
		wk.expand(n)
	}
	return nil
}

func (wk *walk) expand(n *graph.Node) {
	p := n.Point
	if p.Block == wk.cfg.Exit.ID {
		wk.behavior.CreateYield(n)
		return
	}
	if e := wk.cfg.Element(p); e != nil {
		wk.execute(n, e)
		return
	}
	wk.leaveBlock(n)
}

// enqueue adds the successor (p, s) of parent. Entering a block counts as
// a visit of the block on the path of s.
func (wk *walk) enqueue(parent *graph.Node, p cfg.Point, s *symbolic.State, y graph.Yield) {
	if p.Offset == 0 {
		s = s.VisitPoint(p)
		if s.Visits(p) > wk.config.MaxExecProgramPoint {
			return
		}
	}
	n, created := wk.graph.Node(p, s)
	n.AddParent(parent, y)
	if created {
		wk.work = append(wk.work, n)
	}
}

// next continues with the element after n.
func (wk *walk) next(n *graph.Node, s *symbolic.State) {
	wk.enqueue(n, cfg.Point{Block: n.Point.Block, Offset: n.Point.Offset + 1}, s, nil)
}

// raise ends the path of n with a panic carrying exc.
func (wk *walk) raise(n *graph.Node, s *symbolic.State, exc *symbolic.Value, y graph.Yield) {
	s = s.ClearStack().WithExit(nil, exc)
	handlers := wk.cfg.Blocks[n.Point.Block].Exceptions
	if len(handlers) == 0 {
		wk.enqueue(n, cfg.Point{Block: wk.cfg.Exit.ID}, s, y)
		return
	}
	for _, h := range handlers {
		wk.enqueue(n, cfg.Point{Block: h.ID}, s, y)
	}
}

// leaveBlock drops what the successors cannot use and moves to them. A
// conditional block branches on the value on top of the stack.
func (wk *walk) leaveBlock(n *graph.Node) {
	b := wk.cfg.Blocks[n.Point.Block]
	live := wk.live.Out(b)
	clean := func(s *symbolic.State) *symbolic.State {
		return s.CleanupDeadSymbols(live.Has).CleanupConstraints(wk.params)
	}

	if b.Cond {
		s, top := n.State.Pop(1)
		for _, st := range top[0].SetConstraint(s, constraint.True) {
			wk.enqueue(n, cfg.Point{Block: b.True.ID}, clean(st), nil)
		}
		for _, st := range top[0].SetConstraint(s, constraint.False) {
			wk.enqueue(n, cfg.Point{Block: b.False.ID}, clean(st), nil)
		}
		return
	}
	s := clean(n.State)
	for _, succ := range b.Succs {
		wk.enqueue(n, cfg.Point{Block: succ.ID}, s, nil)
	}
}
