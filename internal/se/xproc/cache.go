package xproc

import (
	"context"
	"strconv"
	"sync"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// WalkFunc computes the behavior of m. It returns a nil behavior for
// methods that cannot be walked.
type WalkFunc func(ctx context.Context, m *cfg.Method) (*Behavior, error)

// session is one chain of nested computations, run by one goroutine.
type session struct {
	// waitingOn is the id of the method the chain is blocked on, -1 when
	// it is running.
	waitingOn int
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) (*session, context.Context) {
	if s, ok := ctx.Value(sessionKey{}).(*session); ok {
		return s, ctx
	}
	s := &session{waitingOn: -1}
	return s, context.WithValue(ctx, sessionKey{}, s)
}

// Cache memoizes behaviors of the methods of one program. Concurrent
// callers share a single computation per method. A call that would wait on
// its own computation, directly or through other waiting goroutines, gets
// an incomplete placeholder without yields instead.
type Cache struct {
	walk   WalkFunc
	logger *zap.Logger

	group   singleflight.Group
	mu      sync.Mutex
	done    map[int]*Behavior
	running map[int]*session
}

type CacheOption func(*Cache)

func WithLogger(logger *zap.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

func NewCache(walk WalkFunc, opts ...CacheOption) *Cache {
	c := &Cache{
		walk:    walk,
		logger:  zap.NewNop(),
		done:    make(map[int]*Behavior),
		running: make(map[int]*session),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the behavior of m, computing it on first use. The behavior
// is nil when m has no body and no known behavior.
func (c *Cache) Get(ctx context.Context, m *cfg.Method) (*Behavior, error) {
	if IsBuiltin(m) {
		return builtinBehavior(m), nil
	}
	me, ctx := sessionFrom(ctx)

	c.mu.Lock()
	if b, ok := c.done[m.ID]; ok {
		c.mu.Unlock()
		return b, nil
	}
	if c.cycle(me, m.ID) {
		c.mu.Unlock()
		c.logger.Debug("recursive call, using placeholder", zap.String("method", m.Name))
		return &Behavior{Method: m}, nil
	}
	prev := me.waitingOn
	me.waitingOn = m.ID
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.Itoa(m.ID), func() (interface{}, error) {
		return c.compute(ctx, me, m)
	})

	c.mu.Lock()
	me.waitingOn = prev
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return v.(*Behavior), nil
}

// compute runs the walk of m unless a computation that finished between
// the lookup in Get and the singleflight call already stored it.
func (c *Cache) compute(ctx context.Context, me *session, m *cfg.Method) (*Behavior, error) {
	c.mu.Lock()
	if b, ok := c.done[m.ID]; ok {
		me.waitingOn = -1
		c.mu.Unlock()
		return b, nil
	}
	c.running[m.ID] = me
	me.waitingOn = -1
	c.mu.Unlock()

	b, err := c.walk(ctx, m)

	c.mu.Lock()
	delete(c.running, m.ID)
	if err == nil {
		c.done[m.ID] = b
	}
	c.mu.Unlock()
	return b, err
}

// cycle reports whether waiting on method id would make me wait on
// itself. c.mu must be held.
func (c *Cache) cycle(me *session, id int) bool {
	seen := make(map[*session]bool)
	for owner := c.running[id]; owner != nil && !seen[owner]; owner = c.running[owner.waitingOn] {
		if owner == me {
			return true
		}
		seen[owner] = true
		if owner.waitingOn < 0 {
			return false
		}
	}
	return false
}

// Len returns the number of cached behaviors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.done)
}
