// Package graph holds the exploded graph of one method walk: every
// reachable (program point, program state) pair, deduplicated by
// structural equality of the state.
package graph

import (
	"fmt"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/se/constraint"
	"github.com/gnolang/symex/internal/se/symbolic"
)

// Yield is the summary a call edge was produced from.
type Yield interface {
	fmt.Stringer
}

// LearnedConstraint is a constraint the child state holds and the parent
// state did not.
type LearnedConstraint struct {
	Value      *symbolic.Value
	Constraint constraint.Constraint
}

func (l LearnedConstraint) String() string {
	return fmt.Sprintf("%s:%s", l.Value, l.Constraint)
}

// LearnedBinding is a symbol the transition bound to a new value.
type LearnedBinding struct {
	Symbol *cfg.Symbol
	Value  *symbolic.Value
}

func (l LearnedBinding) String() string {
	return fmt.Sprintf("%s->%s", l.Symbol.Name, l.Value)
}

// Edge links a node to one of its parents.
type Edge struct {
	Parent      *Node
	Child       *Node
	Constraints []LearnedConstraint
	Bindings    []LearnedBinding
	// Yield is set on edges leaving a call through a callee summary.
	Yield Yield
}

// Node is one (point, state) pair. Nodes are created by Graph.Node only.
type Node struct {
	id      int
	Point   cfg.Point
	State   *symbolic.State
	parents []*Edge
}

func (n *Node) ID() int { return n.id }

// Edges returns the edges from the parents of n, in insertion order.
func (n *Node) Edges() []*Edge { return n.parents }

func (n *Node) Parents() []*Node {
	out := make([]*Node, len(n.parents))
	for i, e := range n.parents {
		out[i] = e.Parent
	}
	return out
}

// AddParent records that parent leads to n. It returns nil when the edge
// already exists. y may be nil.
func (n *Node) AddParent(parent *Node, y Yield) *Edge {
	if parent == nil {
		return nil
	}
	for _, e := range n.parents {
		if e.Parent == parent && e.Yield == y {
			return nil
		}
	}
	e := &Edge{Parent: parent, Child: n, Yield: y}
	e.Constraints, e.Bindings = learned(parent.State, n.State)
	n.parents = append(n.parents, e)
	return e
}

func (n *Node) String() string {
	return fmt.Sprintf("#%d %s %s", n.id, n.Point, n.State)
}

func learned(parent, child *symbolic.State) ([]LearnedConstraint, []LearnedBinding) {
	if parent == child {
		return nil, nil
	}
	var constraints []LearnedConstraint
	child.ForEachConstraint(func(v *symbolic.Value, cs constraint.ByDomain) bool {
		before := parent.Constraints(v)
		if cs.Same(before) {
			return true
		}
		for _, c := range cs.Slice() {
			if !before.Has(c) {
				constraints = append(constraints, LearnedConstraint{Value: v, Constraint: c})
			}
		}
		return true
	})
	var bindings []LearnedBinding
	child.ForEachBinding(func(sym *cfg.Symbol, v *symbolic.Value) bool {
		if old, ok := parent.Value(sym); !ok || old != v {
			bindings = append(bindings, LearnedBinding{Symbol: sym, Value: v})
		}
		return true
	})
	return constraints, bindings
}

type key struct {
	point cfg.Point
	hash  uint64
}

// Graph is an additive arena of nodes indexed by point and state hash.
type Graph struct {
	CFG   *cfg.Graph
	nodes []*Node
	index map[key][]int
}

func New(g *cfg.Graph) *Graph {
	return &Graph{CFG: g, index: make(map[key][]int)}
}

// Node returns the node for (p, s), creating it when no node holds an
// equal state at p. The bool reports whether the node is new.
func (g *Graph) Node(p cfg.Point, s *symbolic.State) (*Node, bool) {
	k := key{point: p, hash: s.Hash()}
	for _, i := range g.index[k] {
		if n := g.nodes[i]; n.State.Equal(s) {
			return n, false
		}
	}
	n := &Node{id: len(g.nodes), Point: p, State: s}
	g.nodes = append(g.nodes, n)
	g.index[k] = append(g.index[k], n.id)
	return n, true
}

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node { return g.nodes }

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) At(id int) *Node { return g.nodes[id] }

// NodesAt returns the nodes at point p in creation order.
func (g *Graph) NodesAt(p cfg.Point) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Point == p {
			out = append(out, n)
		}
	}
	return out
}

// ExitNodes returns the nodes at the exit block of the method.
func (g *Graph) ExitNodes() []*Node {
	return g.NodesAt(cfg.Point{Block: g.CFG.Exit.ID})
}

// Element returns the element n is about to execute, nil at a block exit.
func (g *Graph) Element(n *Node) *cfg.Element {
	return g.CFG.Element(n.Point)
}
