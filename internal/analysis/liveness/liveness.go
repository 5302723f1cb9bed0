// Package liveness computes the symbols live at the boundaries of the
// blocks of a cfg.Graph. A symbol is live at a point when some path from
// that point reads it before writing it.
package liveness

import (
	"github.com/gnolang/symex/internal/analysis/cfg"
)

// Set is a set of symbols. The nil set is empty.
type Set map[*cfg.Symbol]struct{}

// Has reports whether s is in the set.
func (l Set) Has(s *cfg.Symbol) bool {
	_, ok := l[s]
	return ok
}

func (l Set) equal(o Set) bool {
	if len(l) != len(o) {
		return false
	}
	for s := range l {
		if !o.Has(s) {
			return false
		}
	}
	return true
}

// Liveness holds the live-in and live-out sets of every block.
type Liveness struct {
	in  map[*cfg.Block]Set
	out map[*cfg.Block]Set
}

// In returns the symbols live on entry to b.
func (l *Liveness) In(b *cfg.Block) Set { return l.in[b] }

// Out returns the symbols live on exit from b.
func (l *Liveness) Out(b *cfg.Block) Set { return l.out[b] }

type useDef struct {
	use Set
	def Set
}

// Analyze runs the backward dataflow to a fixpoint.
func Analyze(g *cfg.Graph) *Liveness {
	local := make(map[*cfg.Block]useDef, len(g.Blocks))
	preds := make(map[*cfg.Block][]*cfg.Block, len(g.Blocks))
	for _, b := range g.Blocks {
		local[b] = blockUseDef(b)
		for _, s := range successors(b) {
			preds[s] = append(preds[s], b)
		}
	}

	l := &Liveness{
		in:  make(map[*cfg.Block]Set, len(g.Blocks)),
		out: make(map[*cfg.Block]Set, len(g.Blocks)),
	}
	worklist := make([]*cfg.Block, 0, len(g.Blocks))
	inWorklist := make(map[*cfg.Block]bool, len(g.Blocks))
	for i := len(g.Blocks) - 1; i >= 0; i-- {
		worklist = append(worklist, g.Blocks[i])
		inWorklist[g.Blocks[i]] = true
	}

	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		inWorklist[b] = false

		out := Set{}
		for _, s := range successors(b) {
			for sym := range l.in[s] {
				out[sym] = struct{}{}
			}
		}
		l.out[b] = out

		newIn := transfer(local[b], out)
		if newIn.equal(l.in[b]) && l.in[b] != nil {
			continue
		}
		l.in[b] = newIn

		for _, p := range preds[b] {
			if inWorklist[p] {
				continue
			}
			worklist = append(worklist, p)
			inWorklist[p] = true
		}
	}
	return l
}

func transfer(ud useDef, out Set) Set {
	in := make(Set, len(ud.use)+len(out))
	for s := range ud.use {
		in[s] = struct{}{}
	}
	for s := range out {
		if !ud.def.Has(s) {
			in[s] = struct{}{}
		}
	}
	return in
}

func successors(b *cfg.Block) []*cfg.Block {
	if len(b.Exceptions) == 0 {
		return b.Succs
	}
	succs := make([]*cfg.Block, 0, len(b.Succs)+len(b.Exceptions))
	succs = append(succs, b.Succs...)
	return append(succs, b.Exceptions...)
}

// blockUseDef scans the elements in order: a read counts as a use unless
// the block wrote the symbol before.
func blockUseDef(b *cfg.Block) useDef {
	ud := useDef{use: Set{}, def: Set{}}
	for _, e := range b.Elements {
		switch e.Kind {
		case cfg.KindIdent:
			if !ud.def.Has(e.Symbol) {
				ud.use[e.Symbol] = struct{}{}
			}
		case cfg.KindAssign:
			for _, t := range e.Targets {
				if t != nil {
					ud.def[t] = struct{}{}
				}
			}
		}
	}
	return ud
}
