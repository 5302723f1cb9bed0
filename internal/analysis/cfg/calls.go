package cfg

// Callees returns the functions with a body that m calls directly, in the
// order their calls are lowered. Each callee appears once.
func (p *Program) Callees(m *Method) []*Method {
	g := p.graphs[m]
	if g == nil {
		return nil
	}
	var out []*Method
	seen := make(map[*Method]bool)
	for _, b := range g.Blocks {
		for _, e := range b.Elements {
			if e.Callee == nil || seen[e.Callee] || p.graphs[e.Callee] == nil {
				continue
			}
			seen[e.Callee] = true
			out = append(out, e.Callee)
		}
	}
	return out
}

// Components groups Methods into strongly connected components of the
// call graph. A component comes after every component it calls into, and
// its members keep their declaration order.
func (p *Program) Components() [][]*Method {
	t := &tarjan{
		p:     p,
		index: make(map[*Method]int),
		low:   make(map[*Method]int),
		on:    make(map[*Method]bool),
	}
	for _, m := range p.Methods {
		if _, ok := t.index[m]; !ok {
			t.visit(m)
		}
	}
	return t.out
}

type tarjan struct {
	p     *Program
	next  int
	index map[*Method]int
	low   map[*Method]int
	on    map[*Method]bool
	stack []*Method
	out   [][]*Method
}

func (t *tarjan) visit(m *Method) {
	t.index[m] = t.next
	t.low[m] = t.next
	t.next++
	t.stack = append(t.stack, m)
	t.on[m] = true

	for _, c := range t.p.Callees(m) {
		if _, ok := t.index[c]; !ok {
			t.visit(c)
			t.low[m] = min(t.low[m], t.low[c])
		} else if t.on[c] {
			t.low[m] = min(t.low[m], t.index[c])
		}
	}
	if t.low[m] != t.index[m] {
		return
	}

	members := make(map[*Method]bool)
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.on[top] = false
		members[top] = true
		if top == m {
			break
		}
	}
	comp := make([]*Method, 0, len(members))
	for _, d := range t.p.Methods {
		if members[d] {
			comp = append(comp, d)
		}
	}
	t.out = append(t.out, comp)
}
