package cfg

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/astutil"
	gocfg "golang.org/x/tools/go/cfg"
)

var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrNoBody           = errors.New("function has no body")
)

// Program holds the lowered graphs of every function declared in a set
// of type-checked files. It is immutable once built.
type Program struct {
	Fset *token.FileSet
	Info *types.Info
	// Methods lists the functions with a body, in declaration order.
	Methods []*Method

	decls      map[*Method]*ast.FuncDecl
	graphs     map[*Method]*Graph
	byObj      map[*types.Func]*Method
	byName     map[string]*Method
	symbols    map[types.Object]*Symbol
	nextMethod int
	nextSymbol int
}

// NewProgram lowers every function declared in files.
func NewProgram(fset *token.FileSet, files []*ast.File, info *types.Info) *Program {
	p := newProgram(fset, info)
	for _, f := range files {
		for _, d := range f.Decls {
			decl, ok := d.(*ast.FuncDecl)
			if !ok || decl.Body == nil {
				continue
			}
			fn, ok := info.Defs[decl.Name].(*types.Func)
			if !ok {
				continue
			}
			p.declare(decl, fn)
		}
	}
	for _, m := range p.Methods {
		p.graphs[m] = newLowerer(p, m, p.decls[m]).lower()
	}
	return p
}

// Lower builds the graph of a single function. Calls to other functions
// of the package are lowered as calls to bodiless methods.
func Lower(fset *token.FileSet, info *types.Info, decl *ast.FuncDecl) (*Graph, error) {
	if decl.Body == nil {
		return nil, fmt.Errorf("%s: %w", decl.Name.Name, ErrNoBody)
	}
	fn, ok := info.Defs[decl.Name].(*types.Func)
	if !ok {
		return nil, fmt.Errorf("%s: %w", decl.Name.Name, ErrFunctionNotFound)
	}
	p := newProgram(fset, info)
	m := p.declare(decl, fn)
	g := newLowerer(p, m, decl).lower()
	p.graphs[m] = g
	return g, nil
}

func newProgram(fset *token.FileSet, info *types.Info) *Program {
	return &Program{
		Fset:    fset,
		Info:    info,
		decls:   make(map[*Method]*ast.FuncDecl),
		graphs:  make(map[*Method]*Graph),
		byObj:   make(map[*types.Func]*Method),
		byName:  make(map[string]*Method),
		symbols: make(map[types.Object]*Symbol),
	}
}

// Graph returns the graph of m, or nil when m has no body.
func (p *Program) Graph(m *Method) *Graph {
	return p.graphs[m]
}

// Decl returns the declaration of m, or nil when m has no body.
func (p *Program) Decl(m *Method) *ast.FuncDecl {
	return p.decls[m]
}

// Lookup finds a function by its full name ("pkg.F", "(*pkg.T).M") or by
// its short name ("F", "T.M").
func (p *Program) Lookup(name string) (*Method, error) {
	m, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrFunctionNotFound)
	}
	return m, nil
}

func (p *Program) declare(decl *ast.FuncDecl, fn *types.Func) *Method {
	m := p.newMethod(fn)
	m.Pos = decl.Pos()
	p.Methods = append(p.Methods, m)
	p.decls[m] = decl
	p.byObj[fn] = m
	p.byName[m.Name] = m
	if _, ok := p.byName[shortName(fn)]; !ok {
		p.byName[shortName(fn)] = m
	}
	return m
}

// methodOf returns the method of fn, creating a bodiless one for
// functions declared elsewhere.
func (p *Program) methodOf(fn *types.Func) *Method {
	fn = fn.Origin()
	if m, ok := p.byObj[fn]; ok {
		return m
	}
	m := p.newMethod(fn)
	p.byObj[fn] = m
	return m
}

func (p *Program) newMethod(fn *types.Func) *Method {
	sig := fn.Type().(*types.Signature)
	m := &Method{
		ID:       p.nextMethod,
		Name:     fn.FullName(),
		Results:  sig.Results().Len(),
		Variadic: sig.Variadic(),
		Obj:      fn,
	}
	p.nextMethod++
	if recv := sig.Recv(); recv != nil {
		m.Params = append(m.Params, p.newSymbol(recv, Param))
	}
	for i := 0; i < sig.Params().Len(); i++ {
		m.Params = append(m.Params, p.newSymbol(sig.Params().At(i), Param))
	}
	for i := 0; i < sig.Results().Len(); i++ {
		if r := sig.Results().At(i); r.Name() != "" {
			m.NamedResults = append(m.NamedResults, p.newSymbol(r, Result))
		}
	}
	return m
}

func (p *Program) newSymbol(v *types.Var, kind SymbolKind) *Symbol {
	name := v.Name()
	if name == "" {
		name = "_"
	}
	s := &Symbol{ID: p.nextSymbol, Name: name, Kind: kind, Nilable: nilable(v.Type()), Obj: v}
	p.nextSymbol++
	if name != "_" {
		p.symbols[v] = s
	}
	return s
}

func shortName(fn *types.Func) string {
	sig := fn.Type().(*types.Signature)
	if recv := sig.Recv(); recv != nil {
		t := recv.Type()
		if ptr, ok := t.(*types.Pointer); ok {
			t = ptr.Elem()
		}
		if named, ok := t.(*types.Named); ok {
			return named.Obj().Name() + "." + fn.Name()
		}
	}
	return fn.Name()
}

type lowerer struct {
	p    *Program
	m    *Method
	decl *ast.FuncDecl
	g    *Graph
	cur  *Block

	entries    map[int32]*Block
	tags       map[ast.Expr]*Symbol
	cases      map[ast.Expr]*Symbol
	ranges     map[ast.Node]*ast.RangeStmt
	rangeHeads map[int32]*ast.RangeStmt
	skip       map[ast.Node]bool
}

func newLowerer(p *Program, m *Method, decl *ast.FuncDecl) *lowerer {
	return &lowerer{
		p:          p,
		m:          m,
		decl:       decl,
		entries:    make(map[int32]*Block),
		tags:       make(map[ast.Expr]*Symbol),
		cases:      make(map[ast.Expr]*Symbol),
		ranges:     make(map[ast.Node]*ast.RangeStmt),
		rangeHeads: make(map[int32]*ast.RangeStmt),
		skip:       make(map[ast.Node]bool),
	}
}

func (l *lowerer) lower() *Graph {
	l.g = &Graph{Method: l.m}
	l.g.Entry = l.newBlock("entry")
	l.prescan()

	body := gocfg.New(l.decl.Body, l.mayReturn)
	for _, b := range body.Blocks {
		if b.Live {
			l.entries[b.Index] = l.newBlock(fmt.Sprintf("B%d", b.Index))
		}
	}
	l.g.Exit = l.newBlock("exit")
	for _, b := range body.Blocks {
		if !b.Live || len(b.Nodes) == 0 || len(b.Succs) != 1 {
			continue
		}
		if rs, ok := l.ranges[b.Nodes[len(b.Nodes)-1]]; ok {
			l.rangeHeads[b.Succs[0].Index] = rs
		}
	}

	l.cur = l.g.Entry
	for _, r := range l.m.NamedResults {
		l.zero(r.Obj.Type(), nil)
		l.add(&Element{Kind: KindAssign, Targets: []*Symbol{r}})
	}
	l.jump(l.entries[body.Blocks[0].Index])

	for _, b := range body.Blocks {
		if b.Live {
			l.cur = l.entries[b.Index]
			l.block(b)
		}
	}
	return l.g
}

// prescan records the switch tags, the case expressions compared to them
// and the range clauses, which go/cfg leaves as plain nodes.
func (l *lowerer) prescan() {
	ast.Inspect(l.decl.Body, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.SwitchStmt:
			if s.Tag == nil {
				break
			}
			tag := &Symbol{ID: l.p.nextSymbol, Name: "tag", Kind: Synthetic, Nilable: nilable(l.typeOf(s.Tag))}
			l.p.nextSymbol++
			l.tags[s.Tag] = tag
			for _, c := range s.Body.List {
				for _, e := range c.(*ast.CaseClause).List {
					l.cases[e] = tag
				}
			}
		case *ast.RangeStmt:
			l.ranges[s.X] = s
			if s.Key != nil {
				l.ranges[s.Key] = s
				l.skip[s.Key] = true
			}
			if s.Value != nil {
				l.ranges[s.Value] = s
				l.skip[s.Value] = true
			}
		}
		return true
	})
}

func (l *lowerer) mayReturn(call *ast.CallExpr) bool {
	if id, ok := astutil.Unparen(call.Fun).(*ast.Ident); ok {
		if b, ok := l.p.Info.Uses[id].(*types.Builtin); ok && b.Name() == "panic" {
			return false
		}
	}
	return true
}

func (l *lowerer) block(b *gocfg.Block) {
	if rs, ok := l.rangeHeads[b.Index]; ok {
		l.rangeAssign(rs)
	}
	last := len(b.Nodes) - 1
	for i, n := range b.Nodes {
		if i == last && len(b.Succs) == 2 {
			if e, ok := n.(ast.Expr); ok && l.isCond(e) {
				l.cond(e, l.entries[b.Succs[0].Index], l.entries[b.Succs[1].Index])
				return
			}
		}
		l.node(n)
	}
	if len(b.Succs) == 0 {
		l.jump(l.g.Exit)
		return
	}
	for _, s := range b.Succs {
		l.jump(l.entries[s.Index])
	}
}

func (l *lowerer) isCond(e ast.Expr) bool {
	if _, ok := l.cases[e]; ok {
		return true
	}
	return isBoolean(l.typeOf(e))
}

func (l *lowerer) node(n ast.Node) {
	switch n := n.(type) {
	case *ast.AssignStmt:
		l.assign(n)
	case *ast.IncDecStmt:
		op := token.ADD
		if n.Tok == token.DEC {
			op = token.SUB
		}
		l.expr(n.X)
		l.add(&Element{Kind: KindNumber, Node: n})
		l.add(&Element{Kind: KindBinary, Node: n, Op: op})
		l.store([]ast.Expr{n.X})
	case *ast.ExprStmt:
		l.expr(n.X)
		l.add(&Element{Kind: KindDiscard, Node: n})
	case *ast.ReturnStmt:
		l.ret(n)
	case *ast.ValueSpec:
		l.valueSpec(n)
	case *ast.SendStmt:
		l.expr(n.Chan)
		l.expr(n.Value)
		l.add(&Element{Kind: KindOther, Node: n, Arity: 2})
	case ast.Expr:
		if l.skip[n] {
			return
		}
		if tag, ok := l.tags[n]; ok {
			l.expr(n)
			l.add(&Element{Kind: KindAssign, Node: n, Targets: []*Symbol{tag}})
			return
		}
		l.expr(n)
		l.add(&Element{Kind: KindDiscard, Node: n})
	}
}

// cond lowers a branch condition, splitting negations and short-circuit
// operators into explicit blocks.
func (l *lowerer) cond(e ast.Expr, t, f *Block) {
	if tag, ok := l.cases[e]; ok {
		l.add(&Element{Kind: KindIdent, Node: e, Symbol: tag})
		if l.isNil(e) {
			l.add(&Element{Kind: KindNilCheck, Node: e})
		} else {
			l.expr(e)
			l.add(&Element{Kind: KindBinary, Node: e, Op: token.EQL})
		}
		l.branch(t, f)
		return
	}
	switch x := astutil.Unparen(e).(type) {
	case *ast.UnaryExpr:
		if x.Op == token.NOT {
			l.cond(x.X, f, t)
			return
		}
	case *ast.BinaryExpr:
		switch x.Op {
		case token.LAND:
			rhs := l.newBlock("and.rhs")
			l.cond(x.X, rhs, f)
			l.cur = rhs
			l.cond(x.Y, t, f)
			return
		case token.LOR:
			rhs := l.newBlock("or.rhs")
			l.cond(x.X, t, rhs)
			l.cur = rhs
			l.cond(x.Y, t, f)
			return
		}
	}
	l.expr(e)
	l.branch(t, f)
}

func (l *lowerer) expr(e ast.Expr) {
	if tv, ok := l.p.Info.Types[e]; ok {
		if tv.IsNil() {
			l.add(&Element{Kind: KindNil, Node: e})
			return
		}
		if tv.Value != nil {
			l.constant(e, tv.Value)
			return
		}
	}
	switch e := e.(type) {
	case *ast.ParenExpr:
		l.expr(e.X)
	case *ast.Ident:
		l.ident(e)
	case *ast.UnaryExpr:
		l.unary(e)
	case *ast.BinaryExpr:
		l.binary(e)
	case *ast.StarExpr:
		l.expr(e.X)
		l.add(&Element{Kind: KindDeref, Node: e, Results: 1})
	case *ast.SelectorExpr:
		l.selector(e)
	case *ast.CallExpr:
		l.call(e)
	case *ast.IndexExpr:
		if _, ok := l.typeOf(e.X).Underlying().(*types.Signature); ok {
			l.add(&Element{Kind: KindLiteral, Node: e})
			return
		}
		l.expr(e.X)
		l.expr(e.Index)
		l.add(&Element{Kind: KindIndex, Node: e, Arity: 2, Results: 1})
	case *ast.SliceExpr:
		n := 0
		for _, x := range []ast.Expr{e.X, e.Low, e.High, e.Max} {
			if x != nil {
				l.expr(x)
				n++
			}
		}
		l.add(&Element{Kind: KindOther, Node: e, Arity: n, Results: 1})
	case *ast.TypeAssertExpr:
		l.expr(e.X)
		l.add(&Element{Kind: KindTypeAssert, Node: e, Results: 1})
	case *ast.CompositeLit:
		l.composite(e)
	case *ast.KeyValueExpr:
		l.expr(e.Value)
	case *ast.FuncLit, *ast.IndexListExpr:
		l.add(&Element{Kind: KindLiteral, Node: e})
	default:
		l.add(&Element{Kind: KindOther, Node: e, Results: 1})
	}
}

// multi lowers an expression that yields n values.
func (l *lowerer) multi(e ast.Expr, n int) {
	switch x := astutil.Unparen(e).(type) {
	case *ast.CallExpr:
		l.call(x)
	case *ast.TypeAssertExpr:
		l.expr(x.X)
		l.add(&Element{Kind: KindTypeAssert, Node: x, Results: n})
	case *ast.IndexExpr:
		l.expr(x.X)
		l.expr(x.Index)
		l.add(&Element{Kind: KindIndex, Node: x, Arity: 2, Results: n})
	case *ast.UnaryExpr:
		l.expr(x.X)
		l.add(&Element{Kind: KindOther, Node: x, Arity: 1, Results: n})
	default:
		l.expr(e)
		for i := 1; i < n; i++ {
			l.add(&Element{Kind: KindOther, Node: e, Results: 1})
		}
	}
}

func (l *lowerer) constant(e ast.Expr, v constant.Value) {
	switch v.Kind() {
	case constant.Bool:
		l.add(&Element{Kind: KindBool, Node: e, Value: constant.BoolVal(v)})
	case constant.Int, constant.Float, constant.Complex:
		l.add(&Element{Kind: KindNumber, Node: e, Zero: constant.Sign(v) == 0})
	default:
		l.add(&Element{Kind: KindLiteral, Node: e})
	}
}

func (l *lowerer) ident(e *ast.Ident) {
	switch obj := l.objectOf(e).(type) {
	case *types.Var:
		if s := l.symbolOf(obj); s != nil {
			l.add(&Element{Kind: KindIdent, Node: e, Symbol: s})
			return
		}
	case *types.Func:
		l.add(&Element{Kind: KindLiteral, Node: e})
		return
	}
	// package variables are not tracked
	l.add(&Element{Kind: KindOther, Node: e, Results: 1})
}

func (l *lowerer) unary(e *ast.UnaryExpr) {
	switch e.Op {
	case token.AND:
		if cl, ok := astutil.Unparen(e.X).(*ast.CompositeLit); ok {
			l.composite(cl)
			return
		}
		l.expr(e.X)
		l.add(&Element{Kind: KindAlloc, Node: e, Arity: 1})
	case token.ARROW:
		l.expr(e.X)
		l.add(&Element{Kind: KindOther, Node: e, Arity: 1, Results: 1})
	default:
		l.expr(e.X)
		l.add(&Element{Kind: KindUnary, Node: e, Op: e.Op})
	}
}

func (l *lowerer) binary(e *ast.BinaryExpr) {
	switch e.Op {
	case token.LAND, token.LOR:
		t, f := l.newBlock("cond.true"), l.newBlock("cond.false")
		done := l.newBlock("cond.done")
		l.cond(e, t, f)
		l.cur = t
		l.add(&Element{Kind: KindBool, Node: e, Value: true})
		l.jump(done)
		l.cur = f
		l.add(&Element{Kind: KindBool, Node: e, Value: false})
		l.jump(done)
		l.cur = done
		return
	case token.EQL, token.NEQ:
		if l.isNil(e.X) || l.isNil(e.Y) {
			operand := e.X
			if l.isNil(e.X) {
				operand = e.Y
			}
			l.expr(operand)
			l.add(&Element{Kind: KindNilCheck, Node: e, Negated: e.Op == token.NEQ})
			return
		}
	}
	l.expr(e.X)
	l.expr(e.Y)
	l.add(&Element{
		Kind:   KindBinary,
		Node:   e,
		Op:     e.Op,
		IntDiv: (e.Op == token.QUO || e.Op == token.REM) && isInteger(l.typeOf(e)),
	})
}

func (l *lowerer) selector(e *ast.SelectorExpr) {
	sel, ok := l.p.Info.Selections[e]
	if !ok {
		// qualified identifier
		l.ident(e.Sel)
		return
	}
	switch sel.Kind() {
	case types.FieldVal:
		l.expr(e.X)
		l.add(&Element{Kind: KindSelect, Node: e, Deref: isPointer(l.typeOf(e.X)), Results: 1})
	case types.MethodVal:
		l.expr(e.X)
		l.add(&Element{Kind: KindSelect, Node: e, Deref: l.receiverDeref(sel, e.X), Results: 1})
	default:
		l.add(&Element{Kind: KindLiteral, Node: e})
	}
}

// receiverDeref reports whether calling the selected method reads
// through x: interface receivers, and value receivers reached through a
// pointer.
func (l *lowerer) receiverDeref(sel *types.Selection, x ast.Expr) bool {
	xt := l.typeOf(x)
	if types.IsInterface(xt) {
		return true
	}
	recv := sel.Obj().Type().(*types.Signature).Recv()
	return recv != nil && isPointer(xt) && !isPointer(recv.Type())
}

func (l *lowerer) call(e *ast.CallExpr) {
	results := l.arity(e)
	fun := astutil.Unparen(e.Fun)
	if tv, ok := l.p.Info.Types[fun]; ok && tv.IsType() {
		if len(e.Args) == 1 {
			l.expr(e.Args[0])
			l.add(&Element{Kind: KindConvert, Node: e})
		} else {
			l.add(&Element{Kind: KindOther, Node: e, Results: 1})
		}
		return
	}
	if id, ok := fun.(*ast.Ident); ok {
		if b, ok := l.p.Info.Uses[id].(*types.Builtin); ok {
			l.builtin(e, b.Name(), results)
			return
		}
	}

	el := &Element{Kind: KindCall, Node: e, Results: results}
	fn, recv := l.callee(fun)
	switch {
	case recv != nil:
		sel := l.p.Info.Selections[recv]
		l.expr(recv.X)
		el.Deref = l.receiverDeref(sel, recv.X)
		if sig := sel.Obj().Type().(*types.Signature); sig.Recv() != nil &&
			isPointer(sig.Recv().Type()) && !isPointer(l.typeOf(recv.X)) && !types.IsInterface(l.typeOf(recv.X)) {
			// implicit &x
			l.add(&Element{Kind: KindAlloc, Node: recv, Arity: 1})
		}
		el.Arity++
	case fn == nil:
		l.expr(fun)
		el.Deref = true
		el.Arity++
	}
	if fn != nil {
		el.Callee = l.p.methodOf(fn)
	}
	el.Arity += l.args(e)
	l.add(el)
}

// callee resolves the static target of a call. recv is set for method
// calls, whose receiver is the first operand.
func (l *lowerer) callee(fun ast.Expr) (fn *types.Func, recv *ast.SelectorExpr) {
	switch f := fun.(type) {
	case *ast.Ident:
		fn, _ = l.p.Info.Uses[f].(*types.Func)
		return fn, nil
	case *ast.SelectorExpr:
		if sel, ok := l.p.Info.Selections[f]; ok {
			if sel.Kind() == types.MethodVal {
				fn, _ = sel.Obj().(*types.Func)
				return fn, f
			}
			return nil, nil
		}
		fn, _ = l.p.Info.Uses[f.Sel].(*types.Func)
		return fn, nil
	case *ast.IndexExpr:
		return l.callee(astutil.Unparen(f.X))
	case *ast.IndexListExpr:
		return l.callee(astutil.Unparen(f.X))
	}
	return nil, nil
}

// args lowers the arguments of a call and returns how many values they
// pushed. Variadic arguments are packed into one slice value.
func (l *lowerer) args(e *ast.CallExpr) int {
	if len(e.Args) == 1 {
		if tuple, ok := l.typeOf(e.Args[0]).(*types.Tuple); ok {
			l.multi(e.Args[0], tuple.Len())
			return tuple.Len()
		}
	}
	sig, _ := l.typeOf(e.Fun).Underlying().(*types.Signature)
	if sig == nil || !sig.Variadic() || e.Ellipsis.IsValid() {
		for _, a := range e.Args {
			l.expr(a)
		}
		return len(e.Args)
	}
	fixed := sig.Params().Len() - 1
	for i := 0; i < fixed && i < len(e.Args); i++ {
		l.expr(e.Args[i])
	}
	if len(e.Args) <= fixed {
		l.add(&Element{Kind: KindNil, Node: e})
		return fixed + 1
	}
	for _, a := range e.Args[fixed:] {
		l.expr(a)
	}
	l.add(&Element{Kind: KindAlloc, Node: e, Arity: len(e.Args) - fixed})
	return fixed + 1
}

func (l *lowerer) builtin(e *ast.CallExpr, name string, results int) {
	switch name {
	case "panic":
		l.expr(e.Args[0])
		l.add(&Element{Kind: KindPanic, Node: e, TypeName: typeName(l.typeOf(e.Args[0]))})
	case "new":
		l.add(&Element{Kind: KindAlloc, Node: e})
	case "make":
		for _, a := range e.Args[1:] {
			l.expr(a)
		}
		l.add(&Element{Kind: KindAlloc, Node: e, Arity: len(e.Args) - 1})
	default:
		n := 0
		for _, a := range e.Args {
			if tv, ok := l.p.Info.Types[a]; ok && tv.IsType() {
				continue
			}
			l.expr(a)
			n++
		}
		l.add(&Element{Kind: KindOther, Node: e, Arity: n, Results: results})
	}
}

func (l *lowerer) composite(e *ast.CompositeLit) {
	for _, elt := range e.Elts {
		l.expr(elt)
	}
	l.add(&Element{Kind: KindAlloc, Node: e, Arity: len(e.Elts)})
}

var assignOps = map[token.Token]token.Token{
	token.ADD_ASSIGN:     token.ADD,
	token.SUB_ASSIGN:     token.SUB,
	token.MUL_ASSIGN:     token.MUL,
	token.QUO_ASSIGN:     token.QUO,
	token.REM_ASSIGN:     token.REM,
	token.AND_ASSIGN:     token.AND,
	token.OR_ASSIGN:      token.OR,
	token.XOR_ASSIGN:     token.XOR,
	token.SHL_ASSIGN:     token.SHL,
	token.SHR_ASSIGN:     token.SHR,
	token.AND_NOT_ASSIGN: token.AND_NOT,
}

func (l *lowerer) assign(s *ast.AssignStmt) {
	if op, ok := assignOps[s.Tok]; ok {
		l.expr(s.Lhs[0])
		l.expr(s.Rhs[0])
		l.add(&Element{
			Kind:   KindBinary,
			Node:   s,
			Op:     op,
			IntDiv: (op == token.QUO || op == token.REM) && isInteger(l.typeOf(s.Lhs[0])),
		})
		l.store(s.Lhs[:1])
		return
	}
	if len(s.Lhs) == len(s.Rhs) {
		for _, r := range s.Rhs {
			l.expr(r)
		}
	} else {
		l.multi(s.Rhs[0], len(s.Lhs))
	}
	l.store(s.Lhs)
}

// store binds the values on top of the stack to lhs. Stores through
// pointers, fields and indexes evaluate their operands and discard the
// value.
func (l *lowerer) store(lhs []ast.Expr) {
	targets := make([]*Symbol, len(lhs))
	for i, x := range lhs {
		switch x := astutil.Unparen(x).(type) {
		case *ast.Ident:
			targets[i] = l.symbolOf(l.objectOf(x))
		case *ast.StarExpr:
			l.expr(x.X)
			l.add(&Element{Kind: KindDeref, Node: x})
		case *ast.SelectorExpr:
			if sel, ok := l.p.Info.Selections[x]; ok && sel.Kind() == types.FieldVal {
				l.expr(x.X)
				l.add(&Element{Kind: KindSelect, Node: x, Deref: isPointer(l.typeOf(x.X))})
			}
		case *ast.IndexExpr:
			l.expr(x.X)
			l.expr(x.Index)
			l.add(&Element{Kind: KindIndex, Node: x, Arity: 2})
		}
	}
	l.add(&Element{Kind: KindAssign, Node: lhs[0], Targets: targets})
}

func (l *lowerer) ret(s *ast.ReturnStmt) {
	switch {
	case len(s.Results) == 0:
		for _, r := range l.m.NamedResults {
			l.add(&Element{Kind: KindIdent, Node: s, Symbol: r})
		}
		l.add(&Element{Kind: KindReturn, Node: s, Arity: len(l.m.NamedResults)})
	case len(s.Results) == 1 && l.m.Results > 1:
		l.multi(s.Results[0], l.m.Results)
		l.add(&Element{Kind: KindReturn, Node: s, Arity: l.m.Results})
	default:
		for _, r := range s.Results {
			l.expr(r)
		}
		l.add(&Element{Kind: KindReturn, Node: s, Arity: len(s.Results)})
	}
}

func (l *lowerer) valueSpec(vs *ast.ValueSpec) {
	switch {
	case len(vs.Values) == 0:
		for _, name := range vs.Names {
			l.zero(l.typeOf(name), name)
		}
	case len(vs.Values) == len(vs.Names):
		for _, v := range vs.Values {
			l.expr(v)
		}
	default:
		l.multi(vs.Values[0], len(vs.Names))
	}
	targets := make([]*Symbol, len(vs.Names))
	for i, name := range vs.Names {
		targets[i] = l.symbolOf(l.p.Info.Defs[name])
	}
	l.add(&Element{Kind: KindAssign, Node: vs, Targets: targets})
}

// rangeAssign binds fresh values to the key and value of a range clause
// at the head of every iteration.
func (l *lowerer) rangeAssign(rs *ast.RangeStmt) {
	var targets []*Symbol
	for _, x := range []ast.Expr{rs.Key, rs.Value} {
		if x == nil {
			continue
		}
		var s *Symbol
		if id, ok := x.(*ast.Ident); ok {
			s = l.symbolOf(l.objectOf(id))
		}
		l.add(&Element{Kind: KindOther, Node: x, Results: 1})
		targets = append(targets, s)
	}
	if len(targets) > 0 {
		l.add(&Element{Kind: KindAssign, Node: rs, Targets: targets})
	}
}

func (l *lowerer) zero(t types.Type, n ast.Node) {
	switch {
	case nilable(t):
		l.add(&Element{Kind: KindNil, Node: n})
	case isBoolean(t):
		l.add(&Element{Kind: KindBool, Node: n})
	case isNumeric(t):
		l.add(&Element{Kind: KindNumber, Node: n, Zero: true})
	default:
		l.add(&Element{Kind: KindLiteral, Node: n})
	}
}

func (l *lowerer) symbolOf(obj types.Object) *Symbol {
	if obj == nil {
		return nil
	}
	if s, ok := l.p.symbols[obj]; ok {
		return s
	}
	v, ok := obj.(*types.Var)
	if !ok || v.IsField() || v.Pkg() == nil || v.Parent() == nil || v.Parent() == v.Pkg().Scope() || v.Name() == "_" {
		return nil
	}
	return l.p.newSymbol(v, Local)
}

func (l *lowerer) objectOf(id *ast.Ident) types.Object {
	if obj := l.p.Info.Uses[id]; obj != nil {
		return obj
	}
	return l.p.Info.Defs[id]
}

func (l *lowerer) typeOf(e ast.Expr) types.Type {
	if t := l.p.Info.TypeOf(e); t != nil {
		return t
	}
	return types.Typ[types.Invalid]
}

func (l *lowerer) isNil(e ast.Expr) bool {
	tv, ok := l.p.Info.Types[e]
	return ok && tv.IsNil()
}

// arity is the number of values e pushes.
func (l *lowerer) arity(e ast.Expr) int {
	tv, ok := l.p.Info.Types[e]
	if !ok {
		return 1
	}
	if tv.IsVoid() {
		return 0
	}
	if tuple, ok := tv.Type.(*types.Tuple); ok {
		return tuple.Len()
	}
	return 1
}

func (l *lowerer) newBlock(comment string) *Block {
	b := &Block{ID: len(l.g.Blocks), Comment: comment}
	l.g.Blocks = append(l.g.Blocks, b)
	return b
}

func (l *lowerer) add(e *Element) {
	l.cur.Elements = append(l.cur.Elements, e)
}

func (l *lowerer) jump(to *Block) {
	l.cur.Succs = append(l.cur.Succs, to)
}

func (l *lowerer) branch(t, f *Block) {
	l.cur.Cond = true
	l.cur.True, l.cur.False = t, f
	l.cur.Succs = []*Block{t, f}
}

func nilable(t types.Type) bool {
	if _, ok := t.(*types.TypeParam); ok {
		return false
	}
	switch u := t.Underlying().(type) {
	case *types.Pointer, *types.Slice, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return true
	case *types.Basic:
		return u.Kind() == types.UnsafePointer || u.Kind() == types.UntypedNil
	}
	return false
}

func basicInfo(t types.Type) types.BasicInfo {
	if b, ok := t.Underlying().(*types.Basic); ok {
		return b.Info()
	}
	return 0
}

func isBoolean(t types.Type) bool { return basicInfo(t)&types.IsBoolean != 0 }
func isInteger(t types.Type) bool { return basicInfo(t)&types.IsInteger != 0 }
func isNumeric(t types.Type) bool { return basicInfo(t)&types.IsNumeric != 0 }

func isPointer(t types.Type) bool {
	_, ok := t.Underlying().(*types.Pointer)
	return ok
}

func typeName(t types.Type) string {
	return types.TypeString(types.Default(t), func(p *types.Package) string { return p.Name() })
}
