package checks

import (
	"context"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/se/walker"
	"github.com/gnolang/symex/internal/se/xproc"
	"golang.org/x/tools/go/analysis"
)

// Analyzer runs every check on the functions of a package.
var Analyzer = &analysis.Analyzer{
	Name: "symex",
	Doc:  "reports nil dereferences and integer divisions by zero found by symbolic execution",
	Run:  runAnalyzer,
}

func runAnalyzer(pass *analysis.Pass) (interface{}, error) {
	p := cfg.NewProgram(pass.Fset, pass.Files, pass.TypesInfo)
	collector := NewCollector(pass.Fset)
	var w *walker.Walker
	cache := xproc.NewCache(func(ctx context.Context, m *cfg.Method) (*xproc.Behavior, error) {
		return w.Behavior(ctx, m)
	})
	w = walker.New(p, cache, walker.WithChecks(Enabled(nil, collector)...))

	ctx := context.Background()
	for _, m := range p.Methods {
		if _, err := cache.Get(ctx, m); err != nil {
			return nil, err
		}
	}
	for _, f := range collector.sorted() {
		pass.Report(analysis.Diagnostic{
			Pos:      f.pos,
			End:      f.end,
			Category: f.issue.Rule,
			Message:  f.issue.Message,
		})
	}
	return nil, nil
}
