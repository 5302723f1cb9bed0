package xproc

import (
	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/se/constraint"
)

// builtins lists library functions whose behavior is known without a body.
// Each returns a single non-nil error.
var builtins = map[string]bool{
	"errors.New": true,
	"fmt.Errorf": true,
}

// IsBuiltin reports whether m has a known behavior without a body.
func IsBuiltin(m *cfg.Method) bool {
	return builtins[m.Name]
}

func builtinBehavior(m *cfg.Method) *Behavior {
	b := &Behavior{Method: m, complete: true}
	b.Yields = []*Yield{{
		Params:  make([]constraint.ByDomain, len(m.Params)),
		Results: []Result{{Param: NotParam, Constraints: constraint.Of(constraint.NotNull)}},
	}}
	return b
}
