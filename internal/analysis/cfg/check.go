package cfg

import (
	"errors"
	"go/ast"
	"go/importer"
	"go/token"
	"go/types"
)

// Check type-checks files as one package. Type errors do not stop the
// check: the partial information is returned together with the joined
// errors, and functions that failed to check are lowered with what is known.
func Check(fset *token.FileSet, files []*ast.File) (*types.Info, error) {
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Instances:  make(map[*ast.Ident]types.Instance),
	}
	var errs []error
	conf := types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error:    func(err error) { errs = append(errs, err) },
	}
	name := "main"
	if len(files) > 0 {
		name = files[0].Name.Name
	}
	// errors are collected by conf.Error
	_, _ = conf.Check(name, fset, files, info)
	if len(errs) > 0 {
		return info, errors.Join(errs...)
	}
	return info, nil
}

// Load type-checks files and lowers every function they declare.
func Load(fset *token.FileSet, files []*ast.File) (*Program, error) {
	info, err := Check(fset, files)
	return NewProgram(fset, files, info), err
}
