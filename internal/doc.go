// Package internal drives the symbolic execution of Go and Gno packages.
//
// Key components:
//
// Engine: parses and type-checks a package, walks every function of it
// through a shared behavior cache and runs the enabled checks on each
// walk. Issues silenced by nolint comments are dropped.
//
// Cache: keeps the issues of a package on disk, keyed by its files and
// invalidated whenever a source or an engine setting changes.
//
// Watcher: reports the directories whose sources change, so that only
// those packages are analysed again.
//
// SourceCode: the lines of a source file, used to render issues.
//
// Usage:
//
//	engine := internal.NewEngine(
//	    internal.WithRules(rules),
//	    internal.WithLogger(logger),
//	)
//
//	issues, err := engine.Run(ctx, "a.go", "b.go")
//	if err != nil {
//	    // handle error
//	}
//
//	for _, issue := range issues {
//	    fmt.Printf("%s: %s at %s\n", issue.Function, issue.Message, issue.Start)
//	}
//
// This package is intended for internal use within the tool and should not
// be imported by external packages.
package internal
