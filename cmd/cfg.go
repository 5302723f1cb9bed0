package cmd

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"strings"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// variable for flags
var (
	funcName string
	output   string
)

var cfgCmd = &cobra.Command{
	Use:   "cfg [files...]",
	Short: "Print the control flow graph the engine walks",
	Long: `Outputs the lowered Control Flow Graph (CFG) of a function in dot format, or renders it with GraphViz.
The files are loaded as one package.
Example) symex cfg --func MyFunction *.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCFG(cmd.OutOrStdout(), args, funcName, output)
	},
}

func init() {
	cfgCmd.Flags().StringVar(&funcName, "func", "", "Function name, such as F, T.M or pkg.F")
	cfgCmd.Flags().StringVarP(&output, "output", "o", "", "Output path for rendered GraphViz file")
	_ = cfgCmd.MarkFlagRequired("func")
}

// loadProgram parses paths as the files of one package and looks up name.
func loadProgram(paths []string, name string) (*cfg.Program, *cfg.Method, error) {
	fset := token.NewFileSet()
	files := make([]*ast.File, 0, len(paths))
	for _, path := range paths {
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		files = append(files, f)
	}
	p, err := cfg.Load(fset, files)
	if err != nil {
		logger.Debug("type errors", zap.Error(err))
	}
	m, err := p.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	return p, m, nil
}

func emitDot(w io.Writer, dot string, output string) error {
	if output == "" {
		_, err := io.WriteString(w, dot)
		return err
	}
	if err := cfg.RenderToGraphVizFile([]byte(dot), output); err != nil {
		return fmt.Errorf("failed to render to GraphViz file: %w", err)
	}
	fmt.Fprintf(w, "GraphViz file created: %s\n", output)
	return nil
}

func runCFG(w io.Writer, paths []string, funcName string, output string) error {
	p, m, err := loadProgram(paths, funcName)
	if err != nil {
		return err
	}
	var buf strings.Builder
	p.Graph(m).PrintDot(&buf)
	return emitDot(w, buf.String(), output)
}
