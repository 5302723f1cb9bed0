package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gnolang/symex/internal/analysis/cfg"
	"github.com/gnolang/symex/internal/se/walker"
	"github.com/gnolang/symex/internal/se/xproc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	egraphFunc   string
	egraphOutput string
	showYields   bool
	maxSteps     int
)

var egraphCmd = &cobra.Command{
	Use:   "egraph [files...]",
	Short: "Print the exploded graph of a function",
	Long: `Walks a function and outputs its exploded graph in dot format: one node per program point and state.
Example) symex egraph --func MyFunction --yields *.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return runEGraph(ctx, cmd.OutOrStdout(), args, egraphFunc, egraphOutput)
	},
}

func init() {
	egraphCmd.Flags().StringVar(&egraphFunc, "func", "", "Function name, such as F, T.M or pkg.F")
	egraphCmd.Flags().StringVarP(&egraphOutput, "output", "o", "", "Output path for rendered GraphViz file")
	egraphCmd.Flags().BoolVar(&showYields, "yields", false, "Print the behavior of the function after the graph")
	egraphCmd.Flags().IntVar(&maxSteps, "max-steps", walker.DefaultMaxSteps, "Nodes expanded before the walk gives up")
	_ = egraphCmd.MarkFlagRequired("func")
}

func runEGraph(ctx context.Context, w io.Writer, paths []string, funcName string, output string) error {
	p, m, err := loadProgram(paths, funcName)
	if err != nil {
		return err
	}
	var wk *walker.Walker
	cache := xproc.NewCache(func(ctx context.Context, m *cfg.Method) (*xproc.Behavior, error) {
		return wk.Behavior(ctx, m)
	}, xproc.WithLogger(logger))
	wk = walker.New(p, cache,
		walker.WithLogger(logger),
		walker.WithConfig(walker.Config{MaxSteps: maxSteps}),
	)

	res, err := wk.Walk(ctx, m)
	if err != nil {
		return err
	}
	logger.Info("walked",
		zap.String("function", m.Name),
		zap.Int("nodes", res.Graph.Len()),
		zap.Int("steps", res.Steps),
		zap.Bool("complete", res.Complete))

	var buf strings.Builder
	res.Graph.PrintDot(&buf)
	if err := emitDot(w, buf.String(), output); err != nil {
		return err
	}
	if showYields {
		fmt.Fprintf(w, "// %s complete=%t\n", m.Name, res.Behavior.IsComplete())
		for _, y := range res.Behavior.Yields {
			fmt.Fprintf(w, "// %s\n", y)
		}
	}
	return nil
}
