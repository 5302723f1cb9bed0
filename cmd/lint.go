package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/gnolang/symex/formatter"
	"github.com/gnolang/symex/internal"
	tt "github.com/gnolang/symex/internal/types"
	"github.com/gnolang/symex/lint"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ignoreRules    string
	lintJSONOutput bool
	outPath        string
	noProgress     bool
	watchMode      bool
)

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Run the checks on files or directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		ignore(config.Rules, ignoreRules)

		engine, err := lint.New(config, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize the engine: %w", err)
		}

		if watchMode {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), engine, args)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		opts := lint.Options{Workers: config.Engine.Workers}
		if !noProgress && !lintJSONOutput {
			opts.Progress = cmd.ErrOrStderr()
		}
		return runLint(ctx, cmd.OutOrStdout(), engine, args, opts)
	},
}

func init() {
	lintCmd.Flags().StringVar(&ignoreRules, "ignore", "", "Comma-separated list of rules to turn off")
	lintCmd.Flags().BoolVar(&lintJSONOutput, "json", false, "Output issues in JSON format")
	lintCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	lintCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")
	lintCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Check packages again whenever their files change")
}

// loadConfig reads path. A missing file is fine when it is the default
// one.
func loadConfig(path string) (lint.Config, error) {
	config, err := lint.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) && path == lint.DefaultConfigPath {
		logger.Debug("no configuration file, using defaults", zap.String("path", path))
		return lint.DefaultConfig(), nil
	}
	if err != nil {
		return config, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config, nil
}

func ignore(rules map[string]tt.ConfigRule, list string) {
	if list == "" {
		return
	}
	for _, rule := range strings.Split(list, ",") {
		if rule = strings.TrimSpace(rule); rule != "" {
			rules[rule] = tt.ConfigRule{Severity: tt.SeverityOff}
		}
	}
}

func runLint(ctx context.Context, w io.Writer, engine lint.LintEngine, paths []string, opts lint.Options) error {
	issues, err := lint.ProcessFiles(ctx, logger, engine, paths, lint.ProcessPackage, opts)
	if err != nil {
		return fmt.Errorf("error processing files: %w", err)
	}
	if err := printIssues(w, issues, lintJSONOutput, outPath); err != nil {
		return err
	}
	if len(issues) > 0 {
		return ErrIssuesFound
	}
	return nil
}

// runWatch prints the issues of every package whose files change, until
// ctx is done.
func runWatch(ctx context.Context, w io.Writer, engine lint.LintEngine, paths []string) error {
	fmt.Fprintln(w, "watching for changes, press Ctrl+C to stop")
	return lint.Watch(ctx, logger, engine, paths, lint.ProcessPackage, func(dir string, issues []tt.Issue) {
		if len(issues) == 0 {
			fmt.Fprintf(w, "%s: no issues\n", dir)
			return
		}
		if err := printIssues(w, issues, lintJSONOutput, ""); err != nil {
			logger.Error("Error printing issues", zap.String("dir", dir), zap.Error(err))
		}
	})
}

func printIssues(w io.Writer, issues []tt.Issue, isJSON bool, jsonOutput string) error {
	issuesByFile := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByFile[issue.Filename] = append(issuesByFile[issue.Filename], issue)
	}

	if isJSON {
		d, err := json.Marshal(issuesByFile)
		if err != nil {
			return fmt.Errorf("error marshalling issues to JSON: %w", err)
		}
		if jsonOutput == "" {
			_, err = fmt.Fprintln(w, string(d))
			return err
		}
		return os.WriteFile(jsonOutput, d, 0o644)
	}

	sortedFiles := make([]string, 0, len(issuesByFile))
	for filename := range issuesByFile {
		sortedFiles = append(sortedFiles, filename)
	}
	sort.Strings(sortedFiles)

	for _, filename := range sortedFiles {
		sourceCode, err := internal.ReadSourceCode(filename)
		if err != nil {
			logger.Error("Error reading source file", zap.String("file", filename), zap.Error(err))
			continue
		}
		fmt.Fprint(w, formatter.GenerateFormattedIssue(issuesByFile[filename], sourceCode))
	}
	return nil
}
