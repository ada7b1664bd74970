package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kacmedija/assay/internal/changeset"
	"github.com/kacmedija/assay/internal/claude"
	"github.com/kacmedija/assay/internal/config"
	"github.com/kacmedija/assay/internal/gitx"
	"github.com/kacmedija/assay/internal/model"
	"github.com/kacmedija/assay/internal/output"
	"github.com/kacmedija/assay/internal/review"
	"github.com/kacmedija/assay/internal/store"
)

// Review flags
var (
	flagFile        string
	flagStartLine   int
	flagEndLine     int
	flagCategories  string
	flagDepth       string
	flagCustom      string
	flagStandards   string
	flagFormat      string
	flagOut         string
	flagBatchSize   int
	flagMaxParallel int
	flagModel       string
	flagClaudePath  string
	flagNoRedact    bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [file|selection|changed|branch]",
	Short: "Run a code review",
	Long: `Run a code review over a scope:

  file       the file given with --file
  selection  a line range of --file (--start-line/--end-line)
  changed    files with uncommitted changes (default)
  branch     files changed relative to the default branch`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scopeArg := "changed"
		if len(args) == 1 {
			scopeArg = args[0]
		}
		runReview(scopeArg)
	},
}

func init() {
	reviewCmd.Flags().StringVar(&flagFile, "file", "", "File to review (file and selection scopes)")
	reviewCmd.Flags().IntVar(&flagStartLine, "start-line", 0, "First line of the selection (1-based)")
	reviewCmd.Flags().IntVar(&flagEndLine, "end-line", 0, "Last line of the selection (inclusive)")
	reviewCmd.Flags().StringVar(&flagCategories, "categories", "", "Categories to review (comma-separated: bug,security,performance,style)")
	reviewCmd.Flags().StringVar(&flagDepth, "depth", "", "Review depth (quick, thorough)")
	reviewCmd.Flags().StringVar(&flagCustom, "custom", "", "Additional review instructions")
	reviewCmd.Flags().StringVar(&flagStandards, "standards-file", "", "File with project coding standards")
	reviewCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	reviewCmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	reviewCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "Files per claude invocation")
	reviewCmd.Flags().IntVar(&flagMaxParallel, "max-parallel", 0, "Maximum concurrent claude invocations")
	reviewCmd.Flags().StringVar(&flagModel, "model", "", "Model name passed to claude")
	reviewCmd.Flags().StringVar(&flagClaudePath, "claude-path", "", "Path to the claude executable")
	reviewCmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagClaudePath != "" {
		m["claude-path"] = flagClaudePath
	}
	if flagDepth != "" {
		m["depth"] = flagDepth
	}
	if flagCustom != "" {
		m["custom"] = flagCustom
	}
	if flagStandards != "" {
		m["standards-file"] = flagStandards
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagBatchSize > 0 {
		m["batch-size"] = fmt.Sprintf("%d", flagBatchSize)
	}
	if flagMaxParallel > 0 {
		m["max-parallel"] = fmt.Sprintf("%d", flagMaxParallel)
	}
	return m
}

func runReview(scopeArg string) {
	scope, err := parseScope(scopeArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	if (scope == model.ScopeCurrentFile || scope == model.ScopeSelection) && flagFile == "" {
		fmt.Fprintf(os.Stderr, "Error: the %s scope requires --file\n", scopeArg)
		exitCode = ExitUsageError
		return
	}

	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if flagNoRedact {
		off := false
		cfg.Privacy.RedactSecrets = &off
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}

	categories, err := parseCategories(categoriesFromFlagOrConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	depth, err := parseDepth(cfg.Depth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	standards, err := readStandards(cfg.StandardsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	dir, err := projectDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	log := newLogger()
	defer func() { _ = log.Sync() }()

	editor := &cliEditor{dir: dir, file: flagFile, startLine: flagStartLine, endLine: flagEndLine}
	discoverer := changeset.New(dir, gitx.New(dir, log), editor, log)
	invoker := &claude.CLI{Path: cfg.ClaudePath, Model: cfg.Model, Log: log}
	svc := review.New(dir, discoverer, invoker, store.New(dir, log), review.Config{
		BatchSize:     cfg.BatchSize,
		MaxParallel:   cfg.MaxParallel,
		RedactSecrets: cfg.Privacy.SecretsEnabled(),
		RedactPaths:   cfg.Privacy.RedactPaths,
	}, log)

	svc.SetNotifier(func(n model.Notice) {
		fmt.Fprintf(os.Stderr, "%s\n", n.Message)
	})
	svc.OnProgress(func(p model.Progress) {
		fmt.Fprintf(os.Stderr, "Batch %d/%d complete (%d issues so far)\n",
			p.CompletedBatches, p.TotalBatches, p.IssueCount)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		svc.Abort()
	}()

	if err := svc.Run(ctx, scope, review.Options{
		Categories: categories,
		Depth:      depth,
		Custom:     cfg.CustomInstructions,
		Standards:  standards,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	result := svc.LastResult()
	if result == nil {
		fmt.Fprintln(os.Stderr, "Nothing to review.")
		return
	}
	if err := output.WriteResult(result, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	switch {
	case result.ParseError:
		exitCode = ExitRuntimeError
	case len(result.Issues) > 0:
		exitCode = ExitFindings
	}
}

func parseScope(arg string) (model.Scope, error) {
	switch strings.ToLower(arg) {
	case "file":
		return model.ScopeCurrentFile, nil
	case "selection":
		return model.ScopeSelection, nil
	case "changed":
		return model.ScopeChangedFiles, nil
	case "branch":
		return model.ScopeBranchChanges, nil
	default:
		return 0, fmt.Errorf("unknown scope %q (want file, selection, changed or branch)", arg)
	}
}

func parseDepth(arg string) (model.Depth, error) {
	switch strings.ToLower(arg) {
	case "", "thorough":
		return model.DepthThorough, nil
	case "quick":
		return model.DepthQuick, nil
	default:
		return 0, fmt.Errorf("unknown depth %q (want quick or thorough)", arg)
	}
}

func categoriesFromFlagOrConfig(cfg config.Config) []string {
	if flagCategories != "" {
		return splitComma(flagCategories)
	}
	return cfg.Categories
}

func parseCategories(names []string) (map[model.Category]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[model.Category]bool, len(names))
	for _, name := range names {
		cat, ok := model.CategoryFromString(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		out[cat] = true
	}
	return out, nil
}

func readStandards(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading standards file: %w", err)
	}
	return string(data), nil
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// cliEditor maps the file and line-range flags onto the editor interface the
// discoverer expects.
type cliEditor struct {
	dir       string
	file      string
	startLine int
	endLine   int
}

func (e *cliEditor) ActiveFile() (string, bool) {
	return e.file, e.file != ""
}

func (e *cliEditor) Selection() (string, int, bool) {
	if e.file == "" || e.startLine <= 0 {
		return "", 0, false
	}
	full := e.file
	if !filepath.IsAbs(full) {
		full = filepath.Join(e.dir, e.file)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", 0, false
	}
	lines := strings.Split(string(data), "\n")
	start := e.startLine
	end := e.endLine
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) || start > end {
		return "", 0, false
	}
	return strings.Join(lines[start-1:end], "\n"), start, true
}
