package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kacmedija/assay/internal/model"
	"github.com/kacmedija/assay/internal/output"
	"github.com/kacmedija/assay/internal/store"
)

// Results flags
var (
	flagResultsFormat   string
	flagResultsOut      string
	flagResultsSeverity string
	flagResultsCategory string
	flagShowFixed       bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the saved results of the last review",
	Run: func(cmd *cobra.Command, args []string) {
		runResults()
	},
}

func init() {
	resultsCmd.Flags().StringVar(&flagResultsFormat, "format", "text", "Output format (text, json, markdown, sarif)")
	resultsCmd.Flags().StringVar(&flagResultsOut, "out", "", "Output file path (default: stdout)")
	resultsCmd.Flags().StringVar(&flagResultsSeverity, "severity", "", "Only show these severities (comma-separated)")
	resultsCmd.Flags().StringVar(&flagResultsCategory, "category", "", "Only show these categories (comma-separated)")
	resultsCmd.Flags().BoolVar(&flagShowFixed, "show-fixed", true, "Include issues marked as fixed")
}

func runResults() {
	dir, err := projectDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	result := store.New(dir, newLogger()).Load()
	if result == nil {
		fmt.Fprintln(os.Stderr, "No saved review results.")
		return
	}

	severities, err := parseSeverityFilter(flagResultsSeverity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	categories, err := parseCategories(splitComma(flagResultsCategory))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}

	filtered := *result
	filtered.Issues = result.Filter(severities, categories, flagShowFixed)
	if err := output.WriteResult(&filtered, flagResultsFormat, flagResultsOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
	}
}

func parseSeverityFilter(arg string) (map[model.Severity]bool, error) {
	names := splitComma(arg)
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[model.Severity]bool, len(names))
	for _, name := range names {
		sev, ok := model.SeverityFromString(name)
		if !ok {
			return nil, fmt.Errorf("unknown severity %q", name)
		}
		out[sev] = true
	}
	return out, nil
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved review results",
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := projectDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return
		}
		if err := store.New(dir, newLogger()).Delete(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return
		}
		fmt.Fprintln(os.Stdout, "Saved review results deleted.")
	},
}
