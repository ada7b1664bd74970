package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kacmedija/assay/internal/model"
)

var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityWarning,
	model.SeverityInfo,
	model.SeveritySuggestion,
}

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, result *model.ReviewResult) error {
	ew := &errWriter{w: w}

	if result.ParseError {
		ew.println("Review failed.")
		ew.println(strings.Repeat("─", 60))
		ew.println(result.RawResponse)
		return ew.err
	}

	counts := result.CountBySeverity()
	total := len(result.Issues)

	ew.println("Assay Code Review")
	ew.println(strings.Repeat("─", 60))
	ew.printf("Issues: %d total", total)
	if total > 0 {
		ew.printf(" (%d critical, %d warning, %d info, %d suggestion)",
			counts[model.SeverityCritical],
			counts[model.SeverityWarning],
			counts[model.SeverityInfo],
			counts[model.SeveritySuggestion],
		)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNo issues found. Looks good!")
		return ew.err
	}

	grouped := result.GroupBySeverity()
	for _, sev := range severityOrder {
		issues := grouped[sev]
		if len(issues) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", severityIcon(sev), strings.ToUpper(sev.DisplayName()))
		ew.println(strings.Repeat("─", 40))

		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].File < issues[j].File
		})

		for _, issue := range issues {
			fixed := ""
			if issue.Fixed {
				fixed = "  [fixed]"
			}
			ew.printf("\n  %s:%d  %s%s\n", issue.File, issue.Line, issue.Title, fixed)
			ew.printf("  Category: %s\n", issue.Category.DisplayName())
			for _, line := range wrapText(issue.Description, 70) {
				ew.printf("    %s\n", line)
			}
			if issue.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(issue.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "[!!]"
	case model.SeverityWarning:
		return "[!]"
	case model.SeverityInfo:
		return "[-]"
	case model.SeveritySuggestion:
		return "[~]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
