package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kacmedija/assay/internal/model"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, result *model.ReviewResult) error {
	fmt.Fprintf(w, "## Assay Code Review\n\n")

	if result.ParseError {
		fmt.Fprintf(w, "**Review failed.**\n\n")
		fmt.Fprintf(w, "```\n%s\n```\n", result.RawResponse)
		return nil
	}

	counts := result.CountBySeverity()
	total := len(result.Issues)

	fmt.Fprintf(w, "| Severity | Count |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	fmt.Fprintf(w, "| Critical | %d    |\n", counts[model.SeverityCritical])
	fmt.Fprintf(w, "| Warning  | %d    |\n", counts[model.SeverityWarning])
	fmt.Fprintf(w, "| Info     | %d    |\n", counts[model.SeverityInfo])
	fmt.Fprintf(w, "| Suggestion | %d  |\n", counts[model.SeveritySuggestion])
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", total)

	if total == 0 {
		fmt.Fprintln(w, "No issues found. :white_check_mark:")
		return nil
	}

	grouped := result.GroupBySeverity()
	for _, sev := range severityOrder {
		issues := grouped[sev]
		if len(issues) == 0 {
			continue
		}

		fmt.Fprintf(w, "<details>\n<summary>%s %s (%d)</summary>\n\n",
			mdSeverityIcon(sev), strings.ToUpper(sev.DisplayName()), len(issues))

		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].File < issues[j].File
		})

		for _, issue := range issues {
			fmt.Fprintf(w, "### %s\n\n", issue.Title)
			fmt.Fprintf(w, "**`%s:%d`** | %s\n\n", issue.File, issue.Line, issue.Category.DisplayName())
			fmt.Fprintf(w, "%s\n\n", issue.Description)

			if issue.Suggestion != "" {
				fmt.Fprintf(w, "**Suggestion:**\n\n")
				if looksLikeCode(issue.Suggestion) {
					fmt.Fprintf(w, "```%s\n%s\n```\n\n", inferLang(issue.File), issue.Suggestion)
				} else {
					fmt.Fprintf(w, "> %s\n\n", strings.ReplaceAll(issue.Suggestion, "\n", "\n> "))
				}
			}

			fmt.Fprintf(w, "---\n\n")
		}

		fmt.Fprintf(w, "</details>\n\n")
	}

	return nil
}

func mdSeverityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return ":red_circle:"
	case model.SeverityWarning:
		return ":orange_circle:"
	case model.SeverityInfo:
		return ":yellow_circle:"
	case model.SeveritySuggestion:
		return ":blue_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

func inferLang(path string) string {
	langMap := map[string]string{
		".go":   "go",
		".py":   "python",
		".js":   "javascript",
		".ts":   "typescript",
		".tsx":  "tsx",
		".jsx":  "jsx",
		".rs":   "rust",
		".java": "java",
		".rb":   "ruby",
		".cpp":  "cpp",
		".c":    "c",
		".cs":   "csharp",
		".php":  "php",
		".sh":   "bash",
		".sql":  "sql",
		".yaml": "yaml",
		".yml":  "yaml",
		".json": "json",
		".tf":   "hcl",
	}
	for ext, lang := range langMap {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	return ""
}
