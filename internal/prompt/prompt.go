package prompt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/kacmedija/assay/internal/model"
)

// Any single file larger than maxFileChars is cut down to truncateToChars
// before entering the prompt.
const (
	maxFileChars    = 100_000
	truncateToChars = 50_000
)

const truncationMarker = "\n... [truncated, file too large] ..."

const jsonSchema = `[
  {
    "severity": "CRITICAL | WARNING | INFO | SUGGESTION",
    "category": "BUG | SECURITY | PERFORMANCE | STYLE",
    "file": "path/to/file.go",
    "line": 42,
    "title": "Short issue title",
    "description": "Detailed explanation of the issue",
    "suggestion": "How to fix it (code or text)"
  }
]`

const jsonExample = `[
  {
    "severity": "CRITICAL",
    "category": "SECURITY",
    "file": "server/handler.go",
    "line": 55,
    "title": "SQL injection vulnerability",
    "description": "The query is built by concatenating user input, which allows SQL injection.",
    "suggestion": "Use parameterized queries instead of string concatenation."
  },
  {
    "severity": "WARNING",
    "category": "PERFORMANCE",
    "file": "store/query.go",
    "line": 120,
    "title": "N+1 query in loop",
    "description": "A database query inside the loop body issues one round trip per element.",
    "suggestion": "Batch the lookups or fetch the related rows with a single JOIN."
  }
]`

// Build assembles the review prompt for one batch of files. Section order is
// fixed; see the package comment.
func Build(files []model.SourceFile, categories map[model.Category]bool, depth model.Depth, customInstructions, standardsInstructions string) string {
	var b strings.Builder

	b.WriteString("You are an expert code reviewer. Analyze the following code and return issues found.\n\n")
	b.WriteString("IMPORTANT: Return ONLY a valid JSON array. No markdown fences, no explanations, no text before or after the JSON.\n\n")

	b.WriteString("Use this exact JSON schema:\n")
	b.WriteString(jsonSchema)
	b.WriteString("\n\n")

	b.WriteString("Example output:\n")
	b.WriteString(jsonExample)
	b.WriteString("\n\n")

	b.WriteString("Focus on these categories: ")
	b.WriteString(categoryList(categories))
	b.WriteString(".\n\n")

	fmt.Fprintf(&b, "Review depth: %s\n%s\n\n", depth.DisplayName(), depth.PromptInstruction())

	if s := strings.TrimSpace(standardsInstructions); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	if c := strings.TrimSpace(customInstructions); c != "" {
		b.WriteString("Additional instructions: ")
		b.WriteString(c)
		b.WriteString("\n\n")
	}

	b.WriteString("=== FILES TO REVIEW ===\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "=== FILE: %s ===\n", f.Name)
		b.WriteString(truncateContent(f.Content))
		b.WriteString("\n\n")
	}

	b.WriteString("If no issues are found, return an empty JSON array: []\n")
	b.WriteString("Remember: Return ONLY the JSON array, nothing else.\n")

	return b.String()
}

// categoryList renders the selected categories as a comma list of display
// names in declaration order. An empty set selects everything.
func categoryList(categories map[model.Category]bool) string {
	var names []string
	for _, c := range model.AllCategories() {
		if len(categories) == 0 || categories[c] {
			names = append(names, c.DisplayName())
		}
	}
	return strings.Join(names, ", ")
}

// truncateContent caps a single file's contribution by character count.
// The change-set layer already applies a byte-level cap on read; this guard
// covers content handed in directly (selections, in-memory buffers).
func truncateContent(content string) string {
	if len(content) <= maxFileChars {
		return content
	}
	runes := []rune(content)
	if len(runes) <= maxFileChars {
		return content
	}
	return string(runes[:truncateToChars]) + truncationMarker
}

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateTokens approximates how many tokens the assistant will see for the
// given text, using the GPT-4 encoding as a stand-in for Claude's tokenizer.
// Falls back to the 4-characters-per-token heuristic when the codec is
// unavailable.
func EstimateTokens(text string) int {
	codecOnce.Do(func() {
		if c, err := tokenizer.ForModel(tokenizer.GPT4); err == nil {
			codec = c
		}
	})
	if codec == nil {
		return len(text) / 4
	}
	count, err := codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}
