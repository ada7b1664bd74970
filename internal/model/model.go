package model

import (
	"sort"
	"strings"
)

// Severity classifies how serious an issue is. Declaration order is the sort
// order: more severe first.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityWarning
	SeverityInfo
	SeveritySuggestion
)

var severityNames = [...]string{"CRITICAL", "WARNING", "INFO", "SUGGESTION"}
var severityDisplay = [...]string{"Critical", "Warning", "Info", "Suggestion"}

// Name returns the stable enumerated name used on the wire and on disk.
func (s Severity) Name() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "INFO"
	}
	return severityNames[s]
}

// DisplayName returns the human-readable form.
func (s Severity) DisplayName() string {
	if s < 0 || int(s) >= len(severityDisplay) {
		return "Info"
	}
	return severityDisplay[s]
}

func (s Severity) String() string { return s.Name() }

// severityAliases maps loose model output to severities. Checked only after
// an exact name match fails.
var severityAliases = map[string]Severity{
	"error":       SeverityCritical,
	"critical":    SeverityCritical,
	"high":        SeverityCritical,
	"warning":     SeverityWarning,
	"warn":        SeverityWarning,
	"medium":      SeverityWarning,
	"info":        SeverityInfo,
	"information": SeverityInfo,
	"low":         SeverityInfo,
	"suggestion":  SeveritySuggestion,
	"hint":        SeveritySuggestion,
	"style":       SeveritySuggestion,
}

// SeverityFromString coerces a string to a Severity. It matches enumerated
// names case-insensitively first, then an alias table. The second return is
// false when neither matches; callers choose their own default.
func SeverityFromString(value string) (Severity, bool) {
	v := strings.TrimSpace(value)
	for i, name := range severityNames {
		if strings.EqualFold(v, name) {
			return Severity(i), true
		}
	}
	s, ok := severityAliases[strings.ToLower(v)]
	return s, ok
}

// Category classifies what kind of problem an issue reports.
type Category int

const (
	CategoryBug Category = iota
	CategorySecurity
	CategoryPerformance
	CategoryStyle
)

var categoryNames = [...]string{"BUG", "SECURITY", "PERFORMANCE", "STYLE"}
var categoryDisplay = [...]string{"Bug", "Security", "Performance", "Style"}

// Name returns the stable enumerated name used on the wire and on disk.
func (c Category) Name() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "BUG"
	}
	return categoryNames[c]
}

// DisplayName returns the human-readable form.
func (c Category) DisplayName() string {
	if c < 0 || int(c) >= len(categoryDisplay) {
		return "Bug"
	}
	return categoryDisplay[c]
}

func (c Category) String() string { return c.Name() }

var categoryAliases = map[string]Category{
	"bug":           CategoryBug,
	"error":         CategoryBug,
	"defect":        CategoryBug,
	"security":      CategorySecurity,
	"vulnerability": CategorySecurity,
	"sec":           CategorySecurity,
	"performance":   CategoryPerformance,
	"perf":          CategoryPerformance,
	"optimization":  CategoryPerformance,
	"style":         CategoryStyle,
	"formatting":    CategoryStyle,
	"convention":    CategoryStyle,
	"readability":   CategoryStyle,
}

// CategoryFromString coerces a string to a Category, exact names before
// aliases. The second return is false when neither matches.
func CategoryFromString(value string) (Category, bool) {
	v := strings.TrimSpace(value)
	for i, name := range categoryNames {
		if strings.EqualFold(v, name) {
			return Category(i), true
		}
	}
	c, ok := categoryAliases[strings.ToLower(v)]
	return c, ok
}

// AllCategories returns every category in declaration order.
func AllCategories() []Category {
	return []Category{CategoryBug, CategorySecurity, CategoryPerformance, CategoryStyle}
}

// Scope selects which files enter a review.
type Scope int

const (
	ScopeCurrentFile Scope = iota
	ScopeSelection
	ScopeChangedFiles
	ScopeBranchChanges
)

var scopeDisplay = [...]string{"Current File", "Selection", "Changed Files (Git)", "Branch Changes (Git)"}

// DisplayName returns the human-readable form.
func (s Scope) DisplayName() string {
	if s < 0 || int(s) >= len(scopeDisplay) {
		return "Current File"
	}
	return scopeDisplay[s]
}

// Depth is a coarse toggle for how exhaustive the review should be. Each
// depth carries a fixed instruction injected into the prompt.
type Depth int

const (
	DepthQuick Depth = iota
	DepthThorough
)

// DisplayName returns the human-readable form.
func (d Depth) DisplayName() string {
	if d == DepthThorough {
		return "Thorough"
	}
	return "Quick"
}

// PromptInstruction returns the instruction text injected into the prompt.
func (d Depth) PromptInstruction() string {
	if d == DepthThorough {
		return "Perform a deep analysis including edge cases, performance implications, error handling, and architectural concerns."
	}
	return "Focus on obvious issues, bugs, and security vulnerabilities. Be concise."
}

// Issue is one review finding.
type Issue struct {
	Severity    Severity
	Category    Category
	File        string
	Line        int
	Title       string
	Description string
	Suggestion  string // empty means none

	// Owned by the external quick-fix workflow; preserved across
	// re-renders and persistence but never set by the engine after parse.
	Fixing bool
	Fixed  bool
}

// Same reports weak identity: two issues are the same finding iff severity,
// category, file, title, and line all match.
func (i Issue) Same(o Issue) bool {
	return i.Key() == o.Key()
}

// FixKey is an issue's weak identity, used to track fix state separately from
// the engine's own output.
type FixKey struct {
	Severity Severity
	Category Category
	File     string
	Title    string
	Line     int
}

// Key returns the issue's weak identity.
func (i Issue) Key() FixKey {
	return FixKey{i.Severity, i.Category, i.File, i.Title, i.Line}
}

// FixOverlay records fixed state keyed by issue identity. The fix workflow
// owns it; review output stays immutable and the overlay is merged in at
// publication time.
type FixOverlay map[FixKey]bool

// Apply returns a copy of issues with the overlay's fixed state merged in.
// Issues without an overlay entry keep their existing flag.
func (o FixOverlay) Apply(issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	copy(out, issues)
	for idx := range out {
		if fixed, ok := o[out[idx].Key()]; ok {
			out[idx].Fixed = fixed
			out[idx].Fixing = false
		}
	}
	return out
}

// ReviewResult is a snapshot of one review: the issues found, or a parse
// failure with the raw text kept for diagnostics.
type ReviewResult struct {
	Issues      []Issue
	ParseError  bool
	RawResponse string // set only when ParseError is true
}

// CountBySeverity returns how many issues exist per severity.
func (r ReviewResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, is := range r.Issues {
		counts[is.Severity]++
	}
	return counts
}

// GroupBySeverity groups issues by severity, preserving issue order within
// each group.
func (r ReviewResult) GroupBySeverity() map[Severity][]Issue {
	groups := make(map[Severity][]Issue)
	for _, is := range r.Issues {
		groups[is.Severity] = append(groups[is.Severity], is)
	}
	return groups
}

// Filter returns the issues matching the given severity and category sets.
// A nil set means no restriction on that dimension. When showFixed is false,
// issues whose Fixed flag is set are excluded. The receiver is not mutated.
func (r ReviewResult) Filter(severities map[Severity]bool, categories map[Category]bool, showFixed bool) []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if severities != nil && !severities[is.Severity] {
			continue
		}
		if categories != nil && !categories[is.Category] {
			continue
		}
		if !showFixed && is.Fixed {
			continue
		}
		out = append(out, is)
	}
	return out
}

// SortIssues orders issues by severity ascending (Critical first), keeping
// insertion order within a severity.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Severity < issues[b].Severity
	})
}

// Progress reports how far a batched review has come. It exists only while
// a branch review is running and is never persisted.
type Progress struct {
	CompletedBatches int
	TotalBatches     int
	IssueCount       int
}

// SourceFile is one file gathered for review. Name is a display key and may
// carry a qualifier (for example "main.go (selection, starting at line 12)").
type SourceFile struct {
	Name    string
	Content string
}

// NoticeLevel grades a user-visible notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
)

// Notice is a short transient message for conditions that are not review
// results, like a scope downgrade or an empty change set.
type Notice struct {
	Level   NoticeLevel
	Message string
}
