package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kacmedija/assay/internal/model"
)

// Parser converts assistant response text into review results.
type Parser struct {
	log *zap.Logger
}

// New returns a Parser. A nil logger disables logging.
func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// Parse applies the four fallback levels in order, first success wins.
// It never fails: unparseable input yields ParseError=true with the
// original text retained in RawResponse.
func (p *Parser) Parse(responseText string) model.ReviewResult {
	trimmed := strings.TrimSpace(responseText)
	if trimmed == "" {
		return model.ReviewResult{ParseError: true, RawResponse: responseText}
	}

	levels := []func(string) ([]model.Issue, bool){
		p.parseDirect,
		p.parseFenceStripped,
		p.parseBracketExtract,
		p.parseBraceScan,
	}
	for _, level := range levels {
		if issues, ok := level(trimmed); ok {
			return model.ReviewResult{Issues: issues}
		}
	}

	p.log.Warn("all parse levels failed for review response",
		zap.Int("length", len(responseText)))
	return model.ReviewResult{ParseError: true, RawResponse: responseText}
}

// parseDirect treats the whole text as JSON: either a top-level array of
// issue objects or an object carrying an "issues" array.
func (p *Parser) parseDirect(text string) ([]model.Issue, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(text), &arr); err == nil && arr != nil {
		return p.mapIssueArray(arr), true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		if raw, found := obj["issues"]; found {
			if err := json.Unmarshal(raw, &arr); err == nil && arr != nil {
				return p.mapIssueArray(arr), true
			}
		}
	}
	return nil, false
}

// parseFenceStripped removes a leading ``` fence line (with optional language
// tag) and a trailing ``` fence, then retries the direct parse. Skipped when
// stripping changes nothing.
func (p *Parser) parseFenceStripped(text string) ([]model.Issue, bool) {
	stripped := stripFences(text)
	if stripped == text {
		return nil, false
	}
	return p.parseDirect(stripped)
}

func stripFences(text string) string {
	result := text
	if strings.HasPrefix(result, "```") {
		if nl := strings.IndexByte(result, '\n'); nl > 0 {
			result = result[nl+1:]
		}
	}
	if strings.HasSuffix(result, "```") {
		result = result[:len(result)-3]
	}
	return strings.TrimSpace(result)
}

// parseBracketExtract takes the substring between the first '[' and the last
// ']' of the original text and retries the direct parse on it.
func (p *Parser) parseBracketExtract(text string) ([]model.Issue, bool) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return nil, false
	}
	return p.parseDirect(text[start : end+1])
}

// parseBraceScan walks the text tracking brace depth. Each span where depth
// returns to zero is tried as one standalone JSON object. When a span fails to
// parse, or the text ends inside an unbalanced span, scanning resumes just
// past the span's opening brace so objects trapped behind an unmatched '{'
// are still recovered. Succeeds when at least one issue is recovered.
func (p *Parser) parseBraceScan(text string) ([]model.Issue, bool) {
	var issues []model.Issue
	discarded := 0
	depth := 0
	objStart := -1

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				objStart = i
			}
			depth++
		case '}':
			if depth == 0 {
				break // stray closer outside any span
			}
			depth--
			if depth == 0 {
				candidate := text[objStart : i+1]
				var obj map[string]any
				if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
					issues = append(issues, mapIssue(obj))
				} else {
					discarded++
					i = objStart // rescan from one past the failed opener
				}
				objStart = -1
			}
		}

		if i+1 == len(text) && depth > 0 && objStart >= 0 {
			// The text ran out inside an unbalanced span. Rescan past its
			// opener; each restart moves strictly forward, so this terminates.
			discarded++
			i = objStart
			depth = 0
			objStart = -1
		}
	}

	if discarded > 0 {
		p.log.Debug("brace scan discarded malformed object spans",
			zap.Int("recovered", len(issues)), zap.Int("discarded", discarded))
	}
	return issues, len(issues) > 0
}

func (p *Parser) mapIssueArray(arr []json.RawMessage) []model.Issue {
	issues := make([]model.Issue, 0, len(arr))
	for _, raw := range arr {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			continue // non-object array elements are skipped
		}
		issues = append(issues, mapIssue(obj))
	}
	return issues
}

// mapIssue converts one decoded JSON object to an Issue, substituting the
// documented defaults for missing or unusable fields.
func mapIssue(obj map[string]any) model.Issue {
	severity, ok := model.SeverityFromString(getString(obj, "severity"))
	if !ok {
		severity = model.SeverityInfo
	}
	category, ok := model.CategoryFromString(getString(obj, "category"))
	if !ok {
		category = model.CategoryBug
	}

	file := getString(obj, "file")
	if file == "" {
		file = "unknown"
	}

	line := getInt(obj, "line")
	if line < 0 {
		line = 0
	}

	title := getString(obj, "title")
	description := getString(obj, "description")
	if title == "" {
		if description != "" {
			title = truncate(description, 60)
		} else {
			title = "Unknown issue"
		}
	}
	if description == "" {
		description = title
	}

	return model.Issue{
		Severity:    severity,
		Category:    category,
		File:        file,
		Line:        line,
		Title:       title,
		Description: description,
		Suggestion:  getString(obj, "suggestion"),
	}
}

// getString reads a field as text, converting scalar numbers and booleans
// the way lenient JSON consumers do. Missing and non-scalar values are "".
func getString(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// getInt reads a field as an integer, accepting JSON numbers and numeric
// strings. Anything else is 0.
func getInt(obj map[string]any, key string) int {
	switch v := obj[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-3]) + "..."
}
