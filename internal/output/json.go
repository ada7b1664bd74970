package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kacmedija/assay/internal/model"
)

// JSONWriter outputs the result as JSON.
type JSONWriter struct{}

type jsonReport struct {
	ParseError  bool        `json:"parseError"`
	RawResponse string      `json:"rawResponse,omitempty"`
	Issues      []jsonIssue `json:"issues"`
}

type jsonIssue struct {
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
	Fixed       bool   `json:"fixed"`
}

func (j *JSONWriter) Write(w io.Writer, result *model.ReviewResult) error {
	report := jsonReport{
		ParseError:  result.ParseError,
		RawResponse: result.RawResponse,
		Issues:      make([]jsonIssue, 0, len(result.Issues)),
	}
	for _, issue := range result.Issues {
		report.Issues = append(report.Issues, jsonIssue{
			Severity:    issue.Severity.Name(),
			Category:    issue.Category.Name(),
			File:        issue.File,
			Line:        issue.Line,
			Title:       issue.Title,
			Description: issue.Description,
			Suggestion:  issue.Suggestion,
			Fixed:       issue.Fixed,
		})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
