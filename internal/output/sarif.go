package output

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kacmedija/assay/internal/model"
)

// SARIFWriter outputs issues in SARIF v2.1.0 format for code-scanning
// integrations.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, result *model.ReviewResult) error {
	sarif := buildSARIF(result)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(result *model.ReviewResult) sarifLog {
	rulesMap := make(map[string]sarifRule)
	var results []sarifResult

	for _, issue := range result.Issues {
		ruleID := generateRuleID(issue)

		if _, ok := rulesMap[ruleID]; !ok {
			rulesMap[ruleID] = sarifRule{
				ID:               ruleID,
				Name:             issue.Category.Name(),
				ShortDescription: sarifMessage{Text: issue.Title},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(issue.Severity)},
			}
		}

		res := sarifResult{
			RuleID:  ruleID,
			Level:   severityToLevel(issue.Severity),
			Message: sarifMessage{Text: issue.Description},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: issue.File},
					Region:           sarifRegion{StartLine: issue.Line},
				},
			}},
		}
		if issue.Suggestion != "" {
			res.Fixes = append(res.Fixes, sarifFix{
				Description: sarifMessage{Text: issue.Suggestion},
			})
		}
		results = append(results, res)
	}

	// Collect rules in stable order
	var rules []sarifRule
	seen := make(map[string]bool)
	for _, issue := range result.Issues {
		rid := generateRuleID(issue)
		if !seen[rid] {
			seen[rid] = true
			rules = append(rules, rulesMap[rid])
		}
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "assay",
						InformationURI: "https://github.com/kacmedija/assay",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

func severityToLevel(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "error"
	case model.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// generateRuleID creates a stable rule ID from category + title.
func generateRuleID(issue model.Issue) string {
	data := fmt.Sprintf("%s/%s", issue.Category.Name(), issue.Title)
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("assay/%s/%x", issue.Category.Name(), h[:4])
}
