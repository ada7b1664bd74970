// Package store persists the latest review result under the reviewed
// project's directory so findings survive restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kacmedija/assay/internal/model"
)

const (
	dirName  = ".assay"
	fileName = "review-results.json"
)

// persistedReview is the on-disk record. Field names are a compatibility
// contract; do not rename them.
type persistedReview struct {
	SavedAt string           `json:"savedAt"`
	Issues  []persistedIssue `json:"issues"`
}

type persistedIssue struct {
	Severity    string  `json:"severity"`
	Category    string  `json:"category"`
	File        string  `json:"file"`
	Line        int     `json:"line"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Suggestion  *string `json:"suggestion"`
	Fixed       bool    `json:"fixed"`
}

// Store reads and writes the result file for one project directory.
type Store struct {
	path string
	mu   sync.Mutex
	log  *zap.Logger
}

// New creates a Store rooted at the project directory dir.
func New(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: filepath.Join(dir, dirName, fileName), log: log}
}

// Path returns the result file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes issues to disk, replacing any previous record.
func (s *Store) Save(issues []model.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := persistedReview{
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Issues:  make([]persistedIssue, 0, len(issues)),
	}
	for _, issue := range issues {
		p := persistedIssue{
			Severity:    issue.Severity.Name(),
			Category:    issue.Category.Name(),
			File:        issue.File,
			Line:        issue.Line,
			Title:       issue.Title,
			Description: issue.Description,
			Fixed:       issue.Fixed,
		}
		if issue.Suggestion != "" {
			suggestion := issue.Suggestion
			p.Suggestion = &suggestion
		}
		record.Issues = append(record.Issues, p)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling review record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing review record: %w", err)
	}
	return nil
}

// Load reads the persisted record. A missing or corrupt file yields nil
// rather than an error so a bad record never blocks a fresh review.
func (s *Store) Load() *model.ReviewResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var record persistedReview
	if err := json.Unmarshal(data, &record); err != nil {
		s.log.Warn("discarding corrupt review record", zap.String("path", s.path), zap.Error(err))
		return nil
	}

	issues := make([]model.Issue, 0, len(record.Issues))
	for _, p := range record.Issues {
		severity, ok := model.SeverityFromString(p.Severity)
		if !ok {
			severity = model.SeverityInfo
		}
		category, ok := model.CategoryFromString(p.Category)
		if !ok {
			category = model.CategoryBug
		}
		issue := model.Issue{
			Severity:    severity,
			Category:    category,
			File:        p.File,
			Line:        p.Line,
			Title:       p.Title,
			Description: p.Description,
			Fixed:       p.Fixed,
		}
		if p.Suggestion != nil {
			issue.Suggestion = *p.Suggestion
		}
		issues = append(issues, issue)
	}
	return &model.ReviewResult{Issues: issues}
}

// Delete removes the persisted record. A missing file is not an error.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing review record: %w", err)
	}
	return nil
}
