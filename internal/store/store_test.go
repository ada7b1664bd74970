package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacmedija/assay/internal/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	issues := []model.Issue{
		{
			Severity:    model.SeverityCritical,
			Category:    model.CategorySecurity,
			File:        "server/handler.go",
			Line:        55,
			Title:       "SQL injection",
			Description: "Query built by string concatenation.",
			Suggestion:  "Use a parameterized query.",
		},
		{
			Severity:    model.SeverityWarning,
			Category:    model.CategoryPerformance,
			File:        "store/query.go",
			Line:        120,
			Title:       "N+1 query",
			Description: "Loads rows one at a time.",
			Fixed:       true,
		},
	}
	require.NoError(t, s.Save(issues))

	loaded := s.Load()
	require.NotNil(t, loaded)
	assert.False(t, loaded.ParseError)
	require.Len(t, loaded.Issues, 2)
	assert.Equal(t, issues[0], loaded.Issues[0])
	assert.Equal(t, issues[1], loaded.Issues[1])
	assert.True(t, loaded.Issues[1].Fixed)
}

func TestRecordFieldNames(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)

	require.NoError(t, s.Save([]model.Issue{{
		Severity: model.SeverityInfo,
		Category: model.CategoryStyle,
		File:     "a.go",
		Line:     1,
		Title:    "t",
	}}))

	data, err := os.ReadFile(filepath.Join(dir, ".assay", "review-results.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "savedAt")
	require.Contains(t, raw, "issues")

	issue := raw["issues"].([]any)[0].(map[string]any)
	assert.Equal(t, "INFO", issue["severity"])
	assert.Equal(t, "STYLE", issue["category"])
	assert.Nil(t, issue["suggestion"])
	assert.Equal(t, false, issue["fixed"])
	for _, key := range []string{"file", "line", "title", "description"} {
		assert.Contains(t, issue, key)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(t.TempDir(), nil)
	assert.Nil(t, s.Load())
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".assay"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".assay", "review-results.json"), []byte("{not json"), 0o644))

	s := New(dir, nil)
	assert.Nil(t, s.Load())
}

func TestLoadCoercesUnknownNames(t *testing.T) {
	dir := t.TempDir()
	record := `{"savedAt":"2026-01-01T00:00:00Z","issues":[{"severity":"BOGUS","category":"WEIRD","file":"a.go","line":3,"title":"t","description":"d","suggestion":null,"fixed":false}]}`
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".assay"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".assay", "review-results.json"), []byte(record), 0o644))

	s := New(dir, nil)
	loaded := s.Load()
	require.NotNil(t, loaded)
	require.Len(t, loaded.Issues, 1)
	assert.Equal(t, model.SeverityInfo, loaded.Issues[0].Severity)
	assert.Equal(t, model.CategoryBug, loaded.Issues[0].Category)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	require.NoError(t, s.Save(nil))
	require.NoError(t, s.Delete())
	assert.Nil(t, s.Load())

	// Deleting again is fine.
	require.NoError(t, s.Delete())
}
