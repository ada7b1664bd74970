package changeset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacmedija/assay/internal/model"
)

type fakeGit struct {
	worktree     []string
	staged       []string
	branch       string
	mergeBase    string
	between      []string
	worktreeErr  error
	mergeBaseErr error
}

func (f *fakeGit) WorkingTreeChanges() ([]string, error) { return f.worktree, f.worktreeErr }
func (f *fakeGit) StagedChanges() ([]string, error)      { return f.staged, nil }
func (f *fakeGit) DefaultBranch() string                 { return f.branch }
func (f *fakeGit) MergeBase(branch, ref string) (string, error) {
	return f.mergeBase, f.mergeBaseErr
}
func (f *fakeGit) ChangesBetween(base, head string) ([]string, error) { return f.between, nil }

type fakeEditor struct {
	file      string
	selection string
	startLine int
}

func (f *fakeEditor) ActiveFile() (string, bool) { return f.file, f.file != "" }
func (f *fakeEditor) Selection() (string, int, bool) {
	return f.selection, f.startLine, f.selection != ""
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("content of "+name), 0o644))
	}
}

func TestDiscoverCurrentFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "main.go")

	d := New(dir, &fakeGit{}, &fakeEditor{file: "main.go"}, nil)
	files, notices, err := d.Discover(model.ScopeCurrentFile)
	require.NoError(t, err)
	assert.Empty(t, notices)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Name)
	assert.Equal(t, "content of main.go", files[0].Content)
}

func TestDiscoverCurrentFileNoActive(t *testing.T) {
	d := New(t.TempDir(), &fakeGit{}, &fakeEditor{}, nil)
	_, _, err := d.Discover(model.ScopeCurrentFile)
	assert.Error(t, err)
}

func TestDiscoverSelection(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "handler.go")

	d := New(dir, &fakeGit{}, &fakeEditor{file: "handler.go", selection: "func broken() {}", startLine: 42}, nil)
	files, _, err := d.Discover(model.ScopeSelection)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "handler.go (selection, starting at line 42)", files[0].Name)
	assert.Equal(t, "func broken() {}", files[0].Content)
}

func TestDiscoverSelectionFallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "handler.go")

	d := New(dir, &fakeGit{}, &fakeEditor{file: "handler.go"}, nil)
	files, _, err := d.Discover(model.ScopeSelection)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "handler.go", files[0].Name)
}

func TestDiscoverChangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.go", "b.go", "c.go")

	git := &fakeGit{worktree: []string{"a.go", "b.go"}, staged: []string{"b.go", "c.go"}}
	d := New(dir, git, &fakeEditor{}, nil)
	files, notices, err := d.Discover(model.ScopeChangedFiles)
	require.NoError(t, err)
	assert.Empty(t, notices)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, names)
}

func TestDiscoverChangedFilesEmptyFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "main.go")

	d := New(dir, &fakeGit{}, &fakeEditor{file: "main.go"}, nil)
	files, notices, err := d.Discover(model.ScopeChangedFiles)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Name)
	require.Len(t, notices, 1)
	assert.Equal(t, model.NoticeInfo, notices[0].Level)
}

func TestDiscoverChangedFilesGitErrorFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "main.go")

	git := &fakeGit{worktreeErr: fmt.Errorf("git not found")}
	d := New(dir, git, &fakeEditor{file: "main.go"}, nil)
	files, notices, err := d.Discover(model.ScopeChangedFiles)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, notices, 1)
	assert.Equal(t, model.NoticeWarning, notices[0].Level)
}

func TestDiscoverBranchChanges(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "feature.go", "a.go")

	git := &fakeGit{
		branch:    "main",
		mergeBase: "abc123",
		between:   []string{"feature.go"},
		worktree:  []string{"a.go", "feature.go"},
	}
	d := New(dir, git, &fakeEditor{}, nil)
	files, _, err := d.Discover(model.ScopeBranchChanges)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"feature.go", "a.go"}, names)
}

func TestDiscoverBranchChangesNoMergeBase(t *testing.T) {
	git := &fakeGit{branch: "main", mergeBaseErr: fmt.Errorf("no merge base")}
	d := New(t.TempDir(), git, &fakeEditor{}, nil)
	_, _, err := d.Discover(model.ScopeBranchChanges)
	assert.Error(t, err)
}

func TestDiscoverBranchChangesEmpty(t *testing.T) {
	git := &fakeGit{branch: "main", mergeBase: "abc123"}
	d := New(t.TempDir(), git, &fakeEditor{}, nil)
	files, notices, err := d.Discover(model.ScopeBranchChanges)
	require.NoError(t, err)
	assert.Empty(t, files)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Message, "main")
}

func TestLargeFileTruncated(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", maxFileBytes+1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.go"), []byte(big), 0o644))

	d := New(dir, &fakeGit{}, &fakeEditor{file: "big.go"}, nil)
	files, _, err := d.Discover(model.ScopeCurrentFile)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Len(t, files[0].Content, keepBytes+len(truncationMarker))
	assert.True(t, strings.HasSuffix(files[0].Content, truncationMarker))
}

func TestUnreadableFilesSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "ok.go")

	git := &fakeGit{worktree: []string{"ok.go", "missing.go"}}
	d := New(dir, git, &fakeEditor{}, nil)
	files, _, err := d.Discover(model.ScopeChangedFiles)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "ok.go", files[0].Name)
}
