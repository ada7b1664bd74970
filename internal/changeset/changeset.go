// Package changeset resolves a review scope to the set of source files that
// should be sent for review.
package changeset

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kacmedija/assay/internal/model"
)

const (
	// Files larger than maxFileBytes are truncated to keepBytes before review.
	maxFileBytes = 100_000
	keepBytes    = 50_000

	truncationMarker = "\n... [truncated, file too large] ..."
)

// GitClient supplies the git queries scope resolution needs.
type GitClient interface {
	WorkingTreeChanges() ([]string, error)
	StagedChanges() ([]string, error)
	DefaultBranch() string
	MergeBase(branch, ref string) (string, error)
	ChangesBetween(base, head string) ([]string, error)
}

// EditorState supplies the caller's notion of the active file and selection.
// The CLI implements it from flags; an editor integration would implement it
// from its buffer state.
type EditorState interface {
	// ActiveFile returns the path of the file currently in focus, relative
	// to the working directory or absolute.
	ActiveFile() (string, bool)
	// Selection returns the selected text and its starting line.
	Selection() (text string, startLine int, ok bool)
}

// Discoverer gathers source files for a scope.
type Discoverer struct {
	dir    string
	git    GitClient
	editor EditorState
	log    *zap.Logger
}

// New returns a Discoverer rooted at dir.
func New(dir string, git GitClient, editor EditorState, log *zap.Logger) *Discoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discoverer{dir: dir, git: git, editor: editor, log: log}
}

// Discover resolves scope to the files it names. Notices report scope
// downgrades and empty change sets; they are informational and never make the
// review fail on their own.
func (d *Discoverer) Discover(scope model.Scope) ([]model.SourceFile, []model.Notice, error) {
	switch scope {
	case model.ScopeCurrentFile:
		return d.currentFile()
	case model.ScopeSelection:
		return d.selection()
	case model.ScopeChangedFiles:
		return d.changedFiles()
	case model.ScopeBranchChanges:
		return d.branchChanges()
	default:
		return nil, nil, fmt.Errorf("unknown scope %d", scope)
	}
}

func (d *Discoverer) currentFile() ([]model.SourceFile, []model.Notice, error) {
	path, ok := d.editor.ActiveFile()
	if !ok {
		return nil, nil, fmt.Errorf("no active file")
	}
	sf, ok := d.readFile(path)
	if !ok {
		return nil, nil, fmt.Errorf("cannot read %s", path)
	}
	return []model.SourceFile{sf}, nil, nil
}

func (d *Discoverer) selection() ([]model.SourceFile, []model.Notice, error) {
	path, ok := d.editor.ActiveFile()
	if !ok {
		return nil, nil, fmt.Errorf("no active file")
	}
	text, startLine, ok := d.editor.Selection()
	if !ok || text == "" {
		// No selection falls back to reviewing the whole file.
		return d.currentFile()
	}
	name := fmt.Sprintf("%s (selection, starting at line %d)", filepath.Base(path), startLine)
	return []model.SourceFile{{Name: name, Content: text}}, nil, nil
}

func (d *Discoverer) changedFiles() ([]model.SourceFile, []model.Notice, error) {
	tree, errTree := d.git.WorkingTreeChanges()
	staged, errStaged := d.git.StagedChanges()
	if errTree != nil || errStaged != nil {
		d.log.Warn("git unavailable, falling back to current file",
			zap.NamedError("worktree", errTree), zap.NamedError("staged", errStaged))
		files, _, err := d.currentFile()
		notice := model.Notice{Level: model.NoticeWarning, Message: "Git is not available; reviewing the current file instead."}
		return files, []model.Notice{notice}, err
	}

	paths := dedupe(append(tree, staged...))
	if len(paths) == 0 {
		files, _, err := d.currentFile()
		notice := model.Notice{Level: model.NoticeInfo, Message: "No changed files found; reviewing the current file instead."}
		return files, []model.Notice{notice}, err
	}
	return d.readAll(paths), nil, nil
}

func (d *Discoverer) branchChanges() ([]model.SourceFile, []model.Notice, error) {
	branch := d.git.DefaultBranch()
	base, err := d.git.MergeBase(branch, "HEAD")
	if err != nil {
		return nil, nil, fmt.Errorf("finding merge base with %s: %w", branch, err)
	}

	committed, err := d.git.ChangesBetween(base, "HEAD")
	if err != nil {
		return nil, nil, fmt.Errorf("listing branch changes: %w", err)
	}
	tree, _ := d.git.WorkingTreeChanges()
	staged, _ := d.git.StagedChanges()

	paths := dedupe(append(append(committed, tree...), staged...))
	if len(paths) == 0 {
		notice := model.Notice{Level: model.NoticeInfo, Message: fmt.Sprintf("No changes relative to %s.", branch)}
		return nil, []model.Notice{notice}, nil
	}
	return d.readAll(paths), nil, nil
}

func (d *Discoverer) readAll(paths []string) []model.SourceFile {
	files := make([]model.SourceFile, 0, len(paths))
	for _, p := range paths {
		if sf, ok := d.readFile(p); ok {
			files = append(files, sf)
		}
	}
	return files
}

// readFile loads path relative to the discoverer's directory. Files past the
// size cap are cut down so a single large file cannot dominate a prompt.
// Unreadable files (deleted, binary permission issues) are skipped.
func (d *Discoverer) readFile(path string) (model.SourceFile, bool) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(d.dir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		d.log.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
		return model.SourceFile{}, false
	}
	content := string(data)
	if len(content) > maxFileBytes {
		content = content[:keepBytes] + truncationMarker
	}
	return model.SourceFile{Name: path, Content: content}, true
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
