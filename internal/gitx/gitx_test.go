package gitx

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func setupTestRepo(t *testing.T) (string, func(args ...string)) {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("command %v failed: %v\n%s", args, err, out)
		}
	}

	run("git", "init")
	run("git", "checkout", "-b", "main")

	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "util.go"), []byte("package main\n\nfunc helper() {}\n"), 0o644)
	run("git", "add", "-A")
	run("git", "commit", "-m", "init")

	return dir, run
}

func TestWorkingTreeAndStagedChanges(t *testing.T) {
	dir, run := setupTestRepo(t)
	client := New(dir, nil)

	changed, err := client.WorkingTreeChanges()
	if err != nil {
		t.Fatalf("WorkingTreeChanges error: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("clean tree should have no changes, got %v", changed)
	}

	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() { helper() }\n"), 0o644)
	changed, err = client.WorkingTreeChanges()
	if err != nil {
		t.Fatalf("WorkingTreeChanges error: %v", err)
	}
	if len(changed) != 1 || changed[0] != "main.go" {
		t.Fatalf("WorkingTreeChanges = %v, want [main.go]", changed)
	}

	run("git", "add", "main.go")
	staged, err := client.StagedChanges()
	if err != nil {
		t.Fatalf("StagedChanges error: %v", err)
	}
	if len(staged) != 1 || staged[0] != "main.go" {
		t.Fatalf("StagedChanges = %v, want [main.go]", staged)
	}
}

func TestDefaultBranch(t *testing.T) {
	dir, _ := setupTestRepo(t)
	client := New(dir, nil)

	if got := client.DefaultBranch(); got != "main" {
		t.Errorf("DefaultBranch = %q, want main", got)
	}
}

func TestDefaultBranch_Master(t *testing.T) {
	dir, run := setupTestRepo(t)
	run("git", "branch", "-m", "main", "master")
	client := New(dir, nil)

	if got := client.DefaultBranch(); got != "master" {
		t.Errorf("DefaultBranch = %q, want master", got)
	}
}

func TestMergeBaseAndChangesBetween(t *testing.T) {
	dir, run := setupTestRepo(t)
	client := New(dir, nil)

	run("git", "checkout", "-b", "feature")
	os.WriteFile(filepath.Join(dir, "feature.go"), []byte("package main\n"), 0o644)
	run("git", "add", "-A")
	run("git", "commit", "-m", "add feature file")

	base, err := client.MergeBase("main", "HEAD")
	if err != nil {
		t.Fatalf("MergeBase error: %v", err)
	}
	if base == "" {
		t.Fatal("merge base should not be empty")
	}

	files, err := client.ChangesBetween(base, "HEAD")
	if err != nil {
		t.Fatalf("ChangesBetween error: %v", err)
	}
	if len(files) != 1 || files[0] != "feature.go" {
		t.Fatalf("ChangesBetween = %v, want [feature.go]", files)
	}
}

func TestQueriesOutsideRepoReturnEmpty(t *testing.T) {
	client := New(t.TempDir(), nil)

	changed, err := client.WorkingTreeChanges()
	if err != nil {
		t.Fatalf("non-repo should not error: %v", err)
	}
	if len(changed) != 0 {
		t.Fatalf("non-repo should list nothing, got %v", changed)
	}

	if _, err := client.MergeBase("main", "HEAD"); err == nil {
		t.Error("merge base in a non-repo should report an error")
	}

	if got := client.DefaultBranch(); got != "main" {
		t.Errorf("DefaultBranch fallback = %q, want main", got)
	}
}
