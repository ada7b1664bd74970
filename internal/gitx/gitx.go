package gitx

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Client runs git queries against one repository root.
type Client struct {
	dir string
	log *zap.Logger
}

// New returns a Client querying the repository at dir. A nil logger disables
// logging.
func New(dir string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{dir: dir, log: log}
}

// run executes git with the given arguments. It returns the non-empty output
// lines and whether git exited zero. Only a failure to launch git at all is
// an error.
func (c *Client) run(args ...string) ([]string, bool, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.dir
	out, err := cmd.Output()

	lines := splitLines(string(out))
	if err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			c.log.Debug("git exited non-zero",
				zap.Strings("args", args), zap.Error(err))
			return lines, false, nil
		}
		return nil, false, fmt.Errorf("running git %s: %w", strings.Join(args, " "), err)
	}
	return lines, true, nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// WorkingTreeChanges lists files that differ from the index/HEAD in the
// working tree.
func (c *Client) WorkingTreeChanges() ([]string, error) {
	lines, _, err := c.run("diff", "--name-only")
	return lines, err
}

// StagedChanges lists files staged for commit.
func (c *Client) StagedChanges() ([]string, error) {
	lines, _, err := c.run("diff", "--name-only", "--cached")
	return lines, err
}

// defaultBranchCandidates are probed in order before falling back to the
// remote's symbolic HEAD.
var defaultBranchCandidates = []string{"main", "master", "develop"}

// DefaultBranch detects the repository's default branch: the first of main,
// master, develop that exists, then the branch behind origin's symbolic HEAD,
// then the literal "main".
func (c *Client) DefaultBranch() string {
	for _, candidate := range defaultBranchCandidates {
		if _, ok, err := c.run("rev-parse", "--verify", "--quiet", candidate); err == nil && ok {
			return candidate
		}
	}

	if lines, ok, err := c.run("symbolic-ref", "refs/remotes/origin/HEAD"); err == nil && ok && len(lines) > 0 {
		ref := lines[0]
		if idx := strings.LastIndexByte(ref, '/'); idx >= 0 {
			return ref[idx+1:]
		}
		return ref
	}

	return "main"
}

// MergeBase returns the common ancestor of branch and ref.
func (c *Client) MergeBase(branch, ref string) (string, error) {
	lines, ok, err := c.run("merge-base", branch, ref)
	if err != nil {
		return "", err
	}
	if !ok || len(lines) == 0 {
		return "", fmt.Errorf("no merge-base between %s and %s", branch, ref)
	}
	return lines[0], nil
}

// ChangesBetween lists files changed between base and head, using
// three-dot notation so only the head side's commits count.
func (c *Client) ChangesBetween(base, head string) ([]string, error) {
	lines, _, err := c.run("diff", "--name-only", base+"..."+head)
	return lines, err
}
