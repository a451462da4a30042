// Package git shells out to the git CLI for the operations the submission
// flow needs. Shelling out keeps behavior identical to what a developer
// sees at the command line, worktrees included.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dagster-io/erk/internal/debug"
)

// Runner executes git commands in one working directory.
type Runner struct {
	Dir string
}

// NewRunner creates a runner rooted at dir.
func NewRunner(dir string) *Runner {
	return &Runner{Dir: dir}
}

// run executes git with the given args and returns trimmed stdout.
func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	debug.Logf("git: %s\n", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CurrentBranch returns the checked-out branch name, or empty when HEAD is
// detached.
func (r *Runner) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return out, nil
}

// CommitsAhead counts commits on HEAD that are not on trunk.
func (r *Runner) CommitsAhead(ctx context.Context, trunk string) (int, error) {
	out, err := r.run(ctx, "rev-list", "--count", trunk+"..HEAD")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parse rev-list count %q: %w", out, err)
	}
	return n, nil
}

// PushResult reports one push attempt. Rejected pushes are an expected
// outcome, not an error: the caller decides whether a rejection means
// divergence.
type PushResult struct {
	OK     bool
	Reason string // combined git output when OK is false
}

// Push pushes branch to remote, optionally with --force. A non-zero exit is
// reported as a rejection with git's own message; only failures to run git
// at all surface as errors.
func (r *Runner) Push(ctx context.Context, remote, branch string, force bool) (PushResult, error) {
	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, branch)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			return PushResult{OK: false, Reason: strings.TrimSpace(string(out))}, nil
		}
		return PushResult{}, fmt.Errorf("run git push: %w", err)
	}
	return PushResult{OK: true}, nil
}

// DetectTrunk finds the repository's trunk branch: origin/HEAD when set,
// otherwise the first of main/master that exists, otherwise "main".
func (r *Runner) DetectTrunk(ctx context.Context) string {
	if out, err := r.run(ctx, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
		return strings.TrimPrefix(out, "refs/remotes/origin/")
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := r.run(ctx, "rev-parse", "--verify", "refs/heads/"+candidate); err == nil {
			return candidate
		}
	}
	return "main"
}

// GitDir returns the actual .git directory path for the repository. In a
// worktree, .git is a file pointing at the real directory, so rev-parse is
// the only reliable way to find it.
func (r *Runner) GitDir(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return out, nil
}

// RepoRoot returns the top-level directory of the current worktree.
func (r *Runner) RepoRoot(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return out, nil
}

// IsWorktree reports whether the runner's directory is a linked worktree,
// determined by comparing --git-dir with --git-common-dir.
func (r *Runner) IsWorktree(ctx context.Context) bool {
	gitDir, err := r.run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	commonDir, err := r.run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return false
	}
	absGit, err1 := filepath.Abs(filepath.Join(r.Dir, gitDir))
	absCommon, err2 := filepath.Abs(filepath.Join(r.Dir, commonDir))
	if err1 != nil || err2 != nil {
		return false
	}
	return absGit != absCommon
}
