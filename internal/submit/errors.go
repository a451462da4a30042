// Package submit drives one branch through the push-and-PR sequence:
// auth check, branch check, commits check, push, find-or-create PR. The
// machine is strictly sequential, retries nothing itself beyond a single
// conditional force-push, and ends in exactly one terminal outcome.
package submit

import "fmt"

// ErrorType is the closed taxonomy of expected submission failures.
type ErrorType string

const (
	ErrGitHubAuthFailed ErrorType = "github_auth_failed"
	ErrNoBranch         ErrorType = "no_branch"
	ErrNoCommits        ErrorType = "no_commits"
	ErrBranchDiverged   ErrorType = "branch_diverged"
)

// Error is a terminal submission failure with a kind callers can switch on.
// Collaborator failures outside the taxonomy are returned as ordinary
// wrapped errors instead.
type Error struct {
	Type    ErrorType
	Branch  string
	Message string
}

func (e *Error) Error() string {
	if e.Branch != "" {
		return fmt.Sprintf("%s (branch %s): %s", e.Type, e.Branch, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Result is the terminal success outcome.
type Result struct {
	PRNumber   int
	BranchName string
	BaseBranch string
	WasCreated bool

	// StackURL is reserved for a stacking-tool strategy. This strategy
	// never populates it; callers must not assume it is ever set.
	StackURL string
}
