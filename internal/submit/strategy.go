package submit

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dagster-io/erk/internal/debug"
	"github.com/dagster-io/erk/internal/github"
	"github.com/dagster-io/erk/internal/telemetry"
)

// Step names one state of the machine, emitted to the progress callback
// before the step is attempted.
type Step string

const (
	StepAuthCheck      Step = "auth_check"
	StepBranchCheck    Step = "branch_check"
	StepCommitsCheck   Step = "commits_check"
	StepPush           Step = "push"
	StepFindOrCreatePR Step = "find_or_create_pr"
	StepDone           Step = "done"
)

// PushOutcome reports one push attempt from the git collaborator.
type PushOutcome struct {
	OK     bool
	Reason string
}

// Git is the slice of the VCS client the machine needs.
type Git interface {
	CurrentBranch(ctx context.Context) (string, error)
	CommitsAhead(ctx context.Context, trunk string) (int, error)
	Push(ctx context.Context, remote, branch string, force bool) (PushOutcome, error)
	DetectTrunk(ctx context.Context) string
}

// GitHub is the slice of the issue/PR client the machine needs.
// *github.Client satisfies it.
type GitHub interface {
	CheckAuth(ctx context.Context) error
	FindOpenPR(ctx context.Context, branch string) (*github.PullRequest, error)
	CreatePR(ctx context.Context, title, body, head, base string) (*github.PullRequest, error)
	UpdatePR(ctx context.Context, number int, title, body string) error
}

// Request describes one submission.
type Request struct {
	PlanIssue int    // plan issue the PR closes
	Title     string // PR title
	Body      string // PR body above the closing reference
	Force     bool   // permit one force-push retry on divergence
}

// Strategy performs a branch→push→PR submission. One call, one terminal
// outcome; retries beyond the single conditional force-push belong to the
// underlying clients.
type Strategy struct {
	Git    Git
	GitHub GitHub

	Remote    string // defaults to "origin"
	PlansRepo string // "owner/repo" when plans live in another repository

	// Progress, when non-nil, is called before each step is attempted.
	Progress func(Step)
}

// divergedPattern recognizes git's non-fast-forward rejection text across
// the phrasings different git versions produce.
var divergedPattern = regexp.MustCompile(`(?i)non-fast-forward|fetch first|failed to push some refs|updates were rejected`)

func (s *Strategy) step(step Step) {
	if s.Progress != nil {
		s.Progress(step)
	}
}

func (s *Strategy) remote() string {
	if s.Remote == "" {
		return "origin"
	}
	return s.Remote
}

// Submit runs the machine. A typed *Error covers the expected failure
// modes; anything else is a collaborator failure wrapped with context.
func (s *Strategy) Submit(ctx context.Context, req Request) (*Result, error) {
	result, err := s.run(ctx, req)
	switch {
	case err == nil && result.WasCreated:
		telemetry.CountSubmission(ctx, "created")
	case err == nil:
		telemetry.CountSubmission(ctx, "updated")
	default:
		outcome := "error"
		if typed, ok := err.(*Error); ok {
			outcome = string(typed.Type)
		}
		telemetry.CountSubmission(ctx, outcome)
	}
	return result, err
}

func (s *Strategy) run(ctx context.Context, req Request) (*Result, error) {
	s.step(StepAuthCheck)
	if err := s.GitHub.CheckAuth(ctx); err != nil {
		return nil, &Error{Type: ErrGitHubAuthFailed, Message: err.Error()}
	}

	s.step(StepBranchCheck)
	branch, err := s.Git.CurrentBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current branch: %w", err)
	}
	if branch == "" {
		return nil, &Error{Type: ErrNoBranch, Message: "HEAD is detached; check out a branch before submitting"}
	}

	trunk := s.Git.DetectTrunk(ctx)

	s.step(StepCommitsCheck)
	ahead, err := s.Git.CommitsAhead(ctx, trunk)
	if err != nil {
		return nil, fmt.Errorf("count commits ahead of %s on %s: %w", trunk, branch, err)
	}
	if ahead == 0 {
		return nil, &Error{
			Type:    ErrNoCommits,
			Branch:  branch,
			Message: fmt.Sprintf("no commits ahead of %s", trunk),
		}
	}

	s.step(StepPush)
	if err := s.push(ctx, branch, req.Force); err != nil {
		return nil, err
	}

	s.step(StepFindOrCreatePR)
	result, err := s.findOrCreatePR(ctx, req, branch, trunk)
	if err != nil {
		return nil, err
	}

	s.step(StepDone)
	return result, nil
}

// push attempts one plain push, then at most one force retry when the
// rejection carries a divergence signature and the caller asked for force.
func (s *Strategy) push(ctx context.Context, branch string, force bool) error {
	outcome, err := s.Git.Push(ctx, s.remote(), branch, false)
	if err != nil {
		return fmt.Errorf("push %s: %w", branch, err)
	}
	if outcome.OK {
		return nil
	}

	if !divergedPattern.MatchString(outcome.Reason) {
		return fmt.Errorf("push %s rejected: %s", branch, outcome.Reason)
	}
	if !force {
		return &Error{Type: ErrBranchDiverged, Branch: branch, Message: outcome.Reason}
	}

	debug.Logf("submit: %s diverged, retrying with force\n", branch)
	outcome, err = s.Git.Push(ctx, s.remote(), branch, true)
	if err != nil {
		return fmt.Errorf("force push %s: %w", branch, err)
	}
	if !outcome.OK {
		return fmt.Errorf("force push %s rejected: %s", branch, outcome.Reason)
	}
	return nil
}

// findOrCreatePR updates the open PR already targeting this branch, or
// creates a new one from trunk.
func (s *Strategy) findOrCreatePR(ctx context.Context, req Request, branch, trunk string) (*Result, error) {
	body := req.Body
	if closing := s.closingReference(req.PlanIssue); closing != "" {
		if body != "" {
			body += "\n\n"
		}
		body += closing
	}

	existing, err := s.GitHub.FindOpenPR(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("look up open PR for %s: %w", branch, err)
	}

	if existing != nil {
		if err := s.GitHub.UpdatePR(ctx, existing.Number, req.Title, body); err != nil {
			return nil, fmt.Errorf("update PR #%d for %s: %w", existing.Number, branch, err)
		}
		return &Result{
			PRNumber:   existing.Number,
			BranchName: branch,
			BaseBranch: trunk,
			WasCreated: false,
		}, nil
	}

	created, err := s.GitHub.CreatePR(ctx, req.Title, body, branch, trunk)
	if err != nil {
		return nil, fmt.Errorf("create PR for %s: %w", branch, err)
	}
	return &Result{
		PRNumber:   created.Number,
		BranchName: branch,
		BaseBranch: trunk,
		WasCreated: true,
	}, nil
}

// closingReference renders the auto-close line for the plan issue: the
// in-repository form by default, the cross-repository form when the plans
// live elsewhere.
func (s *Strategy) closingReference(planIssue int) string {
	if planIssue == 0 {
		return ""
	}
	if s.PlansRepo != "" {
		return fmt.Sprintf("Closes %s#%d", s.PlansRepo, planIssue)
	}
	return fmt.Sprintf("Closes #%d", planIssue)
}
