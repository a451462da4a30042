package main

import (
	"context"

	"github.com/dagster-io/erk/internal/git"
	"github.com/dagster-io/erk/internal/github"
	"github.com/dagster-io/erk/internal/planstore"
	"github.com/dagster-io/erk/internal/reconcile"
	"github.com/dagster-io/erk/internal/submit"
)

// commentsAdapter narrows *github.Client to the comment bodies the plan
// store reads.
type commentsAdapter struct {
	client *github.Client
}

var _ planstore.CommentClient = commentsAdapter{}

func (a commentsAdapter) AddComment(ctx context.Context, issue int, body string) error {
	return a.client.AddComment(ctx, issue, body)
}

func (a commentsAdapter) ListComments(ctx context.Context, issue int) ([]string, error) {
	return a.client.CommentBodies(ctx, issue)
}

// issuesAdapter flattens created issues down to their number for the
// reconciler.
type issuesAdapter struct {
	client *github.Client
}

var _ reconcile.Issues = issuesAdapter{}

func (a issuesAdapter) GetIssueBody(ctx context.Context, number int) (string, error) {
	return a.client.GetIssueBody(ctx, number)
}

func (a issuesAdapter) UpdateIssueBody(ctx context.Context, number int, body string) error {
	return a.client.UpdateIssueBody(ctx, number, body)
}

func (a issuesAdapter) CreateIssue(ctx context.Context, title, body string, labels []string) (int, error) {
	issue, err := a.client.CreateIssue(ctx, title, body, labels)
	if err != nil {
		return 0, err
	}
	return issue.Number, nil
}

// gitAdapter converts the runner's push result into the submission
// machine's outcome type.
type gitAdapter struct {
	runner *git.Runner
}

var _ submit.Git = gitAdapter{}

func (a gitAdapter) CurrentBranch(ctx context.Context) (string, error) {
	return a.runner.CurrentBranch(ctx)
}

func (a gitAdapter) CommitsAhead(ctx context.Context, trunk string) (int, error) {
	return a.runner.CommitsAhead(ctx, trunk)
}

func (a gitAdapter) DetectTrunk(ctx context.Context) string {
	return a.runner.DetectTrunk(ctx)
}

func (a gitAdapter) Push(ctx context.Context, remote, branch string, force bool) (submit.PushOutcome, error) {
	result, err := a.runner.Push(ctx, remote, branch, force)
	if err != nil {
		return submit.PushOutcome{}, err
	}
	return submit.PushOutcome{OK: result.OK, Reason: result.Reason}, nil
}
