package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// FindOpenPR returns the open pull request whose head is the given branch,
// or nil when none exists. GitHub treats head as owner:branch for
// same-repository PRs.
func (c *Client) FindOpenPR(ctx context.Context, branch string) (*PullRequest, error) {
	var prs []PullRequest
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/pulls", map[string]string{
		"state": "open",
		"head":  c.Owner + ":" + branch,
	})
	if _, err := c.get(ctx, urlStr, &prs); err != nil {
		return nil, fmt.Errorf("find open PR for branch %s: %w", branch, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &prs[0], nil
}

// CreatePR opens a pull request from head into base.
func (c *Client) CreatePR(ctx context.Context, title, body, head, base string) (*PullRequest, error) {
	reqBody := map[string]any{
		"title": title,
		"body":  body,
		"head":  head,
		"base":  base,
	}

	var pr PullRequest
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/pulls", nil)
	if err := c.send(ctx, http.MethodPost, urlStr, reqBody, &pr); err != nil {
		return nil, fmt.Errorf("create PR %s -> %s: %w", head, base, err)
	}
	return &pr, nil
}

// UpdatePR replaces a pull request's title and body.
func (c *Client) UpdatePR(ctx context.Context, number int, title, body string) error {
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/pulls/"+strconv.Itoa(number), nil)
	reqBody := map[string]any{"title": title, "body": body}
	if err := c.send(ctx, http.MethodPatch, urlStr, reqBody, nil); err != nil {
		return fmt.Errorf("update PR #%d: %w", number, err)
	}
	return nil
}
