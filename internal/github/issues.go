package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// GetIssue retrieves a single issue by number.
func (c *Client) GetIssue(ctx context.Context, number int) (*Issue, error) {
	var issue Issue
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/issues/"+strconv.Itoa(number), nil)
	if _, err := c.get(ctx, urlStr, &issue); err != nil {
		return nil, fmt.Errorf("fetch issue #%d: %w", number, err)
	}
	return &issue, nil
}

// GetIssueBody retrieves just an issue's body text.
func (c *Client) GetIssueBody(ctx context.Context, number int) (string, error) {
	issue, err := c.GetIssue(ctx, number)
	if err != nil {
		return "", err
	}
	return issue.Body, nil
}

// CreateIssue creates a new issue and returns it.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	reqBody := map[string]any{
		"title": title,
		"body":  body,
	}
	if len(labels) > 0 {
		reqBody["labels"] = labels
	}

	var issue Issue
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/issues", nil)
	if err := c.send(ctx, http.MethodPost, urlStr, reqBody, &issue); err != nil {
		return nil, fmt.Errorf("create issue %q: %w", title, err)
	}
	return &issue, nil
}

// UpdateIssueBody replaces an issue's entire body. The API has no partial
// update; every caller must read, modify, and write the whole text.
func (c *Client) UpdateIssueBody(ctx context.Context, number int, body string) error {
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/issues/"+strconv.Itoa(number), nil)
	if err := c.send(ctx, http.MethodPatch, urlStr, map[string]any{"body": body}, nil); err != nil {
		return fmt.Errorf("update body of issue #%d: %w", number, err)
	}
	return nil
}

// AddLabels adds labels to an issue without removing existing ones.
func (c *Client) AddLabels(ctx context.Context, number int, labels []string) error {
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/issues/"+strconv.Itoa(number)+"/labels", nil)
	if err := c.send(ctx, http.MethodPost, urlStr, map[string]any{"labels": labels}, nil); err != nil {
		return fmt.Errorf("add labels to issue #%d: %w", number, err)
	}
	return nil
}
