package github

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// ListComments retrieves every comment on an issue, following pagination.
// The API's return order is not something callers should lean on; the plan
// event store re-derives order from timestamps embedded in comment bodies.
func (c *Client) ListComments(ctx context.Context, issue int) ([]Comment, error) {
	var all []Comment
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/issues/"+strconv.Itoa(issue)+"/comments",
		map[string]string{"per_page": strconv.Itoa(MaxPageSize)})

	for page := 1; ; page++ {
		var comments []Comment
		headers, err := c.get(ctx, urlStr, &comments)
		if err != nil {
			return nil, fmt.Errorf("list comments on issue #%d: %w", issue, err)
		}
		all = append(all, comments...)

		next, ok := nextPage(headers)
		if !ok {
			return all, nil
		}
		urlStr = next
		if page >= MaxPages {
			return nil, fmt.Errorf("issue #%d comments: pagination limit exceeded after %d pages", issue, MaxPages)
		}
	}
}

// CommentBodies returns just the body text of every comment, in API order.
func (c *Client) CommentBodies(ctx context.Context, issue int) ([]string, error) {
	comments, err := c.ListComments(ctx, issue)
	if err != nil {
		return nil, err
	}
	bodies := make([]string, len(comments))
	for i, comment := range comments {
		bodies[i] = comment.Body
	}
	return bodies, nil
}

// AddComment posts a new comment on an issue.
func (c *Client) AddComment(ctx context.Context, issue int, body string) error {
	urlStr := c.buildURL("/repos/"+c.RepoPath()+"/issues/"+strconv.Itoa(issue)+"/comments", nil)
	if err := c.send(ctx, http.MethodPost, urlStr, map[string]any{"body": body}, nil); err != nil {
		return fmt.Errorf("add comment to issue #%d: %w", issue, err)
	}
	return nil
}
