package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dagster-io/erk/internal/debug"
	"github.com/dagster-io/erk/internal/telemetry"
)

// NewClient creates a client for one repository.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		Token:   token,
		Owner:   owner,
		Repo:    repo,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithHTTPClient returns a copy of the client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	copied := *c
	copied.HTTPClient = httpClient
	return &copied
}

// WithBaseURL returns a copy of the client with a custom base URL (tests,
// GitHub Enterprise).
func (c *Client) WithBaseURL(baseURL string) *Client {
	copied := *c
	copied.BaseURL = baseURL
	return &copied
}

// RepoPath returns the "owner/repo" path segment.
func (c *Client) RepoPath() string {
	return c.Owner + "/" + c.Repo
}

// buildURL constructs a full API URL.
func (c *Client) buildURL(path string, params map[string]string) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}
	return u
}

// apiError is a non-2xx response that retrying will not fix.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error: %s (status %d)", e.Body, e.Status)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// IsAuthError reports whether err is a 401/403 from the API.
func IsAuthError(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden
}

// doRequest performs one authenticated request with bounded exponential
// retry. Rate limits (429, or 403 with the rate-limit header exhausted) and
// 5xx responses are retried; other failures are permanent. The request body
// is re-marshaled per attempt so retries never send a drained reader.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body any) ([]byte, http.Header, error) {
	var respBody []byte
	var respHeaders http.Header

	attempt := func() error {
		var reqBody io.Reader
		if body != nil {
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("marshal request body: %w", err))
			}
			reqBody = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		const maxResponseSize = 50 * 1024 * 1024
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		telemetry.CountGitHubRequest(ctx, method, resp.StatusCode)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		rateLimited := resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
		if rateLimited {
			debug.Logf("github: rate limited on %s %s\n", method, urlStr)
			// Honor Retry-After before handing control back to the backoff
			// policy; its own delay is then additive but bounded.
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, convErr := strconv.Atoi(retryAfter); convErr == nil {
					select {
					case <-ctx.Done():
						return backoff.Permanent(ctx.Err())
					case <-time.After(time.Duration(seconds) * time.Second):
					}
				}
			}
			return fmt.Errorf("rate limited (status %d)", resp.StatusCode)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error (status %d)", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return backoff.Permanent(&apiError{Status: resp.StatusCode, Body: string(data)})
		}

		respBody = data
		respHeaders = resp.Header
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), MaxRetries),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, nil, err
	}
	return respBody, respHeaders, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	return bo
}

// get performs a GET and decodes into out.
func (c *Client) get(ctx context.Context, urlStr string, out any) (http.Header, error) {
	data, headers, err := c.doRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}
	return headers, nil
}

// send performs a mutating request and decodes into out when non-nil.
func (c *Client) send(ctx context.Context, method, urlStr string, body, out any) error {
	data, _, err := c.doRequest(ctx, method, urlStr, body)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// linkNextPattern matches the "next" relation in GitHub Link headers.
var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPage extracts the next page URL from a Link header, if any.
func nextPage(headers http.Header) (string, bool) {
	link := headers.Get("Link")
	if link == "" {
		return "", false
	}
	matches := linkNextPattern.FindStringSubmatch(link)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

// CheckAuth verifies the token by fetching the authenticated user.
func (c *Client) CheckAuth(ctx context.Context) error {
	if c.Token == "" {
		return &apiError{Status: http.StatusUnauthorized, Body: "no token configured"}
	}
	var user User
	if _, err := c.get(ctx, c.buildURL("/user", nil), &user); err != nil {
		return fmt.Errorf("auth check: %w", err)
	}
	debug.Logf("github: authenticated as %s\n", user.Login)
	return nil
}
