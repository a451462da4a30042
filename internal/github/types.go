// Package github is erk's client for the slice of the GitHub REST API it
// uses as a persistence layer: issue bodies, issue comments, and pull
// requests. There is no database behind erk; these endpoints are the store.
package github

import (
	"net/http"
	"time"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries bounds retry attempts for rate-limited or failed requests.
	MaxRetries = 3

	// MaxPageSize is the page size for list endpoints.
	MaxPageSize = 100

	// MaxPages caps pagination so a malformed Link header cannot loop
	// forever.
	MaxPages = 1000
)

// Client talks to one repository's issues and pull requests.
type Client struct {
	Token      string       // GitHub personal access token
	Owner      string       // Repository owner (user or org)
	Repo       string       // Repository name
	BaseURL    string       // API base URL (default: https://api.github.com)
	HTTPClient *http.Client // Optional custom HTTP client
}

// Issue is the subset of the issues API erk reads and writes.
type Issue struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"` // "open" or "closed"
	Labels    []Label    `json:"labels,omitempty"`
	HTMLURL   string     `json:"html_url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	User      *User      `json:"user,omitempty"`
}

// Comment is one issue comment.
type Comment struct {
	ID        int64      `json:"id"`
	Body      string     `json:"body"`
	HTMLURL   string     `json:"html_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	User      *User      `json:"user,omitempty"`
}

// PullRequest is the subset of the pulls API the submission flow needs.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

// Ref identifies one side of a pull request.
type Ref struct {
	Ref   string `json:"ref"`
	Label string `json:"label,omitempty"`
	SHA   string `json:"sha,omitempty"`
}

// User is a GitHub user.
type User struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url,omitempty"`
}

// Label is a GitHub label.
type Label struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}
