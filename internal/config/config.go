// Package config loads erk settings from the project's .erk/config.yaml,
// with environment overrides for credentials. The file is found by walking
// up from the working directory, so erk works from any subdirectory of a
// checkout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved erk configuration.
type Config struct {
	GitHub GitHubConfig
	Git    GitConfig
	AI     AIConfig
}

// GitHubConfig names the repository erk reads and writes.
type GitHubConfig struct {
	Owner string
	Repo  string
	Token string
	// PlansRepo is "owner/repo" when plan issues live in a different
	// repository than the code. Empty means same repository.
	PlansRepo string
}

// GitConfig covers the local checkout.
type GitConfig struct {
	Trunk  string
	Remote string
}

// AIConfig covers the inference client.
type AIConfig struct {
	Model string
}

// Load reads .erk/config.yaml (found by walking up from dir) and applies
// environment overrides. A missing config file is not an error; the
// environment alone can carry a working configuration.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path := findConfigYaml(dir); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg := &Config{
		GitHub: GitHubConfig{
			Owner:     v.GetString("github.owner"),
			Repo:      v.GetString("github.repo"),
			Token:     v.GetString("github.token"),
			PlansRepo: v.GetString("github.plans_repo"),
		},
		Git: GitConfig{
			Trunk:  v.GetString("git.trunk"),
			Remote: v.GetString("git.remote"),
		},
		AI: AIConfig{
			Model: v.GetString("ai.model"),
		},
	}

	// Environment wins over the file for credentials.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if cfg.Git.Remote == "" {
		cfg.Git.Remote = "origin"
	}
	return cfg, nil
}

// Validate reports every problem at once rather than failing on the first,
// so one run of `erk doctor` shows the whole fix list.
func (c *Config) Validate() []string {
	var issues []string

	if c.GitHub.Owner == "" {
		issues = append(issues, "github.owner: required (the repository owner)")
	}
	if c.GitHub.Repo == "" {
		issues = append(issues, "github.repo: required (the repository name)")
	}
	if c.GitHub.Token == "" {
		issues = append(issues, "github.token: required (or set GITHUB_TOKEN)")
	}
	if c.GitHub.PlansRepo != "" && !isOwnerRepo(c.GitHub.PlansRepo) {
		issues = append(issues, fmt.Sprintf("github.plans_repo: %q is invalid (expected owner/repo)", c.GitHub.PlansRepo))
	}
	return issues
}

// isOwnerRepo checks the "owner/repo" shape: exactly one slash, both
// halves non-empty.
func isOwnerRepo(s string) bool {
	owner, repo, ok := strings.Cut(s, "/")
	return ok && owner != "" && repo != "" && !strings.Contains(repo, "/")
}

// findConfigYaml walks up parent directories looking for .erk/config.yaml.
// Returns "" when no config file exists anywhere above dir.
func findConfigYaml(dir string) string {
	for ; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		path := filepath.Join(dir, ".erk", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
