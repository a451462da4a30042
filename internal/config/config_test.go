package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	erkDir := filepath.Join(dir, ".erk")
	if err := os.MkdirAll(erkDir, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(erkDir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `github:
  owner: acme
  repo: widgets
  token: file-token
  plans_repo: acme/plans
git:
  trunk: develop
ai:
  model: claude-sonnet-4-5
`)
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Owner != "acme" || cfg.GitHub.Repo != "widgets" {
		t.Errorf("github = %+v", cfg.GitHub)
	}
	if cfg.GitHub.Token != "file-token" {
		t.Errorf("token = %q, want file value", cfg.GitHub.Token)
	}
	if cfg.GitHub.PlansRepo != "acme/plans" {
		t.Errorf("plans_repo = %q", cfg.GitHub.PlansRepo)
	}
	if cfg.Git.Trunk != "develop" {
		t.Errorf("trunk = %q", cfg.Git.Trunk)
	}
	if cfg.Git.Remote != "origin" {
		t.Errorf("remote = %q, want default origin", cfg.Git.Remote)
	}
	if cfg.AI.Model != "claude-sonnet-4-5" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
}

func TestLoadEnvTokenWins(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "github:\n  token: file-token\n")
	t.Setenv("GITHUB_TOKEN", "env-token")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("token = %q, want env override", cfg.GitHub.Token)
	}
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "github:\n  owner: acme\n")
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0750); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Owner != "acme" {
		t.Errorf("owner = %q, want config found in ancestor", cfg.GitHub.Owner)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("token = %q, want environment fallback", cfg.GitHub.Token)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "github: [unclosed\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantIssues int
	}{
		{
			name: "complete",
			cfg: Config{GitHub: GitHubConfig{
				Owner: "acme", Repo: "widgets", Token: "t", PlansRepo: "acme/plans",
			}},
			wantIssues: 0,
		},
		{
			name:       "empty",
			cfg:        Config{},
			wantIssues: 3,
		},
		{
			name: "bad plans repo",
			cfg: Config{GitHub: GitHubConfig{
				Owner: "acme", Repo: "widgets", Token: "t", PlansRepo: "not-a-repo",
			}},
			wantIssues: 1,
		},
		{
			name: "plans repo with extra slash",
			cfg: Config{GitHub: GitHubConfig{
				Owner: "acme", Repo: "widgets", Token: "t", PlansRepo: "a/b/c",
			}},
			wantIssues: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := tt.cfg.Validate()
			if len(issues) != tt.wantIssues {
				t.Errorf("Validate() = %v, want %d issues", issues, tt.wantIssues)
			}
		})
	}
}
