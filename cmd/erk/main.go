// erk is a plan and objective tracker that lives entirely in GitHub
// issues: plan lifecycle events are appended as structured comments,
// roadmaps are kept in the objective issue body, and the only local state
// is the git checkout being submitted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dagster-io/erk/internal/config"
	"github.com/dagster-io/erk/internal/debug"
	"github.com/dagster-io/erk/internal/github"
	"github.com/dagster-io/erk/internal/telemetry"
	"github.com/dagster-io/erk/internal/ui"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

var (
	verboseFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:           "erk",
	Short:         "Plan and objective tracking on GitHub issues",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		if err := telemetry.Init(cmd.Context(), "erk", version); err != nil {
			debug.Logf("telemetry init failed: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
}

// loadConfig resolves configuration from the working directory and fails
// with the full list of problems when required settings are missing.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		var b strings.Builder
		b.WriteString("configuration is incomplete:\n")
		for _, issue := range issues {
			fmt.Fprintf(&b, "  %s %s\n", ui.RenderFail(ui.IconFail), issue)
		}
		b.WriteString("\nSet the missing keys in .erk/config.yaml or the environment.")
		return nil, fmt.Errorf("%s", b.String())
	}
	return cfg, nil
}

func githubClient(cfg *config.Config) *github.Client {
	return github.NewClient(cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo)
}

// actor returns the identity recorded in plan headers and queue events.
// Priority: ERK_ACTOR env, git user.name, $USER.
func actor(ctx context.Context) string {
	if a := os.Getenv("ERK_ACTOR"); a != "" {
		return a
	}
	if out, err := exec.CommandContext(ctx, "git", "config", "user.name").Output(); err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("error:"), err)
		os.Exit(1)
	}
}
