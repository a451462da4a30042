package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dagster-io/erk/internal/config"
	"github.com/dagster-io/erk/internal/git"
	"github.com/dagster-io/erk/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, credentials and the local checkout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		failed := false

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.Load(cwd)
		if err != nil {
			return err
		}

		fmt.Println(ui.HeaderStyle.Render("Configuration"))
		if issues := cfg.Validate(); len(issues) > 0 {
			failed = true
			for _, issue := range issues {
				fmt.Printf("  %s %s\n", ui.RenderFail(ui.IconFail), issue)
			}
		} else {
			fmt.Printf("  %s %s/%s\n", ui.RenderPass(ui.IconPass), cfg.GitHub.Owner, cfg.GitHub.Repo)
		}

		fmt.Println(ui.HeaderStyle.Render("GitHub"))
		if cfg.GitHub.Token == "" {
			fmt.Printf("  %s no token, skipping auth check\n", ui.RenderMuted("-"))
		} else if err := githubClient(cfg).CheckAuth(ctx); err != nil {
			failed = true
			fmt.Printf("  %s auth check failed: %v\n", ui.RenderFail(ui.IconFail), err)
		} else {
			fmt.Printf("  %s token is valid\n", ui.RenderPass(ui.IconPass))
		}

		fmt.Println(ui.HeaderStyle.Render("Git"))
		runner := &git.Runner{Dir: cwd}
		if _, err := runner.RepoRoot(ctx); err != nil {
			fmt.Printf("  %s not inside a git repository\n", ui.RenderWarn(ui.IconWarn))
		} else {
			trunk := runner.DetectTrunk(ctx)
			branch, _ := runner.CurrentBranch(ctx)
			if branch == "" {
				branch = "(detached)"
			}
			fmt.Printf("  %s on %s, trunk is %s\n", ui.RenderPass(ui.IconPass), branch, trunk)
		}

		if failed {
			return fmt.Errorf("doctor found problems")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
