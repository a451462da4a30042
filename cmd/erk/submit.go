package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dagster-io/erk/internal/git"
	"github.com/dagster-io/erk/internal/submit"
	"github.com/dagster-io/erk/internal/ui"
)

var (
	submitForce bool
	submitPlan  int
	submitTitle string
	submitBody  string
)

// stepLabels are the human phrasings of the submission steps, printed as
// each one starts.
var stepLabels = map[submit.Step]string{
	submit.StepAuthCheck:      "checking GitHub credentials",
	submit.StepBranchCheck:    "checking current branch",
	submit.StepCommitsCheck:   "counting commits ahead of trunk",
	submit.StepPush:           "pushing branch",
	submit.StepFindOrCreatePR: "finding or creating pull request",
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Push the current branch and open (or update) its pull request",
	Long: `Runs the submission sequence: verify GitHub auth, verify the checkout
is on a branch with commits ahead of trunk, push, then create a pull
request (or update the one already open for the branch). When a plan issue
is given, the PR body gains a closing reference so merging closes the plan.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		strategy := &submit.Strategy{
			Git:       gitAdapter{runner: &git.Runner{Dir: cwd}},
			GitHub:    githubClient(cfg),
			Remote:    cfg.Git.Remote,
			PlansRepo: cfg.GitHub.PlansRepo,
			Progress: func(step submit.Step) {
				if label, ok := stepLabels[step]; ok {
					fmt.Printf("%s %s\n", ui.RenderMuted("→"), label)
				}
			},
		}

		result, err := strategy.Submit(cmd.Context(), submit.Request{
			PlanIssue: submitPlan,
			Title:     submitTitle,
			Body:      submitBody,
			Force:     submitForce,
		})
		if err != nil {
			var typed *submit.Error
			if errors.As(err, &typed) && typed.Type == submit.ErrBranchDiverged {
				return fmt.Errorf("%w\n\nThe remote branch has commits yours does not. Rerun with --force to overwrite it.", err)
			}
			return err
		}

		verb := "updated"
		if result.WasCreated {
			verb = "created"
		}
		fmt.Printf("%s %s PR #%d (%s → %s)\n",
			ui.RenderPass(ui.IconPass), verb, result.PRNumber, result.BranchName, result.BaseBranch)
		return nil
	},
}

func init() {
	submitCmd.Flags().BoolVar(&submitForce, "force", false, "Force-push when the remote branch has diverged")
	submitCmd.Flags().IntVar(&submitPlan, "plan", 0, "Plan issue the PR closes")
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "PR title (required when creating)")
	submitCmd.Flags().StringVar(&submitBody, "body", "", "PR body")
	rootCmd.AddCommand(submitCmd)
}
