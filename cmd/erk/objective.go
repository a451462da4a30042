package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dagster-io/erk/internal/inference"
	"github.com/dagster-io/erk/internal/reconcile"
	"github.com/dagster-io/erk/internal/ui"
)

var objectiveCmd = &cobra.Command{
	Use:   "objective",
	Short: "Work with objective issues and their roadmaps",
}

var reconcileDryRun bool

var objectiveReconcileCmd = &cobra.Command{
	Use:   "reconcile <issue>",
	Short: "Determine the objective's next step and create its plan issue",
	Long: `Reads the objective's roadmap, asks the AI which step should run next,
and creates a plan issue for that step. The roadmap row is stamped with a
reference to the new plan. With --dry-run the determination is printed and
nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		objectiveIssue, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		inf, err := inference.NewClient("", cfg.AI.Model)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		issues := issuesAdapter{client: githubClient(cfg)}
		body, err := issues.GetIssueBody(ctx, objectiveIssue)
		if err != nil {
			return err
		}

		action := reconcile.DetermineAction(ctx, inf, body)
		switch action.Type {
		case reconcile.ActionNone:
			fmt.Printf("%s nothing to do: %s\n", ui.RenderMuted(ui.IconInfo), action.Reason)
			return nil
		case reconcile.ActionError:
			return fmt.Errorf("determine next step: %s", action.Reason)
		}

		if reconcileDryRun {
			fmt.Println(ui.HeaderStyle.Render("Next step (dry run)"))
			fmt.Printf("  step:        %s\n", action.StepID)
			fmt.Printf("  description: %s\n", action.StepDescription)
			if action.PhaseName != "" {
				fmt.Printf("  phase:       %s\n", action.PhaseName)
			}
			fmt.Printf("  reason:      %s\n", ui.RenderMuted(action.Reason))
			return nil
		}

		exec := reconcile.NewExecutor(issues, inf)
		exec.CreatedBy = actor(ctx)
		result := exec.Execute(ctx, objectiveIssue, action)
		if result.PlanIssue != 0 {
			fmt.Printf("%s created plan #%d for step %s\n",
				ui.RenderPass(ui.IconPass), result.PlanIssue, action.StepID)
		}
		if result.Err != nil {
			// The plan issue, if created above, survives the failure.
			return result.Err
		}
		return nil
	},
}

func init() {
	objectiveReconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Print the determined next step without writing anything")
	objectiveCmd.AddCommand(objectiveReconcileCmd)
	rootCmd.AddCommand(objectiveCmd)
}
