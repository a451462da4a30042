package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dagster-io/erk/internal/debug"
	"github.com/dagster-io/erk/internal/roadmap"
	"github.com/dagster-io/erk/internal/ui"
)

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Work with the roadmap inside an objective issue",
}

var (
	updateStepID    string
	updateStatus    string
	updatePlan      string
	updatePR        string
	updateClearPlan bool
	updateClearPR   bool
)

var roadmapUpdateCmd = &cobra.Command{
	Use:   "update <issue>",
	Short: "Update one roadmap step in the objective issue body",
	Long: `Rewrites one step's plan/PR/status cells in the objective's roadmap,
both in the structured block and the markdown table. Omitted fields keep
their current values; --clear-plan and --clear-pr reset a cell to the
placeholder. Status is inferred from the plan and PR references unless
--status overrides it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		objectiveIssue, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		if updateStepID == "" {
			return fmt.Errorf("--step is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		u := roadmap.StepUpdate{StepID: updateStepID}
		switch {
		case updateClearPlan:
			empty := ""
			u.Plan = &empty
		case updatePlan != "":
			u.Plan = &updatePlan
		}
		switch {
		case updateClearPR:
			empty := ""
			u.PR = &empty
		case updatePR != "":
			u.PR = &updatePR
		}
		if updateStatus != "" {
			u.Status = &updateStatus
		}

		ctx := cmd.Context()
		client := githubClient(cfg)
		body, err := client.GetIssueBody(ctx, objectiveIssue)
		if err != nil {
			return err
		}

		updated, err := roadmap.UpdateStep(body, u)
		if err != nil {
			return fmt.Errorf("update step %s: %w", updateStepID, err)
		}

		current, err := client.GetIssueBody(ctx, objectiveIssue)
		if err == nil && roadmap.DetectDrift(body, current) {
			debug.Logf("roadmap: objective #%d changed while updating, last writer wins\n", objectiveIssue)
		}
		if err := client.UpdateIssueBody(ctx, objectiveIssue, updated); err != nil {
			return err
		}
		fmt.Printf("%s updated step %s on objective #%d\n",
			ui.RenderPass(ui.IconPass), updateStepID, objectiveIssue)
		return nil
	},
}

func init() {
	roadmapUpdateCmd.Flags().StringVar(&updateStepID, "step", "", "Step ID to update (e.g. 2.1)")
	roadmapUpdateCmd.Flags().StringVar(&updateStatus, "status", "", "Explicit status (pending, in-progress, done)")
	roadmapUpdateCmd.Flags().StringVar(&updatePlan, "plan", "", "Plan reference (e.g. 'plan #12')")
	roadmapUpdateCmd.Flags().StringVar(&updatePR, "pr", "", "PR reference (e.g. '#42')")
	roadmapUpdateCmd.Flags().BoolVar(&updateClearPlan, "clear-plan", false, "Reset the plan cell to the placeholder")
	roadmapUpdateCmd.Flags().BoolVar(&updateClearPR, "clear-pr", false, "Reset the PR cell to the placeholder")
	roadmapCmd.AddCommand(roadmapUpdateCmd)
	rootCmd.AddCommand(roadmapCmd)
}
