package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dagster-io/erk/internal/planstore"
	"github.com/dagster-io/erk/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Work with plan issues and their lifecycle events",
}

var (
	eventsTypeFilter string
	eventsJSON       bool
)

var planEventsCmd = &cobra.Command{
	Use:   "events <issue>",
	Short: "List a plan's lifecycle events in timestamp order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planIssue, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := planstore.NewStore(commentsAdapter{client: githubClient(cfg)})
		var types []planstore.EventType
		if eventsTypeFilter != "" {
			types = append(types, planstore.EventType(eventsTypeFilter))
		}
		events, err := store.Events(cmd.Context(), planIssue, types...)
		if err != nil {
			return err
		}

		if eventsJSON {
			out := make([]map[string]string, 0, len(events))
			for _, ev := range events {
				out = append(out, map[string]string{
					"type":      string(ev.Type()),
					"timestamp": ev.OccurredAt().UTC().Format(time.RFC3339),
					"detail":    describeEvent(ev),
				})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		if len(events) == 0 {
			fmt.Println(ui.RenderMuted("no events"))
			return nil
		}
		for _, ev := range events {
			ts := ev.OccurredAt().UTC().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %s  %s\n",
				ui.RenderMuted(ts),
				ui.RenderAccent(fmt.Sprintf("%-17s", ev.Type())),
				describeEvent(ev))
		}
		return nil
	},
}

// describeEvent renders the one-line human summary of an event.
func describeEvent(ev planstore.Event) string {
	switch e := ev.(type) {
	case planstore.Created:
		if e.ObjectiveIssue != 0 {
			return fmt.Sprintf("created by %s for objective #%d", e.CreatedBy, e.ObjectiveIssue)
		}
		return fmt.Sprintf("created by %s", e.CreatedBy)
	case planstore.Queued:
		return fmt.Sprintf("queued by %s", e.TriggeredBy)
	case planstore.WorkflowStarted:
		return fmt.Sprintf("workflow run %d started (%s)", e.WorkflowRunID, e.WorkflowRunURL)
	case planstore.Progress:
		return e.Summary
	case planstore.Completed:
		return ui.RenderPass(ui.IconPass + " " + e.Summary)
	case planstore.Failed:
		return ui.RenderFail(ui.IconFail + " " + e.Error)
	case planstore.Retry:
		return fmt.Sprintf("retry %d triggered by %s", e.RetryCount, e.TriggeredBy)
	case planstore.WorktreeCreated:
		return fmt.Sprintf("worktree %s on branch %s", e.WorktreePath, e.BranchName)
	default:
		return ""
	}
}

var (
	appendEvent       string
	appendSummary     string
	appendError       string
	appendTriggeredBy string
	appendObjective   int
	appendRunID       int
	appendRunURL      string
	appendRetryCount  int
	appendWorktree    string
	appendBranch      string
)

var planAppendCmd = &cobra.Command{
	Use:   "append <issue>",
	Short: "Append a lifecycle event to a plan issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planIssue, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		who := appendTriggeredBy
		if who == "" {
			who = actor(cmd.Context())
		}

		var ev planstore.Event
		switch planstore.EventType(appendEvent) {
		case planstore.EventCreated:
			ev = planstore.Created{Timestamp: now, ObjectiveIssue: appendObjective, CreatedBy: who}
		case planstore.EventQueued:
			ev = planstore.Queued{Timestamp: now, TriggeredBy: who}
		case planstore.EventWorkflowStarted:
			ev = planstore.WorkflowStarted{Timestamp: now, WorkflowRunID: appendRunID, WorkflowRunURL: appendRunURL}
		case planstore.EventProgress:
			ev = planstore.Progress{Timestamp: now, Summary: appendSummary}
		case planstore.EventCompleted:
			ev = planstore.Completed{Timestamp: now, Summary: appendSummary}
		case planstore.EventFailed:
			ev = planstore.Failed{Timestamp: now, Error: appendError}
		case planstore.EventRetry:
			ev = planstore.Retry{Timestamp: now, RetryCount: appendRetryCount, TriggeredBy: who}
		case planstore.EventWorktreeCreated:
			ev = planstore.WorktreeCreated{Timestamp: now, WorktreePath: appendWorktree, BranchName: appendBranch}
		default:
			return fmt.Errorf("unknown event type %q", appendEvent)
		}

		store := planstore.NewStore(commentsAdapter{client: githubClient(cfg)})
		if err := store.Append(cmd.Context(), planIssue, ev); err != nil {
			return err
		}
		fmt.Printf("%s appended %s to plan #%d\n", ui.RenderPass(ui.IconPass), ev.Type(), planIssue)
		return nil
	},
}

func init() {
	planEventsCmd.Flags().StringVar(&eventsTypeFilter, "type", "", "Only show events of this type (e.g. PROGRESS)")
	planEventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output in JSON format")

	planAppendCmd.Flags().StringVar(&appendEvent, "event", "", "Event type (CREATED, QUEUED, WORKFLOW_STARTED, PROGRESS, COMPLETED, FAILED, RETRY, WORKTREE_CREATED)")
	planAppendCmd.Flags().StringVar(&appendSummary, "summary", "", "Summary for PROGRESS/COMPLETED events")
	planAppendCmd.Flags().StringVar(&appendError, "error", "", "Error text for FAILED events")
	planAppendCmd.Flags().StringVar(&appendTriggeredBy, "triggered-by", "", "Actor for QUEUED/RETRY events (default: detected)")
	planAppendCmd.Flags().IntVar(&appendObjective, "objective", 0, "Objective issue for CREATED events")
	planAppendCmd.Flags().IntVar(&appendRunID, "run-id", 0, "Workflow run ID for WORKFLOW_STARTED events")
	planAppendCmd.Flags().StringVar(&appendRunURL, "run-url", "", "Workflow run URL for WORKFLOW_STARTED events")
	planAppendCmd.Flags().IntVar(&appendRetryCount, "retry-count", 0, "Retry ordinal for RETRY events")
	planAppendCmd.Flags().StringVar(&appendWorktree, "worktree", "", "Worktree path for WORKTREE_CREATED events")
	planAppendCmd.Flags().StringVar(&appendBranch, "branch", "", "Branch name for WORKTREE_CREATED events")
	_ = planAppendCmd.MarkFlagRequired("event")

	planCmd.AddCommand(planEventsCmd)
	planCmd.AddCommand(planAppendCmd)
	rootCmd.AddCommand(planCmd)
}
