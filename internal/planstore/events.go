// Package planstore is the append-only event store for plan issues. Each
// lifecycle event is posted as one new comment containing one metadata block;
// existing comments are never edited, so the append path has no write races.
// History is reconstructed by scanning every comment for recognized blocks
// and sorting by the timestamp embedded in each payload, because the comment
// API does not guarantee listing order.
package planstore

import (
	"time"

	"github.com/dagster-io/erk/internal/metadata"
)

// EventType tags one plan lifecycle event kind.
type EventType string

const (
	EventCreated         EventType = "CREATED"
	EventQueued          EventType = "QUEUED"
	EventWorkflowStarted EventType = "WORKFLOW_STARTED"
	EventProgress        EventType = "PROGRESS"
	EventCompleted       EventType = "COMPLETED"
	EventFailed          EventType = "FAILED"
	EventRetry           EventType = "RETRY"
	EventWorktreeCreated EventType = "WORKTREE_CREATED"
)

// Block keys on the wire. Progress, Completed and Failed share one key and
// are disambiguated by the status field inside the payload.
const (
	keyPlanHeader      = "plan-header"
	keyQueued          = "submission-queued"
	keyWorkflowStarted = "workflow-started"
	keyImplStatus      = "erk-implementation-status"
	keyRetry           = "plan-retry"
	keyWorktree        = "worktree-creation"
)

// Status values inside an erk-implementation-status payload.
const (
	statusInProgress = "in_progress"
	statusComplete   = "complete"
	statusFailed     = "failed"
)

// Event is one plan lifecycle event. Concrete types carry only the fields
// relevant to their kind; the wire mapping lives in the codec table below so
// the type↔key correspondence stays machine-checkable.
type Event interface {
	Type() EventType
	OccurredAt() time.Time
	block() metadata.Block
}

// Created marks the plan issue's birth; its block doubles as the plan header
// linking back to the owning objective.
type Created struct {
	Timestamp      time.Time
	ObjectiveIssue int // 0 when the plan is standalone
	CreatedBy      string
}

func (e Created) Type() EventType       { return EventCreated }
func (e Created) OccurredAt() time.Time { return e.Timestamp }

func (e Created) block() metadata.Block {
	data := map[string]any{"timestamp": formatTimestamp(e.Timestamp)}
	if e.ObjectiveIssue != 0 {
		data["objective_issue"] = e.ObjectiveIssue
	}
	if e.CreatedBy != "" {
		data["created_by"] = e.CreatedBy
	}
	return metadata.New(keyPlanHeader, data)
}

// Queued records that the plan entered the submission queue.
type Queued struct {
	Timestamp   time.Time
	TriggeredBy string
}

func (e Queued) Type() EventType       { return EventQueued }
func (e Queued) OccurredAt() time.Time { return e.Timestamp }

func (e Queued) block() metadata.Block {
	data := map[string]any{"timestamp": formatTimestamp(e.Timestamp)}
	if e.TriggeredBy != "" {
		data["triggered_by"] = e.TriggeredBy
	}
	return metadata.New(keyQueued, data)
}

// WorkflowStarted records the CI workflow run picked up for this plan.
type WorkflowStarted struct {
	Timestamp      time.Time
	WorkflowRunID  int
	WorkflowRunURL string
}

func (e WorkflowStarted) Type() EventType       { return EventWorkflowStarted }
func (e WorkflowStarted) OccurredAt() time.Time { return e.Timestamp }

func (e WorkflowStarted) block() metadata.Block {
	data := map[string]any{"timestamp": formatTimestamp(e.Timestamp)}
	if e.WorkflowRunID != 0 {
		data["workflow_run_id"] = e.WorkflowRunID
	}
	if e.WorkflowRunURL != "" {
		data["workflow_run_url"] = e.WorkflowRunURL
	}
	return metadata.New(keyWorkflowStarted, data)
}

// Progress is a mid-implementation status report.
type Progress struct {
	Timestamp time.Time
	Summary   string
}

func (e Progress) Type() EventType       { return EventProgress }
func (e Progress) OccurredAt() time.Time { return e.Timestamp }

func (e Progress) block() metadata.Block {
	return implStatusBlock(e.Timestamp, statusInProgress, "summary", e.Summary)
}

// Completed is the terminal success report.
type Completed struct {
	Timestamp time.Time
	Summary   string
}

func (e Completed) Type() EventType       { return EventCompleted }
func (e Completed) OccurredAt() time.Time { return e.Timestamp }

func (e Completed) block() metadata.Block {
	return implStatusBlock(e.Timestamp, statusComplete, "summary", e.Summary)
}

// Failed is the terminal failure report.
type Failed struct {
	Timestamp time.Time
	Error     string
}

func (e Failed) Type() EventType       { return EventFailed }
func (e Failed) OccurredAt() time.Time { return e.Timestamp }

func (e Failed) block() metadata.Block {
	return implStatusBlock(e.Timestamp, statusFailed, "error", e.Error)
}

// Retry records a re-run of a failed plan.
type Retry struct {
	Timestamp   time.Time
	RetryCount  int
	TriggeredBy string
}

func (e Retry) Type() EventType       { return EventRetry }
func (e Retry) OccurredAt() time.Time { return e.Timestamp }

func (e Retry) block() metadata.Block {
	data := map[string]any{
		"timestamp":   formatTimestamp(e.Timestamp),
		"retry_count": e.RetryCount,
	}
	if e.TriggeredBy != "" {
		data["triggered_by"] = e.TriggeredBy
	}
	return metadata.New(keyRetry, data)
}

// WorktreeCreated records the local worktree provisioned for the plan.
type WorktreeCreated struct {
	Timestamp    time.Time
	WorktreePath string
	BranchName   string
}

func (e WorktreeCreated) Type() EventType       { return EventWorktreeCreated }
func (e WorktreeCreated) OccurredAt() time.Time { return e.Timestamp }

func (e WorktreeCreated) block() metadata.Block {
	data := map[string]any{"timestamp": formatTimestamp(e.Timestamp)}
	if e.WorktreePath != "" {
		data["worktree_path"] = e.WorktreePath
	}
	if e.BranchName != "" {
		data["branch_name"] = e.BranchName
	}
	return metadata.New(keyWorktree, data)
}

// HeaderBlock renders the plan-header block embedded in a plan issue's body
// at creation time. It reuses the Created event's wire form so the header
// key lives in exactly one place.
func HeaderBlock(objectiveIssue int, createdBy string, ts time.Time) metadata.Block {
	return Created{Timestamp: ts, ObjectiveIssue: objectiveIssue, CreatedBy: createdBy}.block()
}

func implStatusBlock(ts time.Time, status, detailField, detail string) metadata.Block {
	data := map[string]any{
		"timestamp": formatTimestamp(ts),
		"status":    status,
	}
	if detail != "" {
		data[detailField] = detail
	}
	return metadata.New(keyImplStatus, data)
}

// decoder turns a parsed block back into a typed event. Returning false
// skips the block silently; unrecognized payloads must never break a scan.
type decoder func(metadata.Block) (Event, bool)

// codecs is the fixed block-key↔event-type table, decode direction. The
// encode direction is each event's block method; TestTypeMappingClosure
// pins the two directions against each other.
var codecs = map[string]decoder{
	keyPlanHeader: func(b metadata.Block) (Event, bool) {
		e := Created{Timestamp: blockTimestamp(b)}
		e.ObjectiveIssue, _ = b.Int("objective_issue")
		e.CreatedBy, _ = b.String("created_by")
		return e, true
	},
	keyQueued: func(b metadata.Block) (Event, bool) {
		e := Queued{Timestamp: blockTimestamp(b)}
		e.TriggeredBy, _ = b.String("triggered_by")
		return e, true
	},
	keyWorkflowStarted: func(b metadata.Block) (Event, bool) {
		e := WorkflowStarted{Timestamp: blockTimestamp(b)}
		e.WorkflowRunID, _ = b.Int("workflow_run_id")
		e.WorkflowRunURL, _ = b.String("workflow_run_url")
		return e, true
	},
	keyImplStatus: func(b metadata.Block) (Event, bool) {
		ts := blockTimestamp(b)
		status, _ := b.String("status")
		switch status {
		case statusInProgress:
			summary, _ := b.String("summary")
			return Progress{Timestamp: ts, Summary: summary}, true
		case statusComplete:
			summary, _ := b.String("summary")
			return Completed{Timestamp: ts, Summary: summary}, true
		case statusFailed:
			errText, _ := b.String("error")
			return Failed{Timestamp: ts, Error: errText}, true
		}
		return nil, false
	},
	keyRetry: func(b metadata.Block) (Event, bool) {
		e := Retry{Timestamp: blockTimestamp(b)}
		e.RetryCount, _ = b.Int("retry_count")
		e.TriggeredBy, _ = b.String("triggered_by")
		return e, true
	},
	keyWorktree: func(b metadata.Block) (Event, bool) {
		e := WorktreeCreated{Timestamp: blockTimestamp(b)}
		e.WorktreePath, _ = b.String("worktree_path")
		e.BranchName, _ = b.String("branch_name")
		return e, true
	},
}

// formatTimestamp writes RFC 3339 in UTC; zero times render as empty so the
// payload stays honest about what the producer knew.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTimestamp accepts RFC 3339 with an explicit zone, or a bare
// ISO-8601 local form which is assumed UTC. Real comment bodies carry both.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func blockTimestamp(b metadata.Block) time.Time {
	s, _ := b.String("timestamp")
	t, _ := parseTimestamp(s)
	return t
}
