package planstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/dagster-io/erk/internal/debug"
	"github.com/dagster-io/erk/internal/metadata"
)

// CommentClient is the slice of the issue API the store needs.
type CommentClient interface {
	AddComment(ctx context.Context, issue int, body string) error
	ListComments(ctx context.Context, issue int) ([]string, error)
}

// Store appends and reads plan lifecycle events on one repository's issues.
type Store struct {
	comments CommentClient
}

// NewStore builds a store over the given comment client.
func NewStore(comments CommentClient) *Store {
	return &Store{comments: comments}
}

// headlines gives each comment a human-readable first line; the block below
// it is what the machinery reads back.
var headlines = map[EventType]string{
	EventCreated:         "📋 Plan created",
	EventQueued:          "📬 Queued for submission",
	EventWorkflowStarted: "🚀 Workflow started",
	EventProgress:        "⏳ Implementation in progress",
	EventCompleted:       "✅ Implementation complete",
	EventFailed:          "❌ Implementation failed",
	EventRetry:           "🔄 Retrying plan",
	EventWorktreeCreated: "🌲 Worktree created",
}

// Append posts the event as exactly one new comment. It never edits an
// existing comment, so concurrent appenders cannot clobber each other.
func (s *Store) Append(ctx context.Context, planIssue int, ev Event) error {
	body := headlines[ev.Type()] + "\n\n" + metadata.Render(ev.block())
	if err := s.comments.AddComment(ctx, planIssue, body); err != nil {
		return fmt.Errorf("append %s event to plan #%d: %w", ev.Type(), planIssue, err)
	}
	return nil
}

// Events reconstructs the plan's history: every recognized metadata block in
// every comment, optionally filtered by type, sorted ascending by the
// timestamp embedded in each payload. API return order is ignored on
// purpose; the tracker does not guarantee it matches creation order.
func (s *Store) Events(ctx context.Context, planIssue int, types ...EventType) ([]Event, error) {
	comments, err := s.comments.ListComments(ctx, planIssue)
	if err != nil {
		return nil, fmt.Errorf("list comments for plan #%d: %w", planIssue, err)
	}

	var events []Event
	for _, body := range comments {
		events = append(events, extractEvents(body)...)
	}

	if len(types) > 0 {
		events = filterEvents(events, types)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt().Before(events[j].OccurredAt())
	})
	return events, nil
}

// Latest returns the most recent event, optionally restricted to the given
// types. ok is false when the plan has no matching events.
func (s *Store) Latest(ctx context.Context, planIssue int, types ...EventType) (Event, bool, error) {
	events, err := s.Events(ctx, planIssue, types...)
	if err != nil {
		return nil, false, err
	}
	if len(events) == 0 {
		return nil, false, nil
	}
	return events[len(events)-1], true, nil
}

// extractEvents pulls every recognized event out of one comment body.
// Unknown block keys are skipped without comment; future event kinds must
// not break old readers.
func extractEvents(body string) []Event {
	var events []Event
	for key, decode := range codecs {
		for _, b := range metadata.FindAllBlocks(body, key) {
			ev, ok := decode(b)
			if !ok {
				debug.Logf("planstore: skipping undecodable %s block\n", key)
				continue
			}
			events = append(events, ev)
		}
	}
	return events
}

func filterEvents(events []Event, types []EventType) []Event {
	want := make(map[EventType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := events[:0]
	for _, ev := range events {
		if want[ev.Type()] {
			out = append(out, ev)
		}
	}
	return out
}
