package planstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dagster-io/erk/internal/metadata"
)

// fakeComments is an in-memory comment client.
type fakeComments struct {
	comments map[int][]string
	addErr   error
	listErr  error
}

func newFakeComments() *fakeComments {
	return &fakeComments{comments: make(map[int][]string)}
}

func (f *fakeComments) AddComment(_ context.Context, issue int, body string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.comments[issue] = append(f.comments[issue], body)
	return nil
}

func (f *fakeComments) ListComments(_ context.Context, issue int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.comments[issue], nil
}

func ts(minute int) time.Time {
	return time.Date(2026, 8, 31, 10, minute, 0, 0, time.UTC)
}

// TestAppendThenEventsRoundTrip verifies every event type survives
// append→parse with its type and type-specific fields intact. This pins the
// encode direction (each event's block) against the decode table.
func TestAppendThenEventsRoundTrip(t *testing.T) {
	all := []Event{
		Created{Timestamp: ts(0), ObjectiveIssue: 7, CreatedBy: "erk-bot"},
		Queued{Timestamp: ts(1), TriggeredBy: "alice"},
		WorkflowStarted{Timestamp: ts(2), WorkflowRunID: 5512, WorkflowRunURL: "https://ci.example.com/runs/5512"},
		Progress{Timestamp: ts(3), Summary: "scaffolding done"},
		Completed{Timestamp: ts(4), Summary: "all checks green"},
		Failed{Timestamp: ts(5), Error: "unit tests failed"},
		Retry{Timestamp: ts(6), RetryCount: 2, TriggeredBy: "bob"},
		WorktreeCreated{Timestamp: ts(7), WorktreePath: "/tmp/wt/plan-9", BranchName: "plan-9"},
	}

	fake := newFakeComments()
	store := NewStore(fake)
	ctx := context.Background()

	for _, ev := range all {
		if err := store.Append(ctx, 9, ev); err != nil {
			t.Fatalf("Append(%s): %v", ev.Type(), err)
		}
	}
	if got := len(fake.comments[9]); got != len(all) {
		t.Fatalf("posted %d comments, want %d (one per event)", got, len(all))
	}

	got, err := store.Events(ctx, 9)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != len(all) {
		t.Fatalf("read back %d events, want %d", len(got), len(all))
	}
	for i, want := range all {
		if !reflect.DeepEqual(got[i], want) {
			t.Errorf("event %d = %#v, want %#v", i, got[i], want)
		}
	}
}

// TestEventsSortedByTimestamp verifies ordering is derived from embedded
// timestamps, not from the order the API returned comments in.
func TestEventsSortedByTimestamp(t *testing.T) {
	fake := newFakeComments()
	// Supply comments in scrambled order, including a bare (zone-less)
	// timestamp that must be read as UTC.
	scrambled := []Event{
		Completed{Timestamp: ts(30)},
		Created{Timestamp: ts(0)},
		Progress{Timestamp: ts(15)},
	}
	for _, ev := range scrambled {
		fake.comments[4] = append(fake.comments[4], metadata.Render(ev.block()))
	}
	bare := "<!-- erk:begin submission-queued -->\nschema_version: 1\ntimestamp: \"2026-08-31T10:05:00\"\n<!-- erk:end submission-queued -->"
	fake.comments[4] = append(fake.comments[4], bare)

	got, err := NewStore(fake).Events(context.Background(), 4)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	wantTypes := []EventType{EventCreated, EventQueued, EventProgress, EventCompleted}
	if len(got) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(got), len(wantTypes))
	}
	for i, want := range wantTypes {
		if got[i].Type() != want {
			t.Errorf("event %d type = %s, want %s", i, got[i].Type(), want)
		}
	}
	if !got[1].OccurredAt().Equal(ts(5)) {
		t.Errorf("bare timestamp parsed as %v, want %v (assumed UTC)", got[1].OccurredAt(), ts(5))
	}
}

// TestEventsSkipsUnrecognized verifies unknown block keys and undecodable
// payloads are silently skipped, never surfaced as errors.
func TestEventsSkipsUnrecognized(t *testing.T) {
	fake := newFakeComments()
	fake.comments[2] = []string{
		metadata.Render(metadata.New("some-future-block", map[string]any{"x": 1})),
		// implementation-status with an unknown status value
		metadata.Render(metadata.New("erk-implementation-status", map[string]any{"status": "paused"})),
		metadata.Render(Progress{Timestamp: ts(1), Summary: "ok"}.block()),
		"plain prose comment with no blocks at all",
	}

	got, err := NewStore(fake).Events(context.Background(), 2)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 1 || got[0].Type() != EventProgress {
		t.Fatalf("got %v, want exactly one PROGRESS event", got)
	}
}

// TestEventsFilter verifies type filtering and Latest.
func TestEventsFilter(t *testing.T) {
	fake := newFakeComments()
	store := NewStore(fake)
	ctx := context.Background()
	for i, ev := range []Event{
		Created{Timestamp: ts(0)},
		Progress{Timestamp: ts(1), Summary: "first"},
		Progress{Timestamp: ts(2), Summary: "second"},
		Failed{Timestamp: ts(3), Error: "boom"},
	} {
		if err := store.Append(ctx, 3, ev); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	progress, err := store.Events(ctx, 3, EventProgress)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(progress) != 2 {
		t.Fatalf("filtered to %d events, want 2", len(progress))
	}

	latest, ok, err := store.Latest(ctx, 3, EventProgress)
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if p := latest.(Progress); p.Summary != "second" {
		t.Errorf("Latest summary = %q, want \"second\"", p.Summary)
	}

	_, ok, err = store.Latest(ctx, 3, EventRetry)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if ok {
		t.Error("Latest found a RETRY event that was never appended")
	}
}

// TestTypeMappingClosure verifies every event type encodes to exactly one
// block key and decodes back to the same type.
func TestTypeMappingClosure(t *testing.T) {
	samples := map[EventType]Event{
		EventCreated:         Created{Timestamp: ts(0)},
		EventQueued:          Queued{Timestamp: ts(0)},
		EventWorkflowStarted: WorkflowStarted{Timestamp: ts(0)},
		EventProgress:        Progress{Timestamp: ts(0)},
		EventCompleted:       Completed{Timestamp: ts(0)},
		EventFailed:          Failed{Timestamp: ts(0)},
		EventRetry:           Retry{Timestamp: ts(0)},
		EventWorktreeCreated: WorktreeCreated{Timestamp: ts(0)},
	}

	for typ, ev := range samples {
		b := ev.block()
		decode, ok := codecs[b.Key]
		if !ok {
			t.Errorf("%s encodes to key %q which has no decoder", typ, b.Key)
			continue
		}
		parsed, ok := metadata.Parse(metadata.Render(b))
		if !ok {
			t.Errorf("%s block does not re-parse", typ)
			continue
		}
		back, ok := decode(parsed)
		if !ok {
			t.Errorf("%s block does not decode", typ)
			continue
		}
		if back.Type() != typ {
			t.Errorf("%s round-tripped as %s", typ, back.Type())
		}
	}
}

// TestAppendError verifies client failures are wrapped with plan context.
func TestAppendError(t *testing.T) {
	fake := newFakeComments()
	fake.addErr = errors.New("api down")
	err := NewStore(fake).Append(context.Background(), 42, Queued{Timestamp: ts(0)})
	if err == nil {
		t.Fatal("Append succeeded despite client failure")
	}
	if want := fmt.Sprintf("plan #%d", 42); !errors.Is(err, fake.addErr) || !strings.Contains(err.Error(), want) {
		t.Errorf("error %q missing cause or context %q", err, want)
	}
}
