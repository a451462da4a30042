package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dagster-io/erk/internal/metadata"
)

const objectiveBody = `# Objective: checkout rework

### Phase 1: Foundations

| Step | Description | Status | Plan | PR |
|------|-------------|--------|------|----|
| 1.1 | Extract payment interface | pending | — | — |
| 2.1 | Shadow traffic | pending | — | — |
`

// fakeIssues is an in-memory issue client.
type fakeIssues struct {
	bodies      map[int]string
	nextIssue   int
	createdWith struct {
		title  string
		body   string
		labels []string
	}
	createErr error
	updateErr error
}

func newFakeIssues(objective int, body string) *fakeIssues {
	return &fakeIssues{bodies: map[int]string{objective: body}, nextIssue: 100}
}

func (f *fakeIssues) GetIssueBody(_ context.Context, number int) (string, error) {
	body, ok := f.bodies[number]
	if !ok {
		return "", errors.New("issue not found")
	}
	return body, nil
}

func (f *fakeIssues) UpdateIssueBody(_ context.Context, number int, body string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.bodies[number] = body
	return nil
}

func (f *fakeIssues) CreateIssue(_ context.Context, title, body string, labels []string) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextIssue++
	f.bodies[f.nextIssue] = body
	f.createdWith.title = title
	f.createdWith.body = body
	f.createdWith.labels = labels
	return f.nextIssue, nil
}

func testExecutor(issues *fakeIssues, inf Inference) *Executor {
	e := NewExecutor(issues, inf)
	e.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	return e
}

// TestExecuteNone verifies the no-op success path.
func TestExecuteNone(t *testing.T) {
	e := testExecutor(newFakeIssues(7, objectiveBody), &fakeInference{})
	res := e.Execute(context.Background(), 7, Action{Type: ActionNone, Reason: "nothing unblocked"})
	require.True(t, res.Success)
	require.Zero(t, res.PlanIssue)
	require.NoError(t, res.Err)
}

// TestExecuteError verifies the determination failure is relayed without
// further action.
func TestExecuteError(t *testing.T) {
	issues := newFakeIssues(7, objectiveBody)
	e := testExecutor(issues, &fakeInference{})
	res := e.Execute(context.Background(), 7, Action{Type: ActionError, Reason: "rate limited"})
	require.False(t, res.Success)
	require.ErrorContains(t, res.Err, "rate limited")
	require.Equal(t, objectiveBody, issues.bodies[7])
}

// TestExecuteCreatePlan verifies the full happy path: plan issue created
// with a linking header, roadmap stamped, objective body written once.
func TestExecuteCreatePlan(t *testing.T) {
	issues := newFakeIssues(7, objectiveBody)
	inf := &fakeInference{output: "## Goal\n\nDo the thing.\n"}
	e := testExecutor(issues, inf)

	res := e.Execute(context.Background(), 7, Action{
		Type:            ActionCreatePlan,
		StepID:          "2.1",
		StepDescription: "Shadow traffic",
		PhaseName:       "Phase 2",
	})
	require.NoError(t, res.Err)
	require.True(t, res.Success)
	require.Equal(t, 101, res.PlanIssue)

	require.Equal(t, "Plan 2.1: Shadow traffic", issues.createdWith.title)
	require.Equal(t, []string{"erk-plan"}, issues.createdWith.labels)

	header, ok := metadata.FindBlock(issues.createdWith.body, "plan-header")
	require.True(t, ok, "plan body missing plan-header block")
	obj, _ := header.Int("objective_issue")
	require.Equal(t, 7, obj)

	require.Contains(t, issues.bodies[7], "| 2.1 | Shadow traffic | in-progress | plan #101 | — |")
	require.Equal(t, issues.bodies[7], res.UpdatedBody)
}

// TestExecuteMissingStepFields verifies validation is a hard failure before
// any side effect.
func TestExecuteMissingStepFields(t *testing.T) {
	issues := newFakeIssues(7, objectiveBody)
	e := testExecutor(issues, &fakeInference{output: "plan"})

	for _, action := range []Action{
		{Type: ActionCreatePlan, StepDescription: "desc only"},
		{Type: ActionCreatePlan, StepID: "1.1"},
	} {
		res := e.Execute(context.Background(), 7, action)
		require.ErrorIs(t, res.Err, ErrMissingStepFields)
		require.Zero(t, res.PlanIssue)
	}
	require.Equal(t, objectiveBody, issues.bodies[7], "objective touched despite validation failure")
}

// TestExecutePartialSuccess verifies the orphaned-plan outcome: the roadmap
// table has no PR column, so the issue exists but the roadmap write fails.
func TestExecutePartialSuccess(t *testing.T) {
	narrow := "| Step | Description | Status |\n|------|-------------|--------|\n| 2.1 | Shadow traffic | pending |\n"
	issues := newFakeIssues(7, narrow)
	e := testExecutor(issues, &fakeInference{output: "plan content"})

	res := e.Execute(context.Background(), 7, Action{
		Type: ActionCreatePlan, StepID: "2.1", StepDescription: "Shadow traffic",
	})
	require.False(t, res.Success)
	require.Equal(t, 101, res.PlanIssue, "plan issue number must survive the partial failure")
	require.ErrorContains(t, res.Err, "roadmap update failed")
	require.Equal(t, narrow, issues.bodies[7], "objective body must be untouched")
}

// TestExecutePartialSuccessOnWrite verifies a failed body write after a
// successful local update is also reported as a roadmap failure.
func TestExecutePartialSuccessOnWrite(t *testing.T) {
	issues := newFakeIssues(7, objectiveBody)
	issues.updateErr = errors.New("503 from API")
	e := testExecutor(issues, &fakeInference{output: "plan content"})

	res := e.Execute(context.Background(), 7, Action{
		Type: ActionCreatePlan, StepID: "2.1", StepDescription: "Shadow traffic",
	})
	require.False(t, res.Success)
	require.Equal(t, 101, res.PlanIssue)
	require.ErrorContains(t, res.Err, "roadmap update failed")
}

// TestExecutePlanContentFailure verifies an inference failure during plan
// generation aborts before any issue is created.
func TestExecutePlanContentFailure(t *testing.T) {
	issues := newFakeIssues(7, objectiveBody)
	e := testExecutor(issues, &fakeInference{err: errors.New("overloaded")})

	res := e.Execute(context.Background(), 7, Action{
		Type: ActionCreatePlan, StepID: "2.1", StepDescription: "Shadow traffic",
	})
	require.False(t, res.Success)
	require.Zero(t, res.PlanIssue)
	require.ErrorContains(t, res.Err, "overloaded")
	require.False(t, strings.Contains(issues.bodies[7], "plan #"), "roadmap touched despite failure")
}
