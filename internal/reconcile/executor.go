package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dagster-io/erk/internal/debug"
	"github.com/dagster-io/erk/internal/metadata"
	"github.com/dagster-io/erk/internal/planstore"
	"github.com/dagster-io/erk/internal/roadmap"
)

// ErrMissingStepFields marks a create_plan action without the required step
// id and description. Never silently defaulted.
var ErrMissingStepFields = errors.New("missing required step fields")

// Issues is the slice of the issue API execution needs.
type Issues interface {
	GetIssueBody(ctx context.Context, number int) (string, error)
	UpdateIssueBody(ctx context.Context, number int, body string) error
	CreateIssue(ctx context.Context, title, body string, labels []string) (int, error)
}

// Executor turns a determined action into issue mutations.
type Executor struct {
	Issues     Issues
	Inference  Inference
	PlanLabels []string // labels stamped on new plan issues
	CreatedBy  string   // recorded in the plan header; empty is fine

	// now is swappable for tests.
	now func() time.Time
}

// NewExecutor builds an executor over the given collaborators.
func NewExecutor(issues Issues, inf Inference) *Executor {
	return &Executor{
		Issues:     issues,
		Inference:  inf,
		PlanLabels: []string{"erk-plan"},
		now:        time.Now,
	}
}

// Result reports one execution. PlanIssue can be set even when Success is
// false: a plan issue that exists while the roadmap failed to record it is a
// partial success the caller must be able to tell apart from total failure.
type Result struct {
	Success     bool
	PlanIssue   int    // 0 unless a plan issue was created
	UpdatedBody string // objective body after a successful roadmap write
	Err         error
}

// Execute applies an action to the objective. none is a no-op success;
// error relays the determination failure; create_plan creates the plan
// issue and stamps it into the roadmap.
func (e *Executor) Execute(ctx context.Context, objectiveIssue int, action Action) Result {
	switch action.Type {
	case ActionNone:
		debug.Logf("reconcile: objective #%d has no next step (%s)\n", objectiveIssue, action.Reason)
		return Result{Success: true}
	case ActionError:
		return Result{Err: fmt.Errorf("determine next step for objective #%d: %s", objectiveIssue, action.Reason)}
	case ActionCreatePlan:
		return e.createPlan(ctx, objectiveIssue, action)
	default:
		return Result{Err: fmt.Errorf("unknown action type %q", action.Type)}
	}
}

// createPlan validates the action, generates plan content, creates the plan
// issue, and stamps the plan reference into the objective's roadmap.
func (e *Executor) createPlan(ctx context.Context, objectiveIssue int, action Action) Result {
	if action.StepID == "" || action.StepDescription == "" {
		return Result{Err: fmt.Errorf("%w: step_id=%q description=%q", ErrMissingStepFields, action.StepID, action.StepDescription)}
	}

	objectiveBody, err := e.Issues.GetIssueBody(ctx, objectiveIssue)
	if err != nil {
		return Result{Err: fmt.Errorf("read objective #%d: %w", objectiveIssue, err)}
	}

	prompt, err := renderPlanPrompt(action, objectiveBody)
	if err != nil {
		return Result{Err: fmt.Errorf("render plan prompt: %w", err)}
	}
	planContent, err := e.Inference.Prompt(ctx, prompt)
	if err != nil {
		return Result{Err: fmt.Errorf("generate plan content for step %s: %w", action.StepID, err)}
	}

	header := planstore.HeaderBlock(objectiveIssue, e.CreatedBy, e.now())
	title := fmt.Sprintf("Plan %s: %s", action.StepID, action.StepDescription)
	body := planContent + "\n\n" + metadata.Render(header)

	planIssue, err := e.Issues.CreateIssue(ctx, title, body, e.PlanLabels)
	if err != nil {
		return Result{Err: fmt.Errorf("create plan issue for step %s: %w", action.StepID, err)}
	}

	// The plan issue now exists; everything past this point is partial
	// success territory.
	planRef := fmt.Sprintf("plan #%d", planIssue)
	updatedBody, err := roadmap.UpdateStep(objectiveBody, roadmap.StepUpdate{
		StepID: action.StepID,
		Plan:   &planRef,
	})
	if err != nil {
		return Result{
			PlanIssue: planIssue,
			Err:       fmt.Errorf("roadmap update failed for step %s on objective #%d: %w", action.StepID, objectiveIssue, err),
		}
	}

	// Optional drift check: a writer that got in between loses nothing we
	// can give back, but the log line makes the race diagnosable.
	if current, readErr := e.Issues.GetIssueBody(ctx, objectiveIssue); readErr == nil {
		roadmap.DetectDrift(objectiveBody, current)
	}

	if err := e.Issues.UpdateIssueBody(ctx, objectiveIssue, updatedBody); err != nil {
		return Result{
			PlanIssue: planIssue,
			Err:       fmt.Errorf("roadmap update failed: write objective #%d: %w", objectiveIssue, err),
		}
	}

	return Result{Success: true, PlanIssue: planIssue, UpdatedBody: updatedBody}
}
