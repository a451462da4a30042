// Package reconcile computes and applies the next workflow step for an
// objective: ask the inference collaborator what to do, then turn the answer
// into issue mutations. Determination and execution are split so callers
// can dry-run the first without the second.
package reconcile

import (
	"context"
	"strings"
)

// Inference is the single blocking call this package needs from the
// inference collaborator.
type Inference interface {
	Prompt(ctx context.Context, text string) (string, error)
}

// ActionType tags a reconciliation decision.
type ActionType string

const (
	ActionCreatePlan ActionType = "create_plan"
	ActionNone       ActionType = "none"
	ActionError      ActionType = "error"
)

// Action is one reconciliation pass's decision. Immutable once produced.
type Action struct {
	Type            ActionType
	StepID          string
	StepDescription string
	PhaseName       string
	Reason          string
}

// DetermineAction asks the inference collaborator for the objective's next
// step and parses its fixed-format reply. Any inference failure yields an
// error action carrying the failure reason verbatim; this function never
// guesses a next step on its own.
func DetermineAction(ctx context.Context, inf Inference, objectiveBody string) Action {
	prompt, err := renderNextStepPrompt(objectiveBody)
	if err != nil {
		return Action{Type: ActionError, Reason: err.Error()}
	}

	output, err := inf.Prompt(ctx, prompt)
	if err != nil {
		return Action{Type: ActionError, Reason: err.Error()}
	}
	return parseNextStepResponse(output)
}

// parseNextStepResponse reads the fixed-format reply:
//
//	NEXT_STEP: yes|no
//	STEP_ID: 2.1
//	STEP_DESCRIPTION: ...
//	PHASE: ...
//	REASON: ...
//
// Unknown lines are ignored; the flag line decides the action type.
func parseNextStepResponse(output string) Action {
	action := Action{Type: ActionNone}
	nextStep := false

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "NEXT_STEP":
			nextStep = strings.EqualFold(value, "yes")
		case "STEP_ID":
			action.StepID = value
		case "STEP_DESCRIPTION":
			action.StepDescription = value
		case "PHASE":
			action.PhaseName = value
		case "REASON":
			action.Reason = value
		}
	}

	if nextStep {
		action.Type = ActionCreatePlan
	}
	return action
}
