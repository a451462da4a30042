package reconcile

import (
	"strings"
	"text/template"
)

// nextStepPromptTemplate asks for the fixed-format decision the parser in
// reconcile.go understands.
const nextStepPromptTemplate = `You are managing a development objective tracked as a GitHub issue.
The issue body below contains a roadmap of steps. A step with a plan
reference is already in progress; a step with a PR reference is done.

Decide whether there is exactly one next unblocked step to start. Reply in
this exact format, nothing else:

NEXT_STEP: yes|no
STEP_ID: <dotted id, e.g. 2.1>
STEP_DESCRIPTION: <the step's description>
PHASE: <the phase heading the step belongs to>
REASON: <one sentence>

When NEXT_STEP is no, leave the other fields empty.

Objective body:
---
{{.Body}}
---
`

// planPromptTemplate generates the body of a new plan issue for one step.
const planPromptTemplate = `Write an implementation plan for one step of a development objective.

Step {{.StepID}}: {{.StepDescription}}
{{- if .PhaseName}}
Phase: {{.PhaseName}}
{{- end}}

Objective body for context:
---
{{.Body}}
---

Produce a concise markdown plan: a short goal statement, an ordered task
list, and acceptance criteria. Do not include any YAML or HTML comments.
`

var (
	nextStepTmpl = template.Must(template.New("next-step").Parse(nextStepPromptTemplate))
	planTmpl     = template.Must(template.New("plan").Parse(planPromptTemplate))
)

func renderNextStepPrompt(body string) (string, error) {
	var sb strings.Builder
	if err := nextStepTmpl.Execute(&sb, struct{ Body string }{Body: body}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderPlanPrompt(action Action, body string) (string, error) {
	var sb strings.Builder
	err := planTmpl.Execute(&sb, struct {
		StepID          string
		StepDescription string
		PhaseName       string
		Body            string
	}{action.StepID, action.StepDescription, action.PhaseName, body})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
