package roadmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dagster-io/erk/internal/debug"
	"github.com/dagster-io/erk/internal/metadata"
)

// ErrStepNotFound marks a step id that appears in neither the structured
// block nor the markdown table. It is reported per step, never raised.
var ErrStepNotFound = errors.New("step not found")

// ErrNoPRColumn marks a table whose rows are too narrow to carry plan/PR
// references.
var ErrNoPRColumn = errors.New("roadmap table has no PR column")

// StepUpdate describes one step mutation. The three reference fields are
// tri-state: nil preserves the existing value, a pointer to the empty string
// clears the cell, anything else replaces it. Status, when nil, is inferred
// from the step's resulting plan/PR references.
type StepUpdate struct {
	StepID string
	Plan   *string
	PR     *string
	Status *string
}

// StepResult reports the outcome for one StepUpdate.
type StepResult struct {
	StepID string
	Err    error // nil on success; ErrStepNotFound / ErrNoPRColumn otherwise
}

// UpdateSteps applies each update against the progressively-updated body and
// returns the final body plus one result per update, in input order. A
// failed step never blocks the others; callers write the returned body once,
// after inspecting the results.
//
// The read-modify-write cycle around this function has no compare-and-swap:
// the issue tracker offers no conditional writes, so two concurrent updaters
// race and the loser's change is lost. Callers that care can re-read the
// body just before writing and compare with DetectDrift.
func UpdateSteps(body string, updates []StepUpdate) (string, []StepResult) {
	results := make([]StepResult, 0, len(updates))
	for _, u := range updates {
		var err error
		body, err = applyUpdate(body, u)
		results = append(results, StepResult{StepID: u.StepID, Err: err})
	}
	return body, results
}

// UpdateStep is the single-step convenience form.
func UpdateStep(body string, u StepUpdate) (string, error) {
	updated, results := UpdateSteps(body, []StepUpdate{u})
	return updated, results[0].Err
}

// applyUpdate mutates one step in both representations. The structured
// block, when present, is updated first; the table row is always rewritten
// so the human-readable view stays in sync. Success requires at least one
// representation to have carried the step.
func applyUpdate(body string, u StepUpdate) (string, error) {
	inBlock := false
	if updated, found, ok := updateInBlock(body, u); ok {
		body = updated
		inBlock = found
	}

	updated, err := updateInTable(body, u)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, ErrStepNotFound) && inBlock:
		// Block carried the step, table does not list it. The block is the
		// source of truth, so this still counts as a successful update.
		return body, nil
	default:
		return body, err
	}
}

// updateInBlock rewrites the step inside the erk-roadmap block. The third
// return is false when the body has no usable block at all.
func updateInBlock(body string, u StepUpdate) (string, bool, bool) {
	b, ok := metadata.FindBlock(body, BlockKey)
	if !ok {
		return body, false, false
	}
	doc, ok := decodeDocument(b)
	if !ok {
		return body, false, false
	}

	found := false
	for pi := range doc.Phases {
		for si := range doc.Phases[pi].Steps {
			step := &doc.Phases[pi].Steps[si]
			if step.ID != u.StepID {
				continue
			}
			step.Plan = resolveCell(step.Plan, u.Plan)
			step.PR = resolveCell(step.PR, u.PR)
			step.Status = resolveStatus(u, step.Plan, step.PR)
			found = true
		}
	}
	if !found {
		return body, false, true
	}

	nb, ok := encodeDocument(doc)
	if !ok {
		return body, false, true
	}
	updated, replaced := metadata.ReplaceBlock(body, BlockKey, nb)
	if !replaced {
		return body, false, true
	}
	return updated, true, true
}

// updateInTable rewrites the markdown table row whose first cell is the
// step id. Only that one line changes; every other byte of the body is
// preserved.
func updateInTable(body string, u StepUpdate) (string, error) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		cells := splitRow(line)
		if len(cells) == 0 || cells[0] != u.StepID {
			continue
		}
		if len(cells) < 5 {
			return body, fmt.Errorf("step %s: %w (row has %d columns)", u.StepID, ErrNoPRColumn, len(cells))
		}

		plan := resolveCell(cellValue(cells[3]), u.Plan)
		pr := resolveCell(cellValue(cells[4]), u.PR)
		status := resolveStatus(u, plan, pr)

		lines[i] = renderRowCells(cells[0], cells[1], status, plan, pr)
		return strings.Join(lines, "\n"), nil
	}
	return body, fmt.Errorf("step %s: %w", u.StepID, ErrStepNotFound)
}

// renderRowCells renders an updated data row, keeping the id and
// description cells exactly as they were.
func renderRowCells(id, description, status, plan, pr string) string {
	return "| " + id +
		" | " + description +
		" | " + orPlaceholder(status) +
		" | " + orPlaceholder(plan) +
		" | " + orPlaceholder(pr) + " |"
}

// cellValue normalizes a table cell: placeholders read as empty.
func cellValue(cell string) string {
	if emptyCell(cell) {
		return ""
	}
	return cell
}

// resolveCell applies the tri-state update semantics to one cell.
func resolveCell(existing string, update *string) string {
	if update == nil {
		return existing
	}
	return *update
}

// resolveStatus picks the explicit override when given, otherwise infers
// from the step's resulting references.
func resolveStatus(u StepUpdate, plan, pr string) string {
	if u.Status != nil && *u.Status != "" {
		return *u.Status
	}
	return InferStatus(plan, pr)
}

// DetectDrift compares the body read at the start of an update cycle with a
// re-read taken just before the write. A mismatch means another writer got
// in between; the caller's write will clobber it. This is logged, not
// blocked: the tracker has no conditional-write primitive to do better with.
func DetectDrift(readAtStart, reReadBeforeWrite string) bool {
	if readAtStart == reReadBeforeWrite {
		return false
	}
	debug.Logf("roadmap: body changed under us between read and write; last writer wins\n")
	return true
}
