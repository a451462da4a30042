// Package roadmap reads and rewrites the roadmap embedded in an objective
// issue's body. The roadmap lives in two places at once: a structured
// erk-roadmap metadata block (source of truth when present) and a rendered
// markdown table (the human-readable view). Updates touch both so the two
// never drift apart.
package roadmap

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dagster-io/erk/internal/metadata"
)

// BlockKey is the metadata-block key for the structured roadmap.
const BlockKey = "erk-roadmap"

// Placeholder is rendered into an empty plan/PR cell.
const Placeholder = "—"

// Recognized step statuses. Anything else found in a body is treated as an
// explicit override and preserved verbatim.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

// Step is one roadmap row: a dotted id, free-text description, status, and
// optional plan/PR references.
type Step struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	Plan        string `yaml:"plan,omitempty"`
	PR          string `yaml:"pr,omitempty"`
}

// Phase groups ordered steps under a name.
type Phase struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// document is the roadmap block's payload shape.
type document struct {
	Phases []Phase `yaml:"phases"`
}

// ParseBlock extracts the structured roadmap from a body, if present.
// A malformed payload reads as absent, matching the codec's contract.
func ParseBlock(body string) ([]Phase, bool) {
	b, ok := metadata.FindBlock(body, BlockKey)
	if !ok {
		return nil, false
	}
	doc, ok := decodeDocument(b)
	if !ok {
		return nil, false
	}
	return doc.Phases, true
}

// decodeDocument converts a parsed block's generic payload into typed
// phases by round-tripping through YAML. The extra marshal keeps the codec
// free of any roadmap-specific knowledge.
func decodeDocument(b metadata.Block) (document, bool) {
	raw, err := yaml.Marshal(b.Data)
	if err != nil {
		return document{}, false
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return document{}, false
	}
	return doc, true
}

// encodeDocument is the inverse of decodeDocument; it produces the generic
// payload the codec renders.
func encodeDocument(doc document) (metadata.Block, bool) {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return metadata.Block{}, false
	}
	data := map[string]any{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return metadata.Block{}, false
	}
	return metadata.New(BlockKey, data), true
}

// RenderBlock renders phases as a metadata block ready for embedding.
func RenderBlock(phases []Phase) string {
	b, ok := encodeDocument(document{Phases: phases})
	if !ok {
		return ""
	}
	return metadata.Render(b)
}

// RenderTable renders phases as the human-readable markdown table form:
// one heading plus one five-column table per phase.
func RenderTable(phases []Phase) string {
	var sb strings.Builder
	for i, phase := range phases {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("### " + phase.Name + "\n\n")
		sb.WriteString("| Step | Description | Status | Plan | PR |\n")
		sb.WriteString("|------|-------------|--------|------|----|\n")
		for _, s := range phase.Steps {
			sb.WriteString(renderRow(s))
		}
	}
	return sb.String()
}

func renderRow(s Step) string {
	return "| " + s.ID +
		" | " + s.Description +
		" | " + orPlaceholder(s.Status) +
		" | " + orPlaceholder(s.Plan) +
		" | " + orPlaceholder(s.PR) + " |\n"
}

func orPlaceholder(cell string) string {
	if cell == "" {
		return Placeholder
	}
	return cell
}

// emptyCell reports whether a table cell holds no value.
func emptyCell(cell string) bool {
	return cell == "" || cell == Placeholder || cell == "-"
}

// splitRow breaks a markdown table row into trimmed cells. Returns nil for
// lines that are not data rows (prose, headings, separator rows).
func splitRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") || !strings.HasSuffix(trimmed, "|") {
		return nil
	}
	inner := strings.Trim(trimmed, "|")
	parts := strings.Split(inner, "|")
	cells := make([]string, len(parts))
	separator := true
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
		if strings.Trim(cells[i], ":-") != "" || cells[i] == "" {
			separator = false
		}
	}
	if separator {
		return nil
	}
	return cells
}

// InferStatus derives a step's status from its references: a PR means done,
// a plan means in-progress, otherwise pending.
func InferStatus(plan, pr string) string {
	switch {
	case !emptyCell(pr):
		return StatusDone
	case !emptyCell(plan):
		return StatusInProgress
	default:
		return StatusPending
	}
}
