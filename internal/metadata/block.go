// Package metadata implements the delimited metadata-block format erk embeds
// in GitHub issue bodies and comments. A block is a keyed YAML payload wrapped
// in a pair of HTML-comment markers, so it survives markdown rendering and
// hand edits to the surrounding prose. The issue tracker is the only
// persistence layer, so everything structured travels through these blocks.
package metadata

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is stamped into every rendered block. Readers skip blocks
// with a higher version instead of misparsing them.
const SchemaVersion = 1

const (
	beginMarkerPrefix = "<!-- erk:begin "
	endMarkerPrefix   = "<!-- erk:end "
	markerSuffix      = " -->"
)

// Block is one keyed metadata record. Blocks are values: created fresh on
// each render or parse, never mutated in place.
type Block struct {
	Key  string
	Data map[string]any
}

// New builds a block with the schema version stamped in. The data map is
// copied so the caller's map stays untouched.
func New(key string, data map[string]any) Block {
	d := make(map[string]any, len(data)+1)
	for k, v := range data {
		d[k] = v
	}
	if _, ok := d["schema_version"]; !ok {
		d["schema_version"] = SchemaVersion
	}
	return Block{Key: key, Data: d}
}

// beginMarker returns the opening delimiter line for a key.
func beginMarker(key string) string {
	return beginMarkerPrefix + key + markerSuffix
}

// endMarker returns the closing delimiter line for a key.
func endMarker(key string) string {
	return endMarkerPrefix + key + markerSuffix
}

// Render serializes a block deterministically: begin marker, YAML payload
// with keys in sorted order, end marker. Render(b) always round-trips
// through Parse.
func Render(b Block) string {
	var sb strings.Builder
	sb.WriteString(beginMarker(b.Key))
	sb.WriteByte('\n')

	keys := make([]string, 0, len(b.Data))
	for k := range b.Data {
		keys = append(keys, k)
	}
	if _, ok := b.Data["schema_version"]; !ok {
		keys = append(keys, "schema_version")
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, ok := b.Data[k]
		if !ok && k == "schema_version" {
			v = SchemaVersion
		}
		sb.WriteString(renderField(k, v))
	}

	sb.WriteString(endMarker(b.Key))
	return sb.String()
}

// renderField marshals a single key/value pair as one YAML mapping entry.
// Marshaling entries one at a time keeps field order under our control
// rather than the encoder's.
func renderField(key string, value any) string {
	out, err := yaml.Marshal(map[string]any{key: value})
	if err != nil {
		// Only unmarshalable values (channels, funcs) hit this; render a
		// string form so the block stays readable instead of dropping data.
		out, _ = yaml.Marshal(map[string]any{key: fmt.Sprintf("%v", value)})
	}
	return string(out)
}

// Parse decodes a single rendered block. It returns false when the text is
// not a well-formed block: wrong markers, mismatched keys, payload that is
// not a YAML mapping, or a schema version newer than this reader understands.
// Parsing never errors; a bad block is simply absent.
func Parse(text string) (Block, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, beginMarkerPrefix) {
		return Block{}, false
	}
	rest := trimmed[len(beginMarkerPrefix):]
	suffixIdx := strings.Index(rest, markerSuffix)
	if suffixIdx < 0 {
		return Block{}, false
	}
	key := rest[:suffixIdx]
	if key == "" || strings.ContainsAny(key, " \t\n") {
		return Block{}, false
	}

	end := endMarker(key)
	payloadStart := strings.Index(trimmed, markerSuffix) + len(markerSuffix)
	endIdx := strings.LastIndex(trimmed, end)
	if endIdx < payloadStart {
		return Block{}, false
	}
	return parsePayload(key, trimmed[payloadStart:endIdx])
}

// parsePayload decodes the YAML between the markers.
func parsePayload(key, payload string) (Block, bool) {
	data := map[string]any{}
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(payload)), &data); err != nil {
		return Block{}, false
	}
	if v, ok := data["schema_version"]; ok {
		if n, isInt := v.(int); isInt && n > SchemaVersion {
			return Block{}, false
		}
	}
	return Block{Key: key, Data: data}, true
}

// Int reads an integer field, tolerating the string form YAML sometimes
// produces when a body has been hand-edited.
func (b Block) Int(field string) (int, bool) {
	switch v := b.Data[field].(type) {
	case int:
		return v, true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// String reads a string field. Non-string scalars are rendered via %v so
// callers that only care about display never need a type switch.
func (b Block) String(field string) (string, bool) {
	v, ok := b.Data[field]
	if !ok {
		return "", false
	}
	if s, isStr := v.(string); isStr {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}
