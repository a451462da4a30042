package metadata

import "strings"

// span locates one delimiter pair inside a body. Offsets are byte positions
// into the original body; end is exclusive and covers the close marker.
type span struct {
	start   int
	end     int
	payload string
}

// findSpan returns the first delimiter pair for key at or after offset.
// A begin marker with no matching end marker is malformed and terminates
// the scan; everything before it is already covered by earlier spans.
func findSpan(body, key string, offset int) (span, bool) {
	begin := beginMarker(key)
	end := endMarker(key)

	start := strings.Index(body[offset:], begin)
	if start < 0 {
		return span{}, false
	}
	start += offset

	payloadStart := start + len(begin)
	endIdx := strings.Index(body[payloadStart:], end)
	if endIdx < 0 {
		return span{}, false
	}
	endIdx += payloadStart

	return span{
		start:   start,
		end:     endIdx + len(end),
		payload: body[payloadStart:endIdx],
	}, true
}

// FindBlock returns the first block with the given key, scanning left to
// right. Occurrences whose payload fails to decode are skipped, so one
// corrupted block does not hide a later valid one. Absence and malformation
// look the same to the caller.
func FindBlock(body, key string) (Block, bool) {
	offset := 0
	for {
		sp, ok := findSpan(body, key, offset)
		if !ok {
			return Block{}, false
		}
		if b, valid := parsePayload(key, sp.payload); valid {
			return b, true
		}
		offset = sp.end
	}
}

// FindAllBlocks returns every valid block with the given key, in document
// order. The event store relies on repeated keys across comments.
func FindAllBlocks(body, key string) []Block {
	var blocks []Block
	offset := 0
	for {
		sp, ok := findSpan(body, key, offset)
		if !ok {
			return blocks
		}
		if b, valid := parsePayload(key, sp.payload); valid {
			blocks = append(blocks, b)
		}
		offset = sp.end
	}
}

// ReplaceBlock substitutes the first delimiter pair for key with the
// rendered form of nb, preserving all surrounding text byte for byte.
// Returns false when the body has no such pair; callers needing
// insert-or-replace must check first and append a rendered block themselves.
func ReplaceBlock(body, key string, nb Block) (string, bool) {
	sp, ok := findSpan(body, key, 0)
	if !ok {
		return body, false
	}
	return body[:sp.start] + Render(nb) + body[sp.end:], true
}
