package metadata

import (
	"strings"
	"testing"
)

// body builds an issue body with prose around rendered blocks.
func body(parts ...string) string {
	return strings.Join(parts, "\n\n")
}

// TestFindBlock verifies first-match scanning and that malformed occurrences
// are skipped rather than hiding later valid ones.
func TestFindBlock(t *testing.T) {
	valid := Render(New("plan-header", map[string]any{"objective_issue": 12}))
	broken := "<!-- erk:begin plan-header -->\n{bad: [yaml\n<!-- erk:end plan-header -->"

	tests := []struct {
		name    string
		body    string
		key     string
		wantOK  bool
		wantInt int
	}{
		{"present", body("# Plan", valid, "footer"), "plan-header", true, 12},
		{"absent key", body("# Plan", valid), "plan-retry", false, 0},
		{"no blocks at all", "plain prose only", "plan-header", false, 0},
		{"malformed then valid", body(broken, valid), "plan-header", true, 12},
		{"only malformed", body("intro", broken), "plan-header", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := FindBlock(tt.body, tt.key)
			if ok != tt.wantOK {
				t.Fatalf("FindBlock ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if n, _ := b.Int("objective_issue"); n != tt.wantInt {
				t.Errorf("objective_issue = %d, want %d", n, tt.wantInt)
			}
		})
	}
}

// TestFindAllBlocks verifies document-order extraction of repeated keys,
// which the plan event store depends on.
func TestFindAllBlocks(t *testing.T) {
	b1 := Render(New("erk-implementation-status", map[string]any{"status": "in_progress", "seq": 1}))
	b2 := Render(New("erk-implementation-status", map[string]any{"status": "complete", "seq": 2}))
	other := Render(New("plan-retry", map[string]any{"retry_count": 1}))

	doc := body("intro", b1, other, b2, "outro")
	got := FindAllBlocks(doc, "erk-implementation-status")
	if len(got) != 2 {
		t.Fatalf("found %d blocks, want 2", len(got))
	}
	for i, want := range []int{1, 2} {
		if n, _ := got[i].Int("seq"); n != want {
			t.Errorf("block %d seq = %d, want %d", i, n, want)
		}
	}
}

// TestReplaceBlock verifies surrounding text is preserved byte for byte and
// that replacing with identical content is a no-op.
func TestReplaceBlock(t *testing.T) {
	block := New("plan-header", map[string]any{"objective_issue": 12})
	prefix := "# Objective\n\nSome *prose* with trailing spaces  \n\n"
	suffix := "\n\n| a | b |\n|---|---|\n"
	doc := prefix + Render(block) + suffix

	t.Run("identical content is byte-identical", func(t *testing.T) {
		got, ok := ReplaceBlock(doc, "plan-header", block)
		if !ok {
			t.Fatal("ReplaceBlock reported not found")
		}
		if got != doc {
			t.Errorf("idempotent replace changed body:\n%s", got)
		}
	})

	t.Run("new content preserves surroundings", func(t *testing.T) {
		updated := New("plan-header", map[string]any{"objective_issue": 99})
		got, ok := ReplaceBlock(doc, "plan-header", updated)
		if !ok {
			t.Fatal("ReplaceBlock reported not found")
		}
		if !strings.HasPrefix(got, prefix) || !strings.HasSuffix(got, suffix) {
			t.Errorf("surrounding text damaged:\n%s", got)
		}
		b, ok := FindBlock(got, "plan-header")
		if !ok {
			t.Fatal("replaced block unparseable")
		}
		if n, _ := b.Int("objective_issue"); n != 99 {
			t.Errorf("objective_issue = %d, want 99", n)
		}
	})

	t.Run("missing key reports not found", func(t *testing.T) {
		got, ok := ReplaceBlock(doc, "plan-retry", block)
		if ok {
			t.Error("ReplaceBlock succeeded for absent key")
		}
		if got != doc {
			t.Error("body changed despite not-found")
		}
	})
}
