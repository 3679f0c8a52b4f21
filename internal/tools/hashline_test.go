package tools

import "testing"

func TestLineHashIsWhitespaceInsensitive(t *testing.T) {
	if LineHash("  x=1  ", 2) != LineHash("x=1", 2) {
		t.Fatalf("expected whitespace-insensitive hash match")
	}
}

func TestLineHashLength(t *testing.T) {
	if got := LineHash("anything", 2); len(got) != 2 {
		t.Fatalf("expected 2-char hash, got %q", got)
	}
}

func TestResolveHashPicksNearestToHint(t *testing.T) {
	lines := []string{"a", "dup", "b", "dup", "c"}
	index := BuildHashIndex(lines)
	dupHash := LineHash("dup", 2)

	hint := 3
	resolved, ok := ResolveHash(dupHash, index, &hint)
	if !ok || resolved != 3 {
		t.Fatalf("expected index 3 closest to hint, got %d ok=%v", resolved, ok)
	}

	resolvedNoHint, ok := ResolveHash(dupHash, index, nil)
	if !ok || resolvedNoHint != 1 {
		t.Fatalf("expected first occurrence without hint, got %d", resolvedNoHint)
	}
}

func TestResolveHashUnknown(t *testing.T) {
	index := BuildHashIndex([]string{"a", "b"})
	if _, ok := ResolveHash("zz", index, nil); ok {
		t.Fatalf("expected unknown hash to not resolve")
	}
}

func TestFormatWithHashLineNumbers(t *testing.T) {
	out := FormatWithHash([]string{"first", "second"}, 1)
	if len(out) != 2 {
		t.Fatalf("expected 2 formatted lines")
	}
	if out[0][:2] != "1:" || out[1][:2] != "2:" {
		t.Fatalf("unexpected line numbering: %v", out)
	}
}
