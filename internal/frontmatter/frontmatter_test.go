package frontmatter

import "testing"

func TestSplitParsesFrontmatter(t *testing.T) {
	content := "---\nname: reviewer\ntags: a, b\n---\nDo the review.\n"
	fm, body := Split(content)
	if fm["name"] != "reviewer" {
		t.Fatalf("expected name=reviewer, got %v", fm["name"])
	}
	if body != "Do the review." {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestSplitWithoutDelimiterReturnsWholeBody(t *testing.T) {
	fm, body := Split("no frontmatter here")
	if len(fm) != 0 {
		t.Fatalf("expected empty frontmatter map")
	}
	if body != "no frontmatter here" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestSplitWithoutClosingDelimiter(t *testing.T) {
	fm, body := Split("---\nname: x\nno closing")
	if len(fm) != 0 {
		t.Fatalf("expected empty frontmatter map when unterminated")
	}
	if body == "" {
		t.Fatalf("expected fallback body to contain original content")
	}
}

func TestStringListAcceptsCommaStringOrList(t *testing.T) {
	if got := StringList("a, b ,c"); len(got) != 3 {
		t.Fatalf("expected 3 items, got %v", got)
	}
	if got := StringList([]any{"x", "y"}); len(got) != 2 {
		t.Fatalf("expected 2 items, got %v", got)
	}
	if got := StringList(nil); got != nil {
		t.Fatalf("expected nil for unsupported type")
	}
}
