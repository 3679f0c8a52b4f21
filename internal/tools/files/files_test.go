package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/turnengine/internal/tools"
)

func TestResolverRejectsEscape(t *testing.T) {
	r := Resolver{Root: t.TempDir()}
	if _, err := r.Resolve("../../etc/passwd"); err == nil {
		t.Fatalf("expected escape to be rejected")
	}
	if _, err := r.Resolve("a/b.txt"); err != nil {
		t.Fatalf("expected ordinary relative path to resolve: %v", err)
	}
}

func TestReadFormatsHashlines(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := tools.NewFreshness()
	read := NewReadTool(Resolver{Root: root}, fresh)

	result, err := read.Execute(context.Background(), mustJSON(t, readArgs{Path: "f.txt"}))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected ok result, got error %q", result.Error)
	}
	if !strings.Contains(result.Output, "1:") || !strings.Contains(result.Output, "one") {
		t.Fatalf("expected hashline-formatted output, got %q", result.Output)
	}
}

func TestEditWithoutPriorReadIsRejected(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := tools.NewFreshness()
	edit := NewEditTool(Resolver{Root: root}, fresh)

	result, err := edit.Execute(context.Background(), mustJSON(t, editArgs{
		Path:       "f.txt",
		Mode:       "replace_range",
		AnchorHash: tools.LineHash("two", 2),
		NewContent: "TWO",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Fatalf("expected edit without prior read to be rejected")
	}
}

func TestReadThenEditRoundTrip(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := tools.NewFreshness()
	read := NewReadTool(Resolver{Root: root}, fresh)
	edit := NewEditTool(Resolver{Root: root}, fresh)

	if _, err := read.Execute(context.Background(), mustJSON(t, readArgs{Path: "f.txt"})); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	result, err := edit.Execute(context.Background(), mustJSON(t, editArgs{
		Path:       "f.txt",
		Mode:       "replace_range",
		AnchorHash: tools.LineHash("two", 2),
		NewContent: "TWO",
	}))
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected ok edit result, got error %q", result.Error)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "one\nTWO\nthree" {
		t.Fatalf("unexpected content after edit: %q", string(content))
	}
}

func TestEditStaleAfterExternalModification(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := tools.NewFreshness()
	read := NewReadTool(Resolver{Root: root}, fresh)
	edit := NewEditTool(Resolver{Root: root}, fresh)

	if _, err := read.Execute(context.Background(), mustJSON(t, readArgs{Path: "f.txt"})); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	// Simulate an external modification with a strictly later mtime.
	future := time.Now().Add(time.Hour)
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	result, err := edit.Execute(context.Background(), mustJSON(t, editArgs{
		Path:       "f.txt",
		Mode:       "replace_range",
		AnchorHash: tools.LineHash("two", 2),
		NewContent: "TWO",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Fatalf("expected stale edit to be rejected")
	}
}

func TestEditUnknownAnchorFails(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree"), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := tools.NewFreshness()
	read := NewReadTool(Resolver{Root: root}, fresh)
	edit := NewEditTool(Resolver{Root: root}, fresh)

	if _, err := read.Execute(context.Background(), mustJSON(t, readArgs{Path: "f.txt"})); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	result, err := edit.Execute(context.Background(), mustJSON(t, editArgs{
		Path:       "f.txt",
		Mode:       "replace_range",
		AnchorHash: "zz",
		NewContent: "TWO",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Fatalf("expected unknown anchor to fail")
	}
}

func TestWriteCreatesParentDirsAndAppends(t *testing.T) {
	root := t.TempDir()
	write := NewWriteTool(Resolver{Root: root}, nil)

	if _, err := write.Execute(context.Background(), mustJSON(t, writeArgs{
		Path:    "nested/dir/f.txt",
		Content: "hello",
	})); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := write.Execute(context.Background(), mustJSON(t, writeArgs{
		Path:    "nested/dir/f.txt",
		Content: " world",
		Append:  true,
	})); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(root, "nested/dir/f.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello world" {
		t.Fatalf("unexpected content: %q", string(content))
	}
}

func TestApplyPatchInsertsAndRemovesLines(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fresh := tools.NewFreshness()
	read := NewReadTool(Resolver{Root: root}, fresh)
	patch := NewPatchTool(Resolver{Root: root}, fresh)

	if _, err := read.Execute(context.Background(), mustJSON(t, readArgs{Path: "f.txt"})); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	diff := "@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n three\n"
	result, err := patch.Execute(context.Background(), mustJSON(t, patchArgs{Path: "f.txt", Diff: diff}))
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected ok patch result, got error %q", result.Error)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "TWO") || strings.Contains(string(content), "\ntwo\n") {
		t.Fatalf("unexpected content after patch: %q", string(content))
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	return raw
}
