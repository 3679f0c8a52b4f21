package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haasonsaas/turnengine/internal/tools"
)

var writeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"content": {"type": "string"},
		"append": {"type": "boolean"}
	},
	"required": ["path", "content"]
}`)

type writeArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Append  bool   `json:"append"`
}

// WriteTool creates or overwrites a workspace file, creating parent
// directories as needed. It is not gated by the read-before-edit check,
// since it is for new or fully-owned files, not anchored edits; after
// writing it records the file's new mtime, so a later edit of that file
// is allowed without a separate read.
type WriteTool struct {
	Resolver  Resolver
	Freshness *tools.Freshness
}

func NewWriteTool(resolver Resolver, freshness *tools.Freshness) *WriteTool {
	return &WriteTool{Resolver: resolver, Freshness: freshness}
}

func (t *WriteTool) Name() string            { return "file_write" }
func (t *WriteTool) Title() string           { return "Write File" }
func (t *WriteTool) Description() string     { return "Creates, overwrites, or appends to a workspace file." }
func (t *WriteTool) Schema() json.RawMessage { return writeSchema }

func (t *WriteTool) Execute(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
	var args writeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return tools.Result{}, fmt.Errorf("invalid arguments: %w", err)
	}

	absPath, err := t.Resolver.Resolve(args.Path)
	if err != nil {
		return tools.Result{}, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return tools.Result{}, fmt.Errorf("cannot create parent directories for %s: %w", args.Path, err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if args.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(absPath, flags, 0o644)
	if err != nil {
		return tools.Result{}, fmt.Errorf("cannot open %s: %w", args.Path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(args.Content); err != nil {
		return tools.Result{}, fmt.Errorf("cannot write %s: %w", args.Path, err)
	}

	if info, err := os.Stat(absPath); err == nil && t.Freshness != nil {
		t.Freshness.NotifyRead(absPath, info.ModTime())
	}

	return tools.Result{
		OK:     true,
		Output: fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path),
		Metadata: map[string]any{
			"path":   args.Path,
			"append": args.Append,
		},
	}, nil
}
