package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/turnengine/internal/tools"
)

const defaultMaxReadBytes = 2 * 1024 * 1024

var readSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"start_line": {"type": "integer", "minimum": 1},
		"line_count": {"type": "integer", "minimum": 1}
	},
	"required": ["path"]
}`)

type readArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	LineCount int    `json:"line_count"`
}

// ReadTool renders a workspace file as hashline-anchored text and records
// its mtime so a later edit can be checked for the read-before-edit
// invariant.
type ReadTool struct {
	Resolver   Resolver
	Freshness  *tools.Freshness
	MaxBytes   int64
}

func NewReadTool(resolver Resolver, freshness *tools.Freshness) *ReadTool {
	return &ReadTool{Resolver: resolver, Freshness: freshness, MaxBytes: defaultMaxReadBytes}
}

func (t *ReadTool) Name() string        { return "file_read" }
func (t *ReadTool) Title() string       { return "Read File" }
func (t *ReadTool) Description() string { return "Reads a workspace file with line-hash anchors for later edits." }
func (t *ReadTool) Schema() json.RawMessage { return readSchema }

func (t *ReadTool) Execute(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
	var args readArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return tools.Result{}, fmt.Errorf("invalid arguments: %w", err)
	}

	absPath, err := t.Resolver.Resolve(args.Path)
	if err != nil {
		return tools.Result{}, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return tools.Result{}, fmt.Errorf("cannot read %s: %w", args.Path, err)
	}

	maxBytes := t.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxReadBytes
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return tools.Result{}, fmt.Errorf("cannot read %s: %w", args.Path, err)
	}
	truncated := false
	if int64(len(content)) > maxBytes {
		content = content[:maxBytes]
		truncated = true
	}

	lines := strings.Split(string(content), "\n")

	start := 1
	if args.StartLine > 0 {
		start = args.StartLine
	}
	end := len(lines)
	if args.LineCount > 0 && start-1+args.LineCount < end {
		end = start - 1 + args.LineCount
	}
	if start-1 >= len(lines) {
		lines = nil
	} else {
		if end > len(lines) {
			end = len(lines)
		}
		lines = lines[start-1 : end]
	}

	formatted := tools.FormatWithHash(lines, start)

	if t.Freshness != nil {
		t.Freshness.NotifyRead(absPath, info.ModTime())
	}

	out := strings.Join(formatted, "\n")
	if truncated {
		out += "\n... (truncated)"
	}

	return tools.Result{
		OK:     true,
		Output: out,
		Metadata: map[string]any{
			"path":       args.Path,
			"line_count": len(lines),
		},
	}, nil
}
