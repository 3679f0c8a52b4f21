package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/turnengine/internal/tools"
)

var editSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"mode": {"type": "string", "enum": ["insert_after", "replace_range", "delete"]},
		"anchor_hash": {"type": "string"},
		"end_hash": {"type": "string"},
		"hint_line": {"type": "integer", "minimum": 1},
		"new_content": {"type": "string"}
	},
	"required": ["path", "mode", "anchor_hash"]
}`)

type editArgs struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	AnchorHash string `json:"anchor_hash"`
	EndHash    string `json:"end_hash"`
	HintLine   int    `json:"hint_line"`
	NewContent string `json:"new_content"`
}

// EditTool rewrites a range of a workspace file located by hashline
// anchors rather than exact line numbers, enforcing the read-before-edit
// freshness invariant before it ever writes.
type EditTool struct {
	Resolver  Resolver
	Freshness *tools.Freshness
}

func NewEditTool(resolver Resolver, freshness *tools.Freshness) *EditTool {
	return &EditTool{Resolver: resolver, Freshness: freshness}
}

func (t *EditTool) Name() string            { return "file_edit" }
func (t *EditTool) Title() string           { return "Edit File" }
func (t *EditTool) Description() string     { return "Edits a workspace file using line-hash anchors from a prior read." }
func (t *EditTool) Schema() json.RawMessage { return editSchema }

func (t *EditTool) Execute(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
	var args editArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return tools.Result{}, fmt.Errorf("invalid arguments: %w", err)
	}

	absPath, err := t.Resolver.Resolve(args.Path)
	if err != nil {
		return tools.Result{}, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return tools.Result{}, fmt.Errorf("cannot edit %s: %w", args.Path, err)
	}

	if t.Freshness != nil {
		if denial := t.Freshness.CheckEditAllowed(absPath, info.ModTime()); denial != "" {
			return tools.Result{OK: false, Error: denial}, nil
		}
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return tools.Result{}, fmt.Errorf("cannot edit %s: %w", args.Path, err)
	}
	lines := strings.Split(string(content), "\n")
	index := tools.BuildHashIndex(lines)

	var hint *int
	if args.HintLine > 0 {
		h := args.HintLine - 1
		hint = &h
	}

	anchor, ok := tools.ResolveHash(args.AnchorHash, index, hint)
	if !ok {
		return tools.Result{OK: false, Error: "anchor_hash not found in current file content"}, nil
	}

	end := anchor
	if args.EndHash != "" {
		resolvedEnd, ok := tools.ResolveHash(args.EndHash, index, hint)
		if !ok {
			return tools.Result{OK: false, Error: "end_hash not found in current file content"}, nil
		}
		end = resolvedEnd
	}
	if end < anchor {
		anchor, end = end, anchor
	}

	var newLines []string
	if args.NewContent != "" {
		newLines = strings.Split(args.NewContent, "\n")
	}

	var rebuilt []string
	switch args.Mode {
	case "insert_after":
		rebuilt = append(rebuilt, lines[:anchor+1]...)
		rebuilt = append(rebuilt, newLines...)
		rebuilt = append(rebuilt, lines[anchor+1:]...)
	case "replace_range":
		rebuilt = append(rebuilt, lines[:anchor]...)
		rebuilt = append(rebuilt, newLines...)
		rebuilt = append(rebuilt, lines[end+1:]...)
	case "delete":
		rebuilt = append(rebuilt, lines[:anchor]...)
		rebuilt = append(rebuilt, lines[end+1:]...)
	default:
		return tools.Result{OK: false, Error: "unsupported mode: " + args.Mode}, nil
	}

	updated := strings.Join(rebuilt, "\n")
	if err := os.WriteFile(absPath, []byte(updated), 0o644); err != nil {
		return tools.Result{}, fmt.Errorf("cannot write %s: %w", args.Path, err)
	}

	newInfo, err := os.Stat(absPath)
	if err == nil && t.Freshness != nil {
		t.Freshness.NotifyRead(absPath, newInfo.ModTime())
	}

	previewStart := anchor - 2
	if previewStart < 0 {
		previewStart = 0
	}
	previewEnd := anchor + len(newLines) + 2
	if previewEnd > len(rebuilt) {
		previewEnd = len(rebuilt)
	}
	preview := tools.FormatWithHash(rebuilt[previewStart:previewEnd], previewStart+1)

	return tools.Result{
		OK:     true,
		Output: strings.Join(preview, "\n"),
		Metadata: map[string]any{
			"path": args.Path,
			"mode": args.Mode,
		},
	}, nil
}
