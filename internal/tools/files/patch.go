package files

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/turnengine/internal/tools"
)

var patchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string"},
		"diff": {"type": "string"}
	},
	"required": ["path", "diff"]
}`)

type patchArgs struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// PatchTool applies a unified-diff hunk set against a workspace file. It
// supports the single-file subset of unified diff needed for model-issued
// patches: @@ hunk headers followed by ' ', '-', '+' prefixed lines.
type PatchTool struct {
	Resolver  Resolver
	Freshness *tools.Freshness
}

func NewPatchTool(resolver Resolver, freshness *tools.Freshness) *PatchTool {
	return &PatchTool{Resolver: resolver, Freshness: freshness}
}

func (t *PatchTool) Name() string            { return "file_apply_patch" }
func (t *PatchTool) Title() string           { return "Apply Patch" }
func (t *PatchTool) Description() string     { return "Applies a unified diff to a workspace file." }
func (t *PatchTool) Schema() json.RawMessage { return patchSchema }

func (t *PatchTool) Execute(ctx context.Context, raw json.RawMessage) (tools.Result, error) {
	var args patchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return tools.Result{}, fmt.Errorf("invalid arguments: %w", err)
	}

	absPath, err := t.Resolver.Resolve(args.Path)
	if err != nil {
		return tools.Result{}, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return tools.Result{}, fmt.Errorf("cannot patch %s: %w", args.Path, err)
	}
	if t.Freshness != nil {
		if denial := t.Freshness.CheckEditAllowed(absPath, info.ModTime()); denial != "" {
			return tools.Result{OK: false, Error: denial}, nil
		}
	}

	original, err := os.ReadFile(absPath)
	if err != nil {
		return tools.Result{}, fmt.Errorf("cannot read %s: %w", args.Path, err)
	}

	hunks, err := parseHunks(args.Diff)
	if err != nil {
		return tools.Result{OK: false, Error: err.Error()}, nil
	}

	updated, err := applyHunks(strings.Split(string(original), "\n"), hunks)
	if err != nil {
		return tools.Result{OK: false, Error: err.Error()}, nil
	}

	if err := os.WriteFile(absPath, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return tools.Result{}, fmt.Errorf("cannot write %s: %w", args.Path, err)
	}

	if newInfo, err := os.Stat(absPath); err == nil && t.Freshness != nil {
		t.Freshness.NotifyRead(absPath, newInfo.ModTime())
	}

	return tools.Result{
		OK:     true,
		Output: fmt.Sprintf("applied %d hunk(s) to %s", len(hunks), args.Path),
		Metadata: map[string]any{
			"path": args.Path,
		},
	}, nil
}

type hunk struct {
	oldStart int
	lines    []diffLine
}

type diffLine struct {
	kind byte // ' ', '-', '+'
	text string
}

func parseHunks(diff string) ([]hunk, error) {
	var hunks []hunk
	scanner := bufio.NewScanner(strings.NewReader(diff))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var current *hunk
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "@@"):
			if current != nil {
				hunks = append(hunks, *current)
			}
			start, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			current = &hunk{oldStart: start}
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			continue
		case current == nil:
			continue
		case strings.HasPrefix(line, "+"):
			current.lines = append(current.lines, diffLine{kind: '+', text: line[1:]})
		case strings.HasPrefix(line, "-"):
			current.lines = append(current.lines, diffLine{kind: '-', text: line[1:]})
		case strings.HasPrefix(line, " "):
			current.lines = append(current.lines, diffLine{kind: ' ', text: line[1:]})
		default:
			current.lines = append(current.lines, diffLine{kind: ' ', text: line})
		}
	}
	if current != nil {
		hunks = append(hunks, *current)
	}
	if len(hunks) == 0 {
		return nil, fmt.Errorf("diff contains no recognizable hunks")
	}
	return hunks, nil
}

func parseHunkHeader(line string) (int, error) {
	parts := strings.Fields(line)
	for _, p := range parts {
		if strings.HasPrefix(p, "-") {
			spec := strings.TrimPrefix(p, "-")
			spec, _, _ = strings.Cut(spec, ",")
			var n int
			if _, err := fmt.Sscanf(spec, "%d", &n); err != nil {
				return 0, fmt.Errorf("malformed hunk header: %s", line)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("malformed hunk header: %s", line)
}

func applyHunks(original []string, hunks []hunk) ([]string, error) {
	result := make([]string, 0, len(original))
	cursor := 0

	for _, h := range hunks {
		target := h.oldStart - 1
		if target < cursor || target > len(original) {
			return nil, fmt.Errorf("hunk does not apply: context out of range at line %d", h.oldStart)
		}
		result = append(result, original[cursor:target]...)
		cursor = target

		for _, dl := range h.lines {
			switch dl.kind {
			case ' ':
				if cursor >= len(original) || original[cursor] != dl.text {
					return nil, fmt.Errorf("hunk context mismatch at line %d", cursor+1)
				}
				result = append(result, original[cursor])
				cursor++
			case '-':
				if cursor >= len(original) || original[cursor] != dl.text {
					return nil, fmt.Errorf("hunk removal mismatch at line %d", cursor+1)
				}
				cursor++
			case '+':
				result = append(result, dl.text)
			}
		}
	}
	result = append(result, original[cursor:]...)
	return result, nil
}
