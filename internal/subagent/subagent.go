// Package subagent discovers SubagentSpec markdown overlays: named
// bundles of prompt/model/MCP settings merged over a session's defaults
// for a single turn.
package subagent

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haasonsaas/turnengine/internal/frontmatter"
)

// Spec describes one subagent overlay parsed from a markdown file's
// YAML front-matter and body.
type Spec struct {
	Name            string
	Description     string
	Prompt          string
	Tools           []string
	DisallowedTools []string
	Model           string
	PermissionMode  string
	MaxTurns        *int
	Skills          []string
	MCPServers      []string
	Hooks           map[string][]map[string]any
	Memory          string
	SourcePath      string
}

// DefaultSearchPaths returns the ordered base directories subagent specs
// are discovered from: project-level overrides a global/home directory.
func DefaultSearchPaths(workspaceRoot string) []string {
	paths := []string{filepath.Join(os.Getenv("HOME"), ".claude", "agents")}
	if workspaceRoot != "" {
		paths = append(paths, filepath.Join(workspaceRoot, ".claude", "agents"))
	}
	return paths
}

// Discover scans every *.md file under each base path in order, with
// later paths overriding earlier ones on a name collision (project
// overrides global).
func Discover(basePaths []string) []Spec {
	found := make(map[string]Spec)
	var order []string
	for _, base := range basePaths {
		entries, err := filepath.Glob(filepath.Join(base, "*.md"))
		if err != nil {
			continue
		}
		sort.Strings(entries)
		for _, path := range entries {
			spec, err := ParseFile(path)
			if err != nil {
				continue
			}
			if _, existed := found[spec.Name]; !existed {
				order = append(order, spec.Name)
			}
			found[spec.Name] = spec
		}
	}
	out := make([]Spec, 0, len(order))
	for _, name := range order {
		out = append(out, found[name])
	}
	return out
}

// ParseFile reads and parses one subagent markdown file.
func ParseFile(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	return Parse(string(raw), path), nil
}

// Parse decodes front-matter into a Spec, applying the same defaulting
// rules as the parser this is grounded on: model defaults to "inherit",
// permission_mode defaults to "default", max_turns must be a positive
// integer or absent.
func Parse(content, sourcePath string) Spec {
	fm, body := frontmatter.Split(content)

	name := frontmatter.OptionalString(fm["name"])
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	}
	description := frontmatter.OptionalString(fm["description"])

	model := frontmatter.OptionalString(fm["model"])
	if model == "" {
		model = "inherit"
	}
	permissionMode := frontmatter.OptionalString(fm["permission_mode"])
	if permissionMode == "" {
		permissionMode = "default"
	}

	var maxTurns *int
	if n, ok := frontmatter.OptionalInt(fm["max_turns"]); ok {
		maxTurns = &n
	}

	return Spec{
		Name:            name,
		Description:     description,
		Prompt:          body,
		Tools:           frontmatter.StringList(fm["tools"]),
		DisallowedTools: frontmatter.StringList(fm["disallowed_tools"]),
		Model:           model,
		PermissionMode:  permissionMode,
		MaxTurns:        maxTurns,
		Skills:          frontmatter.StringList(fm["skills"]),
		MCPServers:      normalizeMCPServers(fm["mcp_servers"]),
		Hooks:           normalizeHooks(fm["hooks"]),
		Memory:          frontmatter.OptionalString(fm["memory"]),
		SourcePath:      sourcePath,
	}
}

func normalizeMCPServers(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	var servers []string
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				servers = append(servers, strings.TrimSpace(v))
			}
		case map[string]any:
			for key := range v {
				servers = append(servers, key)
			}
		}
	}
	return servers
}

func normalizeHooks(value any) map[string][]map[string]any {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]map[string]any)
	for eventName, entries := range raw {
		list, ok := entries.([]any)
		if !ok {
			continue
		}
		var eventEntries []map[string]any
		for _, entry := range list {
			if m, ok := entry.(map[string]any); ok {
				eventEntries = append(eventEntries, m)
			}
		}
		out[eventName] = eventEntries
	}
	return out
}

// Apply merges a subagent overlay over the turn's effective text, model,
// MCP state and memory summary, matching the TurnEngine subagent-overlay
// step exactly.
func Apply(spec Spec, text, model string, mcpEnabled bool, mcpProfile, memory string) (string, string, bool, string, string) {
	if spec.Model != "inherit" {
		model = spec.Model
	}
	if spec.Prompt != "" {
		if text != "" {
			text = spec.Prompt + "\n\n사용자 요청:\n" + text
		} else {
			text = spec.Prompt
		}
	}
	if len(spec.MCPServers) > 0 {
		mcpEnabled = true
		if mcpProfile == "" {
			mcpProfile = spec.MCPServers[0]
		}
	}
	if spec.Memory != "" {
		memory = memory + ", subagent-memory=" + spec.Memory
	}
	return text, model, mcpEnabled, mcpProfile, memory
}
