// Package policy implements PolicyLoader (reads rule/agent/skill
// artifacts into an immutable snapshot) and PolicyEngine (parses and
// enforces allow/deny/required constraints against a request).
package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/turnengine/internal/skills"
)

// Snapshot is the immutable bundle returned by every Load() call. It is
// never cached at the engine level — each turn gets a fresh read.
type Snapshot struct {
	RulesSummary        string
	AgentsSummary       string
	SkillsSummary       string
	RulesText           string
	AgentsText          string
	AvailableSkills     []string
	SystemMemorySummary string
}

// Loader reads RULES.md, AGENTS.md, and the skill directories under a
// workspace root.
type Loader struct {
	WorkspaceRoot string
}

func NewLoader(workspaceRoot string) *Loader {
	return &Loader{WorkspaceRoot: workspaceRoot}
}

func (l *Loader) Load() Snapshot {
	rulesPath := filepath.Join(l.WorkspaceRoot, "RULES.md")
	agentsPath := filepath.Join(l.WorkspaceRoot, "AGENTS.md")
	memoryPath := filepath.Join(l.WorkspaceRoot, "CLAUDE.md")

	rulesSummary := readHeadline(rulesPath)
	agentsSummary := readHeadline(agentsPath)
	memorySummary := readHeadline(memoryPath)

	availableSkills := l.readSkills()
	skillsSummary := "스킬이 없어요."
	if len(availableSkills) > 0 {
		skillsSummary = strings.Join(availableSkills, ", ")
	}

	return Snapshot{
		RulesSummary:        rulesSummary,
		AgentsSummary:       agentsSummary,
		SkillsSummary:       skillsSummary,
		RulesText:           readFullText(rulesPath),
		AgentsText:          readFullText(agentsPath),
		AvailableSkills:     availableSkills,
		SystemMemorySummary: memorySummary,
	}
}

func readHeadline(path string) string {
	text := readFullText(path)
	if text == "" {
		if _, err := os.Stat(path); err != nil {
			return "파일이 없어요."
		}
		return "내용이 비어 있어요."
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			if len(trimmed) > 200 {
				trimmed = trimmed[:200]
			}
			return trimmed
		}
	}
	return "내용이 비어 있어요."
}

func readFullText(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (l *Loader) readSkills() []string {
	claudeSkillPaths := []string{filepath.Join(l.WorkspaceRoot, ".claude", "skills")}
	if home := os.Getenv("HOME"); home != "" {
		claudeSkillPaths = append(claudeSkillPaths, filepath.Join(home, ".claude", "skills"))
	}
	entries := skills.Discover(claudeSkillPaths, nil)
	return skills.Names(entries)
}

// AgentDefaults is parsed from AGENTS.md key:value lines and used to
// seed session creation when the caller doesn't specify a value.
type AgentDefaults struct {
	Provider       string
	Model          string
	MCPEnabled     *bool
	MCPProfileName string
}

// ExtractAgentDefaults scans agentsText for default_provider,
// default_model, default_mcp_enabled, default_mcp_profile key:value
// lines, ignoring blank and '#'-prefixed lines.
func ExtractAgentDefaults(agentsText string) AgentDefaults {
	var defaults AgentDefaults
	for _, raw := range strings.Split(agentsText, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, ":") {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch key {
		case "default_provider":
			defaults.Provider = value
		case "default_model":
			defaults.Model = value
		case "default_mcp_enabled":
			lowered := strings.ToLower(value)
			switch lowered {
			case "true", "yes", "1":
				b := true
				defaults.MCPEnabled = &b
			case "false", "no", "0":
				b := false
				defaults.MCPEnabled = &b
			}
		case "default_mcp_profile":
			defaults.MCPProfileName = value
		}
	}
	return defaults
}
