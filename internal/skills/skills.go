// Package skills discovers Claude-style SKILL.md and command markdown
// files, a sibling pipeline to subagent discovery sharing the same
// front-matter splitting convention.
package skills

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haasonsaas/turnengine/internal/frontmatter"
)

// Entry describes one discovered skill or command.
type Entry struct {
	Name                   string
	Description            string
	Path                   string
	ArgumentHint           string
	DisableModelInvocation bool
	UserInvocable          bool
	AllowedTools           []string
	Model                  string
	Context                string
	Agent                  string
	MarkdownBody           string
}

// ParseSkillFile parses a SKILL.md-shaped file; the entry's Name falls
// back to the containing directory's name (SKILL.md files live under
// <base>/<skill-name>/SKILL.md).
func ParseSkillFile(path string) (Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	return parse(string(raw), path, filepath.Base(filepath.Dir(path))), nil
}

// ParseCommandFile parses a standalone command markdown file; Name falls
// back to the file's stem.
func ParseCommandFile(path string) (Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return parse(string(raw), path, stem), nil
}

func parse(content, path, defaultName string) Entry {
	fm, body := frontmatter.Split(content)

	name := frontmatter.OptionalString(fm["name"])
	if name == "" {
		name = defaultName
	}
	description := frontmatter.OptionalString(fm["description"])
	if description == "" {
		description = firstNonEmptyLine(body)
	}

	return Entry{
		Name:                   name,
		Description:            description,
		Path:                   path,
		ArgumentHint:           frontmatter.OptionalString(fm["argument-hint"]),
		DisableModelInvocation: frontmatter.OptionalBool(fm["disable-model-invocation"], false),
		UserInvocable:          frontmatter.OptionalBool(fm["user-invocable"], true),
		AllowedTools:           frontmatter.StringList(fm["allowed-tools"]),
		Model:                  frontmatter.OptionalString(fm["model"]),
		Context:                frontmatter.OptionalString(fm["context"]),
		Agent:                  frontmatter.OptionalString(fm["agent"]),
		MarkdownBody:           body,
	}
}

func firstNonEmptyLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		candidate := strings.TrimSpace(line)
		if candidate != "" {
			if len(candidate) > 200 {
				candidate = candidate[:200]
			}
			return candidate
		}
	}
	return "설명이 없어요."
}

// Discover walks skillBasePaths for <base>/*/SKILL.md files and
// commandBasePaths for <base>/*.md files, de-duplicating by name (last
// discovered wins, matching subagent discovery's override order).
func Discover(skillBasePaths, commandBasePaths []string) []Entry {
	var discovered []Entry

	for _, base := range skillBasePaths {
		matches, err := filepath.Glob(filepath.Join(base, "*", "SKILL.md"))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, path := range matches {
			if entry, err := ParseSkillFile(path); err == nil {
				discovered = append(discovered, entry)
			}
		}
	}

	for _, base := range commandBasePaths {
		matches, err := filepath.Glob(filepath.Join(base, "*.md"))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, path := range matches {
			if entry, err := ParseCommandFile(path); err == nil {
				discovered = append(discovered, entry)
			}
		}
	}

	deduped := make(map[string]Entry)
	var order []string
	for _, entry := range discovered {
		if _, existed := deduped[entry.Name]; !existed {
			order = append(order, entry.Name)
		}
		deduped[entry.Name] = entry
	}
	out := make([]Entry, 0, len(order))
	for _, name := range order {
		out = append(out, deduped[name])
	}
	return out
}

// Names returns the sorted set of discovered skill/command names, the
// shape PolicySnapshot.AvailableSkills needs.
func Names(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
