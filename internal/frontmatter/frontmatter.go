// Package frontmatter splits a markdown file into its YAML front-matter
// block and body, the way SKILL.md and subagent spec files are authored
// across the corpus.
package frontmatter

import (
	"bufio"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Split parses content of the form:
//
//	---
//	key: value
//	---
//	body text
//
// and returns the decoded front-matter map and the trimmed body. If the
// content has no opening delimiter, the whole content is returned as body
// with an empty front-matter map.
func Split(content string) (map[string]any, string) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(trimmed, delimiter) {
		return map[string]any{}, strings.TrimSpace(content)
	}

	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var frontLines []string
	var bodyLines []string
	sawOpening := false
	closed := false

	for scanner.Scan() {
		line := scanner.Text()
		if !sawOpening {
			if strings.TrimSpace(line) == delimiter {
				sawOpening = true
				continue
			}
			continue
		}
		if !closed && strings.TrimSpace(line) == delimiter {
			closed = true
			continue
		}
		if !closed {
			frontLines = append(frontLines, line)
		} else {
			bodyLines = append(bodyLines, line)
		}
	}

	if !closed {
		return map[string]any{}, strings.TrimSpace(content)
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(frontLines, "\n")), &parsed); err != nil || parsed == nil {
		parsed = map[string]any{}
	}
	return parsed, strings.TrimSpace(strings.Join(bodyLines, "\n"))
}

// StringList normalizes a front-matter value that may be a comma-joined
// string or a YAML list of strings into a clean []string.
func StringList(value any) []string {
	switch v := value.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}

func OptionalString(value any) string {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func OptionalBool(value any, fallback bool) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	return fallback
}

func OptionalInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	}
	return 0, false
}
