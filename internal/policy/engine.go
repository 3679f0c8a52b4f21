package policy

import (
	"sort"
	"strings"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// Constraints are derived from RULES.md text: allow/deny providers and
// models, plus any skills a turn is required to have available.
type Constraints struct {
	AllowProviders  map[string]struct{}
	DenyProviders   map[string]struct{}
	AllowModels     map[string]struct{}
	DenyModels      map[string]struct{}
	RequiredSkills  map[string]struct{}
}

// ParseConstraints scans rule text for allow_providers, deny_providers,
// allow_models, deny_models, required_skills key:value lines.
// Comma-separated values accumulate into sets; '#'-prefixed lines are
// ignored.
func ParseConstraints(rulesText string) Constraints {
	c := Constraints{
		AllowProviders: map[string]struct{}{},
		DenyProviders:  map[string]struct{}{},
		AllowModels:    map[string]struct{}{},
		DenyModels:     map[string]struct{}{},
		RequiredSkills: map[string]struct{}{},
	}

	for _, raw := range strings.Split(rulesText, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := parseKeyValueLine(line)
		if !ok {
			continue
		}
		values := splitValues(value)
		switch key {
		case "allow_providers":
			addAll(c.AllowProviders, values)
		case "deny_providers":
			addAll(c.DenyProviders, values)
		case "allow_models":
			addAll(c.AllowModels, values)
		case "deny_models":
			addAll(c.DenyModels, values)
		case "required_skills":
			addAll(c.RequiredSkills, values)
		}
	}
	return c
}

func parseKeyValueLine(line string) (string, string, bool) {
	candidate := line
	if strings.HasPrefix(candidate, "-") {
		candidate = strings.TrimSpace(candidate[1:])
	}
	if !strings.Contains(candidate, ":") {
		return "", "", false
	}
	key, value, _ := strings.Cut(candidate, ":")
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

func splitValues(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		set[v] = struct{}{}
	}
}

// Enforce validates (provider, model, available skills) against
// constraints, raising ValidationError on the first violation in the
// order: allow_providers, deny_providers, allow_models, deny_models,
// required_skills.
func Enforce(provider, model string, constraints Constraints, availableSkills map[string]struct{}) error {
	if len(constraints.AllowProviders) > 0 {
		if _, ok := constraints.AllowProviders[provider]; !ok {
			return errs.Validation("RULES 정책으로 인해 `%s` 프로바이더를 사용할 수 없어요. 허용 목록: %s",
				provider, joinSorted(constraints.AllowProviders))
		}
	}
	if _, denied := constraints.DenyProviders[provider]; denied {
		return errs.Validation("RULES 정책으로 인해 `%s` 프로바이더를 사용할 수 없어요.", provider)
	}
	if len(constraints.AllowModels) > 0 {
		if _, ok := constraints.AllowModels[model]; !ok {
			return errs.Validation("RULES 정책으로 인해 `%s` 모델을 사용할 수 없어요. 허용 목록: %s",
				model, joinSorted(constraints.AllowModels))
		}
	}
	if _, denied := constraints.DenyModels[model]; denied {
		return errs.Validation("RULES 정책으로 인해 `%s` 모델을 사용할 수 없어요.", model)
	}
	for required := range constraints.RequiredSkills {
		if _, ok := availableSkills[required]; !ok {
			return errs.Validation("요구되는 스킬 `%s`를 사용할 수 없어요.", required)
		}
	}
	return nil
}

func joinSorted(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
