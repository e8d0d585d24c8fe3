package classification

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type rulesFile struct {
	Categories map[string]ruleEntry `yaml:"categories"`
}

type ruleEntry struct {
	Keywords  []string `yaml:"keywords"`
	Patterns  []string `yaml:"patterns"`
	Threshold *float64 `yaml:"threshold"`
}

// LoadRules reads a YAML rules override. Categories absent from the file keep
// the built-in rule; fields absent from an entry keep the built-in value.
// An empty path returns DefaultRules.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (*RuleSet, error) {
	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}

	overrides := make(map[domain.Category]ruleEntry, len(file.Categories))
	for name, entry := range file.Categories {
		category, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("rules file: %w", err)
		}
		if category == domain.CategoryUnknown {
			return nil, fmt.Errorf("rules file: %q cannot carry a rule", name)
		}
		overrides[category] = entry
	}

	rules := DefaultRules().Rules()
	for i, rule := range rules {
		entry, ok := overrides[rule.Category]
		if !ok {
			continue
		}
		if entry.Keywords != nil {
			rule.Keywords = entry.Keywords
		}
		if entry.Patterns != nil {
			compiled, err := compilePatterns(rule.Category, entry.Patterns)
			if err != nil {
				return nil, err
			}
			rule.Patterns = compiled
		}
		if entry.Threshold != nil {
			rule.Threshold = *entry.Threshold
		}
		rules[i] = rule
	}
	return NewRuleSet(rules)
}

func compilePatterns(category domain.Category, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, expr := range patterns {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q for %s: %w", expr, category, err)
		}
		out = append(out, re)
	}
	return out, nil
}
