// Package classification assigns document-type categories from extracted text
// using weighted keyword and pattern evidence.
package classification

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// Rule is the immutable scoring configuration of one category.
type Rule struct {
	Category  domain.Category
	Keywords  []string
	Patterns  []*regexp.Regexp
	Threshold float64
}

// RuleSet holds one rule per category in declaration order. It is never mutated
// after construction and is safe to share between goroutines.
type RuleSet struct {
	rules []Rule
}

func NewRuleSet(rules []Rule) (*RuleSet, error) {
	byCategory := make(map[domain.Category]Rule, len(rules))
	for _, rule := range rules {
		if rule.Category == domain.CategoryUnknown {
			return nil, fmt.Errorf("rule for %q is not allowed", rule.Category)
		}
		if _, dup := byCategory[rule.Category]; dup {
			return nil, fmt.Errorf("duplicate rule for %s", rule.Category)
		}
		if rule.Threshold < 0 || rule.Threshold > 1 {
			return nil, fmt.Errorf("threshold for %s must be in [0,1], got %v", rule.Category, rule.Threshold)
		}
		byCategory[rule.Category] = normalizeRule(rule)
	}

	ordered := make([]Rule, 0, len(byCategory))
	for _, category := range domain.Categories() {
		if rule, ok := byCategory[category]; ok {
			ordered = append(ordered, rule)
		}
	}
	return &RuleSet{rules: ordered}, nil
}

func normalizeRule(rule Rule) Rule {
	keywords := make([]string, 0, len(rule.Keywords))
	for _, kw := range rule.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	patterns := make([]*regexp.Regexp, len(rule.Patterns))
	copy(patterns, rule.Patterns)
	return Rule{
		Category:  rule.Category,
		Keywords:  keywords,
		Patterns:  patterns,
		Threshold: rule.Threshold,
	}
}

// Rules returns a copy of the rules in declaration order.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

func (s *RuleSet) Rule(category domain.Category) (Rule, bool) {
	for _, rule := range s.rules {
		if rule.Category == category {
			return rule, true
		}
	}
	return Rule{}, false
}

var defaultRules = mustRuleSet([]Rule{
	{
		Category: domain.CategoryAcademicTranscript,
		Keywords: []string{"transcript", "records", "grade", "units", "gwa", "semester", "subject", "course"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)transcript of records?`),
			regexp.MustCompile(`(?i)\b(gwa|gpa|general weighted average)\b`),
			regexp.MustCompile(`(?i)units?\s+(earned|taken|completed)|(earned|total)\s+units?`),
		},
		Threshold: 0.5,
	},
	{
		Category: domain.CategoryAcademicCertificate,
		Keywords: []string{"diploma", "degree", "bachelor", "master", "conferred", "graduated", "university", "college"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(diploma|degree of)\b`),
			regexp.MustCompile(`(?i)conferred|awarded|graduat(ed|ion)`),
			regexp.MustCompile(`(?i)(bachelor|master|doctor) of`),
		},
		Threshold: 0.5,
	},
	{
		Category: domain.CategoryEmploymentRecord,
		Keywords: []string{"employment", "service", "position", "designation", "salary", "appointment", "employee", "office"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)service record|employment record|certificate of employment`),
			regexp.MustCompile(`(?i)date of appointment|period of service|inclusive dates`),
			regexp.MustCompile(`(?i)\b(position|designation)\b`),
		},
		Threshold: 0.5,
	},
	{
		Category: domain.CategoryCertificationLetter,
		Keywords: []string{"certify", "certification", "hereby", "request", "purpose", "whatever", "issued", "legal"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)this is to certify|hereby certif(y|ies)`),
			regexp.MustCompile(`(?i)issued (upon|for) (the )?request|for whatever (legal )?purpose`),
			regexp.MustCompile(`(?i)\b(registrar|dean|director|principal)\b`),
		},
		Threshold: 0.5,
	},
	{
		Category: domain.CategoryAuthenticatedCopy,
		Keywords: []string{"certified", "true", "copy", "original", "authenticated", "photocopy"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)certified true copy|authenticated copy`),
			regexp.MustCompile(`(?i)compared with the original|true and correct copy|this is to certify`),
		},
		Threshold: 0.5,
	},
})

// DefaultRules returns the built-in rule table.
func DefaultRules() *RuleSet {
	return defaultRules
}

func mustRuleSet(rules []Rule) *RuleSet {
	set, err := NewRuleSet(rules)
	if err != nil {
		panic(err)
	}
	return set
}
