package classification

import (
	"sort"
	"strings"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const minTokens = 20

var (
	academicOverridePhrases = []string{"academic credentials", "academic records", "scholastic record"}
	transcriptMarkers       = []string{"grade", "units", "course", "subject"}
	certificateMarkers      = []string{"degree", "diploma", "bachelor", "master"}
)

// Engine applies a RuleSet to text. It holds no mutable state.
type Engine struct {
	rules *RuleSet
}

func NewEngine(rules *RuleSet) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Scores returns the score of every category in declaration order.
func (e *Engine) Scores(text string) []domain.ScoreResult {
	lower := strings.ToLower(text)
	out := make([]domain.ScoreResult, 0, len(e.rules.rules))
	for _, rule := range e.rules.rules {
		score := Score(lower, rule)
		out = append(out, domain.ScoreResult{
			Category:  rule.Category,
			Score:     score,
			Threshold: rule.Threshold,
			Qualifies: score >= rule.Threshold,
		})
	}
	return out
}

// Classify resolves the ordered list of accepted categories.
//
// authenticated_copy is placed first whenever it qualifies. At most one other
// category follows: chosen by secondary keywords when an academic override phrase
// is present, otherwise the best-scoring qualifying category. The two paths never
// both run for the same text.
func (e *Engine) Classify(text string) domain.ClassificationResult {
	if strings.TrimSpace(text) == "" || len(strings.Fields(text)) < minTokens {
		return domain.UnknownResult()
	}

	lower := strings.ToLower(text)
	qualifying := e.qualifying(lower)

	result := make(domain.ClassificationResult, 0, 2)
	for _, sr := range qualifying {
		if sr.Category == domain.CategoryAuthenticatedCopy {
			result = append(result, domain.CategoryAuthenticatedCopy)
			break
		}
	}

	if containsAny(lower, academicOverridePhrases) {
		switch {
		case containsAny(lower, transcriptMarkers):
			result = appendUnique(result, domain.CategoryAcademicTranscript)
		case containsAny(lower, certificateMarkers):
			result = appendUnique(result, domain.CategoryAcademicCertificate)
		}
	} else {
		for _, sr := range qualifying {
			if sr.Category == domain.CategoryAuthenticatedCopy || result.Contains(sr.Category) {
				continue
			}
			result = append(result, sr.Category)
			break
		}
	}

	if len(result) == 0 {
		return domain.UnknownResult()
	}
	return result
}

// qualifying returns categories meeting their threshold sorted by descending
// score; the stable sort keeps declaration order for ties.
func (e *Engine) qualifying(lower string) []domain.ScoreResult {
	out := make([]domain.ScoreResult, 0, len(e.rules.rules))
	for _, rule := range e.rules.rules {
		score := Score(lower, rule)
		if score >= rule.Threshold {
			out = append(out, domain.ScoreResult{
				Category:  rule.Category,
				Score:     score,
				Threshold: rule.Threshold,
				Qualifies: true,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func appendUnique(result domain.ClassificationResult, c domain.Category) domain.ClassificationResult {
	if result.Contains(c) {
		return result
	}
	return append(result, c)
}
