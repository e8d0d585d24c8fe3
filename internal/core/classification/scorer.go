package classification

import "strings"

const (
	keywordWeight = 0.4
	patternWeight = 0.6
)

// Score computes the weighted match score of one rule against lower-cased text.
// Each keyword found as a substring contributes keywordWeight/k and each pattern
// that matches contributes patternWeight/p.
func Score(lowerText string, rule Rule) float64 {
	score := 0.0

	if k := len(rule.Keywords); k > 0 {
		matched := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lowerText, kw) {
				matched++
			}
		}
		score += keywordWeight * (float64(matched) / float64(k))
	}

	if p := len(rule.Patterns); p > 0 {
		matched := 0
		for _, pattern := range rule.Patterns {
			if pattern.MatchString(lowerText) {
				matched++
			}
		}
		score += patternWeight * (float64(matched) / float64(p))
	}

	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
