package domain

import (
	"fmt"
	"strings"
)

// Category is a closed set of document-type labels.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryAcademicTranscript
	CategoryAcademicCertificate
	CategoryEmploymentRecord
	CategoryCertificationLetter
	CategoryAuthenticatedCopy
)

var categoryNames = [...]string{
	CategoryUnknown:             "unknown",
	CategoryAcademicTranscript:  "academic_transcript",
	CategoryAcademicCertificate: "academic_certificate",
	CategoryEmploymentRecord:    "employment_record",
	CategoryCertificationLetter: "certification_letter",
	CategoryAuthenticatedCopy:   "authenticated_copy",
}

// Categories returns every classifiable category in declaration order.
// The order is the tie-breaker for equal scores.
func Categories() []Category {
	return []Category{
		CategoryAcademicTranscript,
		CategoryAcademicCertificate,
		CategoryEmploymentRecord,
		CategoryCertificationLetter,
		CategoryAuthenticatedCopy,
	}
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

func ParseCategory(raw string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, candidate := range categoryNames {
		if candidate == name {
			return Category(i), nil
		}
	}
	return CategoryUnknown, WrapError(ErrInvalidInput, "parse category", fmt.Errorf("unknown category %q", raw))
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClassificationResult is the ordered list of accepted categories.
// Order reflects decision-policy priority, not score magnitude.
type ClassificationResult []Category

func UnknownResult() ClassificationResult {
	return ClassificationResult{CategoryUnknown}
}

func (r ClassificationResult) IsUnknown() bool {
	return len(r) == 0 || (len(r) == 1 && r[0] == CategoryUnknown)
}

func (r ClassificationResult) Contains(c Category) bool {
	for _, existing := range r {
		if existing == c {
			return true
		}
	}
	return false
}

func (r ClassificationResult) Strings() []string {
	out := make([]string, 0, len(r))
	for _, c := range r {
		out = append(out, c.String())
	}
	return out
}

// ScoreResult is a derived per-category score in [0,1].
type ScoreResult struct {
	Category  Category `json:"category"`
	Score     float64  `json:"score"`
	Threshold float64  `json:"threshold"`
	Qualifies bool     `json:"qualifies"`
}
