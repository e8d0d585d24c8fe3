package metrics

import "github.com/kirillkom/document-intake/internal/core/domain"

// Outcome maps a pipeline error to a bounded metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrBusy):
		return "busy"
	case domain.IsKind(err, domain.ErrExtractionFailed):
		return "extraction_failed"
	case domain.IsKind(err, domain.ErrNoTextExtracted):
		return "no_text"
	case domain.IsKind(err, domain.ErrUndeterminedType):
		return "undetermined"
	case domain.IsKind(err, domain.ErrInvalidStatus), domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid"
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return "not_found"
	default:
		return "error"
	}
}
