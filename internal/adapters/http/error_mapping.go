package httpadapter

import (
	"net/http"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const (
	busyMessage     = "System is busy processing another document. Please try again in a few moments."
	internalMessage = "internal server error"
	retryAfterBusy  = "5"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrBusy):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrInvalidStatus),
		domain.IsKind(err, domain.ErrExtractionFailed),
		domain.IsKind(err, domain.ErrNoTextExtracted),
		domain.IsKind(err, domain.ErrUndeterminedType):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrNotificationNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage returns the message safe to show callers. Wrapped causes
// stay in the logs.
func publicErrorMessage(err error) string {
	switch kind := domain.UserFacingKind(err); kind {
	case domain.ErrBusy:
		return busyMessage
	case domain.ErrInvalidInput:
		return err.Error()
	case nil:
		if domain.IsKind(err, domain.ErrTemporary) {
			return "service temporarily unavailable"
		}
		return internalMessage
	default:
		return kind.Error()
	}
}
