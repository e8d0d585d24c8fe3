package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBusy                 = errors.New("processing lock unavailable")
	ErrExtractionFailed     = errors.New("text extraction failed")
	ErrNoTextExtracted      = errors.New("no text could be extracted from the document")
	ErrUndeterminedType     = errors.New("could not determine document type")
	ErrInvalidStatus        = errors.New("invalid status value")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// UserFacingKind returns the first kind carried by err whose message may be
// shown to callers, or nil when err must stay opaque.
func UserFacingKind(err error) error {
	for _, kind := range []error{
		ErrBusy,
		ErrExtractionFailed,
		ErrNoTextExtracted,
		ErrUndeterminedType,
		ErrInvalidStatus,
		ErrDocumentNotFound,
		ErrNotificationNotFound,
		ErrInvalidInput,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
