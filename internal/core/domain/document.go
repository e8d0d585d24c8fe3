package domain

import (
	"fmt"
	"io"
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusInReview DocumentStatus = "in_review"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
)

func ParseDocumentStatus(raw string) (DocumentStatus, error) {
	switch status := DocumentStatus(strings.TrimSpace(raw)); status {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return status, nil
	default:
		return "", WrapError(ErrInvalidStatus, "parse status", fmt.Errorf("status %q is not allowed", raw))
	}
}

// StatusChangeMessage returns the notification phrase for a status, or false when
// the status does not produce a notification.
func StatusChangeMessage(status DocumentStatus) (string, bool) {
	switch status {
	case StatusInReview:
		return "is now under review", true
	case StatusApproved:
		return "has been approved", true
	case StatusRejected:
		return "has been rejected", true
	default:
		return "", false
	}
}

type Uploader struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (u Uploader) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Document struct {
	ID              string           `json:"id"`
	FileName        string           `json:"file_name"`
	FileType        string           `json:"file_type"`
	StoragePath     string           `json:"-"`
	ExtractedText   string           `json:"extracted_text,omitempty"`
	Processed       bool             `json:"processed"`
	Status          DocumentStatus   `json:"status"`
	Uploader        Uploader         `json:"uploader"`
	Purpose         string           `json:"purpose,omitempty"`
	Description     string           `json:"description,omitempty"`
	Classifications []Classification `json:"classifications,omitempty"`
	UploadedAt      time.Time        `json:"uploaded_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (d *Document) Categories() []string {
	out := make([]string, 0, len(d.Classifications))
	for _, cls := range d.Classifications {
		out = append(out, cls.Category.String())
	}
	return out
}

// Classification is one accepted category row. Confidence is persisted as 1.0
// regardless of the computed score.
type Classification struct {
	Category     Category  `json:"category"`
	Confidence   float64   `json:"confidence"`
	ClassifiedAt time.Time `json:"classified_at"`
}

const DefaultClassificationConfidence = 1.0

type DocumentFilter struct {
	Category *Category
	Status   *DocumentStatus
}

// Submission is a raw upload handed to the processing pipeline.
type Submission struct {
	// ProcessingKey serializes runs that share it. Empty means a fresh key.
	ProcessingKey string
	FileName      string
	FileType      string
	Body          io.Reader
	Uploader      Uploader
	Purpose       string
	Description   string
	// StorageKey is set when the upload already lives in object storage.
	StorageKey string
}

type SubmissionReceipt struct {
	SubmissionID  string `json:"submission_id"`
	ProcessingKey string `json:"processing_key"`
	FileName      string `json:"file_name"`
	Status        string `json:"status"`
}

// SubmissionMessage is the queued form of an asynchronous submission.
type SubmissionMessage struct {
	SubmissionID  string    `json:"submission_id"`
	ProcessingKey string    `json:"processing_key"`
	StorageKey    string    `json:"storage_key"`
	FileName      string    `json:"file_name"`
	FileType      string    `json:"file_type"`
	Uploader      Uploader  `json:"uploader"`
	Purpose       string    `json:"purpose,omitempty"`
	Description   string    `json:"description,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

const (
	excerptLimit  = 500
	excerptMarker = "..."
)

// Excerpt returns at most the first 500 characters of text followed by an
// ellipsis marker when the text was cut.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit]) + excerptMarker
}

type ProcessedDocument struct {
	DocumentID      string   `json:"document_id"`
	Classifications []string `json:"classifications"`
	ExtractedText   string   `json:"extracted_text"`
	FileType        string   `json:"file_type"`
	Message         string   `json:"message"`
}
