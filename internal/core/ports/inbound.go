package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// DocumentProcessor runs the synchronous extract, classify and persist pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, sub domain.Submission) (*domain.ProcessedDocument, error)
}

// DocumentSubmitter accepts uploads for asynchronous processing.
type DocumentSubmitter interface {
	Submit(ctx context.Context, sub domain.Submission) (*domain.SubmissionReceipt, error)
}

// StatusTransitioner applies validated review status changes.
type StatusTransitioner interface {
	Transition(ctx context.Context, documentID, newStatus string) (*domain.Document, error)
}

// DocumentReader is the inbound read model for documents and notifications.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	OpenDocumentFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error)
	ListNotifications(ctx context.Context) ([]domain.NotificationView, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// TextClassifier explains classification decisions for raw text.
type TextClassifier interface {
	Classify(text string) domain.ClassificationResult
	Scores(text string) []domain.ScoreResult
}
