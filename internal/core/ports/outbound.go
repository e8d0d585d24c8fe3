package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// LockStore is a shared expiring key store backing advisory locks.
// Both operations must be safe under concurrent callers.
type LockStore interface {
	// AddIfAbsent atomically creates key with the given expiry. It reports false
	// when the key already exists.
	AddIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Delete releases key if present. A missing key is not an error. Shared
	// stores may skip keys the caller no longer owns.
	Delete(ctx context.Context, key string) error
}

// TextExtractor extracts plain text from a spooled upload.
type TextExtractor interface {
	Extract(ctx context.Context, path, fileType string) (string, error)
	Supports(fileType string) bool
}

// DocumentClassifier resolves accepted categories for extracted text.
type DocumentClassifier interface {
	Classify(text string) domain.ClassificationResult
}

// UnitOfWork opens an atomic persistence scope.
type UnitOfWork interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction groups writes that commit together or not at all.
// Rollback after Commit is a no-op.
type Transaction interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	CreateClassification(ctx context.Context, documentID string, cls domain.Classification) error
	CreateNotification(ctx context.Context, n *domain.Notification) error
	UpdateDocumentStatus(ctx context.Context, documentID string, status domain.DocumentStatus) error
	Commit() error
	Rollback() error
}

// DocumentRepository is the read side of persisted documents.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
}

// NotificationRepository reads notifications and flips their read flag.
type NotificationRepository interface {
	ListRecent(ctx context.Context, limit int) ([]domain.NotificationView, error)
	MarkRead(ctx context.Context, id string) error
}

// ObjectStorage stores original uploads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// SubmissionQueue carries asynchronous submissions to workers.
type SubmissionQueue interface {
	PublishSubmission(ctx context.Context, msg domain.SubmissionMessage) error
	SubscribeSubmissions(ctx context.Context, handler func(context.Context, domain.SubmissionMessage) error) error
}

// NotificationPublisher fans committed notifications out to other services.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n domain.Notification) error
}
