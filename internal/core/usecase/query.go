package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

const recentNotificationsLimit = 50

type QueryUseCase struct {
	docs          ports.DocumentRepository
	notifications ports.NotificationRepository
	storage       ports.ObjectStorage
}

func NewQueryUseCase(
	docs ports.DocumentRepository,
	notifications ports.NotificationRepository,
	storage ports.ObjectStorage,
) *QueryUseCase {
	return &QueryUseCase{
		docs:          docs,
		notifications: notifications,
		storage:       storage,
	}
}

func (uc *QueryUseCase) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("document id is required"))
	}
	return uc.docs.GetByID(ctx, id)
}

// ListDocuments returns documents newest first, optionally narrowed by
// category and status.
func (uc *QueryUseCase) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	docs, err := uc.docs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (uc *QueryUseCase) OpenDocumentFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := uc.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.StoragePath == "" {
		return nil, nil, domain.WrapError(domain.ErrDocumentNotFound, "open document file", errors.New("no file available"))
	}
	body, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return doc, body, nil
}

func (uc *QueryUseCase) ListNotifications(ctx context.Context) ([]domain.NotificationView, error) {
	items, err := uc.notifications.ListRecent(ctx, recentNotificationsLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

func (uc *QueryUseCase) MarkNotificationRead(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "mark notification read", errors.New("notification id is required"))
	}
	return uc.notifications.MarkRead(ctx, id)
}
