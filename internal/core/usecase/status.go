package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type StatusTransitionUseCase struct {
	locks    *LockManager
	lockOpts LockOptions
	docs     ports.DocumentRepository
	uow      ports.UnitOfWork
	notifier ports.NotificationPublisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewStatusTransitionUseCase(
	locks *LockManager,
	docs ports.DocumentRepository,
	uow ports.UnitOfWork,
	notifier ports.NotificationPublisher,
	logger *slog.Logger,
) *StatusTransitionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusTransitionUseCase{
		locks:    locks,
		lockOpts: DefaultDocumentLockOptions(),
		docs:     docs,
		uow:      uow,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Transition validates and applies a status change under the document lock.
// Review outcomes produce exactly one status_change notification.
func (uc *StatusTransitionUseCase) Transition(ctx context.Context, documentID, newStatus string) (*domain.Document, error) {
	lockKey := documentLockKey(documentID)
	if !uc.locks.Acquire(ctx, lockKey, uc.lockOpts) {
		return nil, domain.WrapError(domain.ErrBusy, "acquire document lock", fmt.Errorf("document %s is being processed", documentID))
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		uc.locks.Release(releaseCtx, lockKey)
	}()

	status, err := domain.ParseDocumentStatus(newStatus)
	if err != nil {
		return nil, err
	}

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	var notification *domain.Notification
	if phrase, ok := domain.StatusChangeMessage(status); ok {
		notification = &domain.Notification{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Type:       domain.NotificationStatusChange,
			Message:    fmt.Sprintf("Document '%s' %s", doc.FileName, phrase),
			CreatedAt:  uc.now(),
		}
	}

	if err := uc.apply(ctx, doc.ID, status, notification); err != nil {
		return nil, err
	}

	doc.Status = status
	doc.UpdatedAt = uc.now()
	publishNotification(ctx, uc.notifier, uc.logger, notification)

	uc.logger.Info("document_status_changed", "document_id", doc.ID, "status", string(status))
	return doc, nil
}

func (uc *StatusTransitionUseCase) apply(
	ctx context.Context,
	documentID string,
	status domain.DocumentStatus,
	notification *domain.Notification,
) (err error) {
	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			uc.logger.Error("rollback_failed", "document_id", documentID, "error", rbErr)
		}
	}()

	if err := tx.UpdateDocumentStatus(ctx, documentID, status); err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if notification != nil {
		if err := tx.CreateNotification(ctx, notification); err != nil {
			return fmt.Errorf("create status notification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}
