package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

const (
	processedMessage = "Document processed and classified successfully"
	cleanupTimeout   = 5 * time.Second
)

type ProcessDocumentUseCase struct {
	locks      *LockManager
	lockOpts   LockOptions
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	uow        ports.UnitOfWork
	storage    ports.ObjectStorage
	notifier   ports.NotificationPublisher
	logger     *slog.Logger

	tempDir string
	newKey  func() string
	now     func() time.Time
}

type ProcessOption func(*ProcessDocumentUseCase)

func WithProcessingLockOptions(opts LockOptions) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.lockOpts = opts }
}

func WithNotificationPublisher(notifier ports.NotificationPublisher) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.notifier = notifier }
}

func WithTempDir(dir string) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.tempDir = dir }
}

func WithProcessingKeyGenerator(fn func() string) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.newKey = fn }
}

func WithProcessLogger(logger *slog.Logger) ProcessOption {
	return func(uc *ProcessDocumentUseCase) { uc.logger = logger }
}

func NewProcessDocumentUseCase(
	locks *LockManager,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	uow ports.UnitOfWork,
	storage ports.ObjectStorage,
	opts ...ProcessOption,
) *ProcessDocumentUseCase {
	uc := &ProcessDocumentUseCase{
		locks:      locks,
		lockOpts:   DefaultProcessingLockOptions(),
		extractor:  extractor,
		classifier: classifier,
		uow:        uow,
		storage:    storage,
		logger:     slog.Default(),
		newKey:     uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Process runs extract, classify and persist under the submission's processing
// lock. The lock and the spooled upload are released on every exit path.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, sub domain.Submission) (*domain.ProcessedDocument, error) {
	if sub.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", errors.New("upload body is required"))
	}

	processingKey := strings.TrimSpace(sub.ProcessingKey)
	if processingKey == "" {
		processingKey = uc.newKey()
	}
	lockKey := processingLockKey(processingKey)
	if !uc.locks.Acquire(ctx, lockKey, uc.lockOpts) {
		return nil, domain.WrapError(domain.ErrBusy, "acquire processing lock", fmt.Errorf("processing key %s is held", processingKey))
	}
	defer uc.releaseLock(ctx, lockKey)

	fileType, err := uc.resolveFileType(sub)
	if err != nil {
		return nil, err
	}

	spoolPath, cleanup, err := uc.spool(sub.Body, fileType)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	text, err := uc.extractText(ctx, spoolPath, fileType)
	if err != nil {
		return nil, err
	}

	result := uc.classifier.Classify(text)
	if result.IsUnknown() {
		return nil, domain.WrapError(domain.ErrUndeterminedType, "classify document", errors.New("no category qualified"))
	}

	doc, notification, err := uc.persist(ctx, sub, fileType, spoolPath, text, result)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, notification)

	uc.logger.Info("document_processed",
		"document_id", doc.ID,
		"processing_key", processingKey,
		"file_type", fileType,
		"classifications", result.Strings(),
	)

	return &domain.ProcessedDocument{
		DocumentID:      doc.ID,
		Classifications: result.Strings(),
		ExtractedText:   domain.Excerpt(text),
		FileType:        fileType,
		Message:         processedMessage,
	}, nil
}

func (uc *ProcessDocumentUseCase) resolveFileType(sub domain.Submission) (string, error) {
	fileType := normalizeFileType(sub.FileType)
	if fileType == "" {
		fileType = normalizeFileType(filepath.Ext(sub.FileName))
	}
	if fileType == "" || !uc.extractor.Supports(fileType) {
		return "", domain.WrapError(domain.ErrExtractionFailed, "resolve file type", fmt.Errorf("unsupported file type %q", fileType))
	}
	return fileType, nil
}

func normalizeFileType(raw string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), ".")
}

// spool copies the upload into a temporary file. The returned cleanup is always
// non-nil and removes whatever was created.
func (uc *ProcessDocumentUseCase) spool(body io.Reader, fileType string) (string, func(), error) {
	f, err := os.CreateTemp(uc.tempDir, "upload-*."+fileType)
	if err != nil {
		return "", func() {}, err
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			uc.logger.Error("temp_cleanup_failed", "path", path, "error", err)
		}
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return "", cleanup, err
	}
	if err := f.Close(); err != nil {
		return "", cleanup, err
	}
	return path, cleanup, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, path, fileType string) (string, error) {
	text, err := uc.extractor.Extract(ctx, path, fileType)
	if err != nil {
		if domain.IsKind(err, domain.ErrExtractionFailed) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrExtractionFailed, "extract text", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrNoTextExtracted, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) persist(
	ctx context.Context,
	sub domain.Submission,
	fileType, spoolPath, text string,
	result domain.ClassificationResult,
) (*domain.Document, *domain.Notification, error) {
	now := uc.now()
	docID := uuid.NewString()

	storageKey, stored, err := uc.storeOriginal(ctx, sub, docID, spoolPath)
	if err != nil {
		return nil, nil, err
	}

	doc := &domain.Document{
		ID:            docID,
		FileName:      sub.FileName,
		FileType:      fileType,
		StoragePath:   storageKey,
		ExtractedText: text,
		Processed:     true,
		Status:        domain.StatusPending,
		Uploader:      sub.Uploader,
		Purpose:       sub.Purpose,
		Description:   sub.Description,
		UploadedAt:    now,
		UpdatedAt:     now,
	}
	for _, category := range result {
		doc.Classifications = append(doc.Classifications, domain.Classification{
			Category:     category,
			Confidence:   domain.DefaultClassificationConfidence,
			ClassifiedAt: now,
		})
	}
	notification := &domain.Notification{
		ID:         uuid.NewString(),
		DocumentID: docID,
		Type:       domain.NotificationUpload,
		Message:    fmt.Sprintf("New document '%s' uploaded by %s", doc.FileName, doc.Uploader.DisplayName()),
		CreatedAt:  now,
	}

	if err := uc.commit(ctx, doc, notification); err != nil {
		if stored {
			uc.discardStored(ctx, storageKey)
		}
		return nil, nil, err
	}
	return doc, notification, nil
}

func (uc *ProcessDocumentUseCase) storeOriginal(ctx context.Context, sub domain.Submission, docID, spoolPath string) (string, bool, error) {
	if sub.StorageKey != "" {
		return sub.StorageKey, false, nil
	}

	key := fmt.Sprintf("%s_%s", docID, sanitizeFilename(sub.FileName))
	f, err := os.Open(spoolPath)
	if err != nil {
		return "", false, fmt.Errorf("reopen spooled upload: %w", err)
	}
	defer f.Close()

	if err := uc.storage.Save(ctx, key, f); err != nil {
		return "", false, fmt.Errorf("save to object storage: %w", err)
	}
	return key, true, nil
}

func (uc *ProcessDocumentUseCase) commit(ctx context.Context, doc *domain.Document, notification *domain.Notification) (err error) {
	tx, err := uc.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			uc.logger.Error("rollback_failed", "document_id", doc.ID, "error", rbErr)
		}
	}()

	if err := tx.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	for _, cls := range doc.Classifications {
		if err := tx.CreateClassification(ctx, doc.ID, cls); err != nil {
			return fmt.Errorf("create classification %s: %w", cls.Category, err)
		}
	}
	if err := tx.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("create upload notification: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) discardStored(ctx context.Context, key string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := uc.storage.Delete(cleanupCtx, key); err != nil {
		uc.logger.Error("stored_upload_cleanup_failed", "storage_key", key, "error", err)
	}
}

func (uc *ProcessDocumentUseCase) releaseLock(ctx context.Context, key string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	uc.locks.Release(releaseCtx, key)
}

func (uc *ProcessDocumentUseCase) publish(ctx context.Context, n *domain.Notification) {
	publishNotification(ctx, uc.notifier, uc.logger, n)
}

func publishNotification(ctx context.Context, notifier ports.NotificationPublisher, logger *slog.Logger, n *domain.Notification) {
	if notifier == nil || n == nil {
		return
	}
	if err := notifier.PublishNotification(ctx, *n); err != nil {
		logger.Warn("notification_publish_failed",
			"notification_id", n.ID,
			"document_id", n.DocumentID,
			"error", err,
		)
	}
}
