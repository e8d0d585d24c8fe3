package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

const submissionQueued = "queued"

type IngestDocumentUseCase struct {
	storage ports.ObjectStorage
	queue   ports.SubmissionQueue
}

func NewIngestDocumentUseCase(storage ports.ObjectStorage, queue ports.SubmissionQueue) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		storage: storage,
		queue:   queue,
	}
}

// Submit stores the upload and queues it for a worker. The processing key is
// carried in the message so redeliveries serialize on the same lock.
func (uc *IngestDocumentUseCase) Submit(ctx context.Context, sub domain.Submission) (*domain.SubmissionReceipt, error) {
	if sub.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document", errors.New("upload body is required"))
	}

	id := uuid.NewString()
	processingKey := strings.TrimSpace(sub.ProcessingKey)
	if processingKey == "" {
		processingKey = uuid.NewString()
	}
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(sub.FileName))

	if err := uc.storage.Save(ctx, storageKey, sub.Body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	msg := domain.SubmissionMessage{
		SubmissionID:  id,
		ProcessingKey: processingKey,
		StorageKey:    storageKey,
		FileName:      sub.FileName,
		FileType:      sub.FileType,
		Uploader:      sub.Uploader,
		Purpose:       sub.Purpose,
		Description:   sub.Description,
		SubmittedAt:   time.Now().UTC(),
	}
	if err := uc.queue.PublishSubmission(ctx, msg); err != nil {
		return nil, fmt.Errorf("publish submission event: %w", err)
	}

	return &domain.SubmissionReceipt{
		SubmissionID:  id,
		ProcessingKey: processingKey,
		FileName:      sub.FileName,
		Status:        submissionQueued,
	}, nil
}

// ProcessSubmission is the worker-side handler for a queued submission.
// Submissions are delivered once, so a rejected submission's stored upload is
// discarded. Infrastructure failures keep it for manual replay.
func ProcessSubmission(
	ctx context.Context,
	storage ports.ObjectStorage,
	processor ports.DocumentProcessor,
	msg domain.SubmissionMessage,
) (*domain.ProcessedDocument, error) {
	body, err := storage.Open(ctx, msg.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored submission: %w", err)
	}

	result, err := processor.Process(ctx, domain.Submission{
		ProcessingKey: msg.ProcessingKey,
		FileName:      msg.FileName,
		FileType:      msg.FileType,
		Body:          body,
		Uploader:      msg.Uploader,
		Purpose:       msg.Purpose,
		Description:   msg.Description,
		StorageKey:    msg.StorageKey,
	})
	_ = body.Close()
	if err != nil && isRejectedSubmission(err) {
		if delErr := storage.Delete(ctx, msg.StorageKey); delErr != nil {
			err = errors.Join(err, fmt.Errorf("discard stored submission: %w", delErr))
		}
	}
	return result, err
}

func isRejectedSubmission(err error) bool {
	for _, kind := range []error{
		domain.ErrBusy,
		domain.ErrInvalidInput,
		domain.ErrExtractionFailed,
		domain.ErrNoTextExtracted,
		domain.ErrUndeterminedType,
	} {
		if domain.IsKind(err, kind) {
			return true
		}
	}
	return false
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "document.bin"
	}
	return base
}
