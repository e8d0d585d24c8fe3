package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type UnitOfWork struct {
	db *sql.DB
}

func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Begin(ctx context.Context) (ports.Transaction, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps one sql.Tx. Rollback after Commit is a no-op.
type Tx struct {
	tx   *sql.Tx
	done bool
}

func (t *Tx) CreateDocument(ctx context.Context, doc *domain.Document) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO documents (
	id, file_name, file_type, storage_path, extracted_text, processed, status,
	uploader_first_name, uploader_last_name, uploader_email, purpose, description, uploaded_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		doc.ID, doc.FileName, doc.FileType, doc.StoragePath, doc.ExtractedText, doc.Processed, string(doc.Status),
		doc.Uploader.FirstName, doc.Uploader.LastName, doc.Uploader.Email, doc.Purpose, doc.Description,
		doc.UploadedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (t *Tx) CreateClassification(ctx context.Context, documentID string, cls domain.Classification) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO classifications (document_id, category, confidence, classified_at)
VALUES ($1,$2,$3,$4)
`, documentID, cls.Category.String(), cls.Confidence, cls.ClassifiedAt)
	if err != nil {
		return fmt.Errorf("insert classification: %w", err)
	}
	return nil
}

func (t *Tx) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO notifications (id, document_id, type, message, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, n.ID, n.DocumentID, string(n.Type), n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (t *Tx) UpdateDocumentStatus(ctx context.Context, documentID string, status domain.DocumentStatus) error {
	result, err := t.tx.ExecContext(ctx, `
UPDATE documents
SET status = $2, updated_at = $3
WHERE id = $1
`, documentID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", fmt.Errorf("id=%s", documentID))
	}
	return nil
}

func (t *Tx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}
