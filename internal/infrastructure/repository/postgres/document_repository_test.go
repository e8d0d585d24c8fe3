package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var documentColumns = []string{
	"id", "file_name", "file_type", "storage_path", "extracted_text", "processed", "status",
	"uploader_first_name", "uploader_last_name", "uploader_email", "purpose", "description",
	"uploaded_at", "updated_at",
	"category", "confidence", "classified_at",
}

func documentRow(rows *sqlmock.Rows, id string, uploaded time.Time, category interface{}) *sqlmock.Rows {
	var confidence, classifiedAt interface{}
	if category != nil {
		confidence = 1.0
		classifiedAt = uploaded
	}
	return rows.AddRow(
		id, id+".pdf", "pdf", id+"_file.pdf", "text", true, "pending",
		"Ana", "Cruz", "ana@example.com", "Employment", "",
		uploaded, uploaded,
		category, confidence, classifiedAt,
	)
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	mock.ExpectQuery("SELECT d.id, d.file_name").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(documentColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDFoldsClassifications(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(documentColumns)
	documentRow(rows, "doc-1", uploaded, "authenticated_copy")
	documentRow(rows, "doc-1", uploaded, "academic_certificate")
	mock.ExpectQuery("SELECT d.id, d.file_name").WithArgs("doc-1").WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Uploader.DisplayName() != "Ana Cruz" || doc.Status != domain.StatusPending {
		t.Fatalf("unexpected document %+v", doc)
	}
	got := doc.Categories()
	if len(got) != 2 || got[0] != "authenticated_copy" || got[1] != "academic_certificate" {
		t.Fatalf("unexpected categories %v", got)
	}
}

func TestListAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(documentColumns)
	documentRow(rows, "doc-2", uploaded.Add(time.Hour), "academic_transcript")
	documentRow(rows, "doc-1", uploaded, "academic_transcript")
	documentRow(rows, "doc-1", uploaded, "authenticated_copy")

	mock.ExpectQuery(`WHERE d.status = \$1 AND EXISTS \(SELECT 1 FROM classifications f WHERE f.document_id = d.id AND f.category = \$2\)`).
		WithArgs("approved", "academic_transcript").
		WillReturnRows(rows)

	status := domain.StatusApproved
	category := domain.CategoryAcademicTranscript
	docs, err := repo.List(context.Background(), domain.DocumentFilter{Status: &status, Category: &category})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-2" || docs[1].ID != "doc-1" {
		t.Fatalf("unexpected documents %+v", docs)
	}
	if len(docs[1].Classifications) != 2 {
		t.Fatalf("expected all classifications of a matching document, got %d", len(docs[1].Classifications))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListKeepsDocumentsWithoutClassifications(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDocumentRepository(db)

	rows := sqlmock.NewRows(documentColumns)
	documentRow(rows, "doc-1", time.Now().UTC(), nil)
	mock.ExpectQuery("ORDER BY d.uploaded_at DESC").WillReturnRows(rows)

	docs, err := repo.List(context.Background(), domain.DocumentFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 || len(docs[0].Classifications) != 0 {
		t.Fatalf("unexpected documents %+v", docs)
	}
}

func TestUnitOfWorkCommitsAllWrites(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUnitOfWork(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO classifications").
		WithArgs("doc-1", "academic_transcript", 1.0, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("n-1", "doc-1", "upload", "New document", false, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := uow.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := tx.CreateDocument(ctx, &domain.Document{ID: "doc-1", Status: domain.StatusPending, UploadedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	if err := tx.CreateClassification(ctx, "doc-1", domain.Classification{Category: domain.CategoryAcademicTranscript, Confidence: 1.0, ClassifiedAt: now}); err != nil {
		t.Fatalf("CreateClassification() error = %v", err)
	}
	if err := tx.CreateNotification(ctx, &domain.Notification{ID: "n-1", DocumentID: "doc-1", Type: domain.NotificationUpload, Message: "New document", CreatedAt: now}); err != nil {
		t.Fatalf("CreateNotification() error = %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() after Commit should be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUnitOfWorkUpdateStatusNotFoundRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUnitOfWork(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", "approved", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := uow.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	err = tx.UpdateDocumentStatus(ctx, "missing", domain.StatusApproved)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkReadReturnsDomainNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}

func TestListRecentJoinsDocument(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM notifications n").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "type", "message", "is_read", "created_at", "file_name", "status"}).
			AddRow("n-2", "doc-1", "status_change", "Document 'a.pdf' has been approved", false, now, "a.pdf", "approved").
			AddRow("n-1", "doc-1", "upload", "New document 'a.pdf' uploaded by Ana Cruz", true, now.Add(-time.Hour), "a.pdf", "approved"))

	items, err := repo.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(items))
	}
	if items[0].Type != domain.NotificationStatusChange || items[0].DocumentFileName != "a.pdf" || items[0].DocumentStatus != domain.StatusApproved {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if !items[1].Read {
		t.Fatalf("expected read flag to be scanned")
	}
}
