package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentSelect = `
SELECT d.id, d.file_name, d.file_type, d.storage_path, d.extracted_text, d.processed, d.status,
	d.uploader_first_name, d.uploader_last_name, d.uploader_email, d.purpose, d.description,
	d.uploaded_at, d.updated_at,
	c.category, c.confidence, c.classified_at
FROM documents d
LEFT JOIN classifications c ON c.document_id = d.id
`

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, documentSelect+`WHERE d.id = $1
ORDER BY c.id
`, id)
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	return &docs[0], nil
}

// List returns documents newest first. A category filter matches documents
// holding that category among their classifications; all of a matching
// document's classifications are returned.
func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("d.status = $%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, filter.Category.String())
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM classifications f WHERE f.document_id = d.id AND f.category = $%d)", len(args)))
	}

	query := documentSelect
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	query += "ORDER BY d.uploaded_at DESC, d.id, c.id\n"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// scanDocuments folds joined rows into documents, keeping row order.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var (
		docs  []domain.Document
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			doc          domain.Document
			status       string
			category     sql.NullString
			confidence   sql.NullFloat64
			classifiedAt sql.NullTime
		)
		err := rows.Scan(
			&doc.ID, &doc.FileName, &doc.FileType, &doc.StoragePath, &doc.ExtractedText, &doc.Processed, &status,
			&doc.Uploader.FirstName, &doc.Uploader.LastName, &doc.Uploader.Email, &doc.Purpose, &doc.Description,
			&doc.UploadedAt, &doc.UpdatedAt,
			&category, &confidence, &classifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)

		pos, seen := index[doc.ID]
		if !seen {
			pos = len(docs)
			index[doc.ID] = pos
			docs = append(docs, doc)
		}
		if !category.Valid {
			continue
		}
		parsed, err := domain.ParseCategory(category.String)
		if err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		docs[pos].Classifications = append(docs[pos].Classifications, domain.Classification{
			Category:     parsed,
			Confidence:   confidence.Float64,
			ClassifiedAt: classifiedAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
