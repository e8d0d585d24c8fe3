package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) ListRecent(ctx context.Context, limit int) ([]domain.NotificationView, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT n.id, n.document_id, n.type, n.message, n.is_read, n.created_at, d.file_name, d.status
FROM notifications n
JOIN documents d ON d.id = n.document_id
ORDER BY n.created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.NotificationView, 0, limit)
	for rows.Next() {
		var (
			item   domain.NotificationView
			kind   string
			status string
		)
		if err := rows.Scan(
			&item.ID, &item.DocumentID, &kind, &item.Message, &item.Read, &item.CreatedAt,
			&item.DocumentFileName, &status,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		item.Type = domain.NotificationType(kind)
		item.DocumentStatus = domain.DocumentStatus(status)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET is_read = TRUE
WHERE id = $1
`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotificationNotFound, "mark notification read", fmt.Errorf("id=%s", id))
	}
	return nil
}
