package domain

import "time"

type NotificationType string

const (
	NotificationUpload       NotificationType = "upload"
	NotificationStatusChange NotificationType = "status_change"
)

type Notification struct {
	ID         string           `json:"id"`
	DocumentID string           `json:"document_id"`
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	Read       bool             `json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NotificationView joins a notification with the document it refers to.
type NotificationView struct {
	Notification
	DocumentFileName string         `json:"document_file_name"`
	DocumentStatus   DocumentStatus `json:"document_status"`
}
