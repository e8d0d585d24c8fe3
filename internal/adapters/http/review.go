package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Classifications []string             `json:"classifications"`
	Scores          []domain.ScoreResult `json:"scores"`
}

func (rt *Router) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := rt.services.Reader.ListNotifications(r.Context())
	if err != nil {
		rt.writeError(w, r, "list notifications", err)
		return
	}
	if notifications == nil {
		notifications = []domain.NotificationView{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (rt *Router) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.Reader.MarkNotificationRead(r.Context(), r.PathValue("id")); err != nil {
		rt.writeError(w, r, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (rt *Router) classifyText(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, r, "classify text", domain.WrapError(domain.ErrInvalidInput, "decode classify", errors.New("invalid json")))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		rt.writeError(w, r, "classify text", domain.WrapError(domain.ErrInvalidInput, "classify text", errors.New("text is required")))
		return
	}

	writeJSON(w, http.StatusOK, classifyResponse{
		Classifications: rt.services.Classifier.Classify(req.Text).Strings(),
		Scores:          rt.services.Classifier.Scores(req.Text),
	})
}
