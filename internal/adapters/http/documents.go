package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const multipartMemoryLimit = 8 << 20

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	ID       string                `json:"id"`
	FileName string                `json:"file_name"`
	Status   domain.DocumentStatus `json:"status"`
}

// documentSummary is the list form of a document. Extracted text is only
// returned by the single document endpoint.
type documentSummary struct {
	ID              string                `json:"id"`
	FileName        string                `json:"file_name"`
	FileType        string                `json:"file_type"`
	Status          domain.DocumentStatus `json:"status"`
	Uploader        domain.Uploader       `json:"uploader"`
	Purpose         string                `json:"purpose,omitempty"`
	Classifications []string              `json:"classifications"`
	UploadedAt      time.Time             `json:"uploaded_at"`
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	sub, cleanup, err := rt.readSubmission(w, r)
	if err != nil {
		rt.writeUploadError(w, r, "process document", err)
		return
	}
	defer cleanup()

	start := time.Now()
	result, err := rt.services.Processor.Process(r.Context(), sub)
	if rt.metrics != nil {
		var categories []string
		if result != nil {
			categories = result.Classifications
		}
		rt.metrics.RecordProcess(serviceName, categories, time.Since(start), err)
	}
	if err != nil {
		rt.writeError(w, r, "process document", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	if rt.services.Submitter == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "asynchronous submission is not configured"})
		return
	}
	sub, cleanup, err := rt.readSubmission(w, r)
	if err != nil {
		rt.writeUploadError(w, r, "submit document", err)
		return
	}
	defer cleanup()

	receipt, err := rt.services.Submitter.Submit(r.Context(), sub)
	if err != nil {
		rt.writeError(w, r, "submit document", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSubmission(serviceName)
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

// readSubmission parses the multipart upload. The returned cleanup closes the
// file part and removes spooled form data.
func (rt *Router) readSubmission(w http.ResponseWriter, r *http.Request) (domain.Submission, func(), error) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return domain.Submission{}, nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return domain.Submission{}, nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))
	}
	cleanup := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}

	field := func(name string) string {
		return strings.TrimSpace(r.FormValue(name))
	}
	return domain.Submission{
		ProcessingKey: field("processing_key"),
		FileName:      header.Filename,
		FileType:      field("file_type"),
		Body:          file,
		Uploader: domain.Uploader{
			FirstName: field("first_name"),
			LastName:  field("last_name"),
			Email:     field("email"),
		},
		Purpose:     field("purpose"),
		Description: field("description"),
	}, cleanup, nil
}

func (rt *Router) writeUploadError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
		})
	case domain.IsKind(err, domain.ErrInvalidInput):
		rt.writeError(w, r, operation, err)
	default:
		rt.writeError(w, r, operation, domain.WrapError(domain.ErrInvalidInput, operation, errors.New("request must be multipart/form-data")))
	}
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDocumentFilter(r)
	if err != nil {
		rt.writeError(w, r, "list documents", err)
		return
	}
	docs, err := rt.services.Reader.ListDocuments(r.Context(), filter)
	if err != nil {
		rt.writeError(w, r, "list documents", err)
		return
	}

	out := make([]documentSummary, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		out = append(out, documentSummary{
			ID:              doc.ID,
			FileName:        doc.FileName,
			FileType:        doc.FileType,
			Status:          doc.Status,
			Uploader:        doc.Uploader,
			Purpose:         doc.Purpose,
			Classifications: doc.Categories(),
			UploadedAt:      doc.UploadedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseDocumentFilter(r *http.Request) (domain.DocumentFilter, error) {
	var filter domain.DocumentFilter
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("classification")); raw != "" {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			return filter, domain.WrapError(domain.ErrInvalidInput, "parse filter", err)
		}
		filter.Category = &category
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := domain.ParseDocumentStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	return filter, nil
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.services.Reader.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, body, err := rt.services.Reader.OpenDocumentFile(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, "download document", err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension("." + doc.FileType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		rt.logger.Warn("document_download_interrupted",
			"request_id", requestIDFromContext(r.Context()),
			"document_id", doc.ID,
			"error", err,
		)
	}
}

func (rt *Router) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, r, "update status", domain.WrapError(domain.ErrInvalidInput, "decode status", errors.New("invalid json")))
		return
	}

	doc, err := rt.services.Statuses.Transition(r.Context(), r.PathValue("id"), req.Status)
	if rt.metrics != nil {
		label := strings.TrimSpace(req.Status)
		if _, perr := domain.ParseDocumentStatus(label); perr != nil {
			label = "invalid"
		}
		rt.metrics.RecordTransition(serviceName, label, err)
	}
	if err != nil {
		rt.writeError(w, r, "update status", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ID: doc.ID, FileName: doc.FileName, Status: doc.Status})
}
