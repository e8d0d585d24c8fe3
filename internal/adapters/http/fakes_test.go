package httpadapter

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/domain"
)

type processorFake struct {
	mu     sync.Mutex
	result *domain.ProcessedDocument
	err    error
	got    []domain.Submission
	bodies []string
}

func (f *processorFake) Process(_ context.Context, sub domain.Submission) (*domain.ProcessedDocument, error) {
	body, _ := io.ReadAll(sub.Body)
	f.mu.Lock()
	f.got = append(f.got, sub)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type submitterFake struct {
	receipt *domain.SubmissionReceipt
	err     error
	got     []domain.Submission
}

func (f *submitterFake) Submit(_ context.Context, sub domain.Submission) (*domain.SubmissionReceipt, error) {
	f.got = append(f.got, sub)
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

type transitionerFake struct {
	doc *domain.Document
	err error

	gotID     string
	gotStatus string
}

func (f *transitionerFake) Transition(_ context.Context, documentID, newStatus string) (*domain.Document, error) {
	f.gotID = documentID
	f.gotStatus = newStatus
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type readerFake struct {
	docs          map[string]*domain.Document
	files         map[string]string
	list          []domain.Document
	listErr       error
	notifications []domain.NotificationView
	markErr       error

	gotFilter domain.DocumentFilter
	marked    []string
}

func (f *readerFake) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", io.EOF)
	}
	return doc, nil
}

func (f *readerFake) ListDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.gotFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *readerFake) OpenDocumentFile(ctx context.Context, id string) (*domain.Document, io.ReadCloser, error) {
	doc, err := f.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, io.NopCloser(strings.NewReader(f.files[id])), nil
}

func (f *readerFake) ListNotifications(context.Context) ([]domain.NotificationView, error) {
	return f.notifications, nil
}

func (f *readerFake) MarkNotificationRead(_ context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type classifierFake struct {
	result domain.ClassificationResult
	scores []domain.ScoreResult
}

func (f classifierFake) Classify(string) domain.ClassificationResult { return f.result }

func (f classifierFake) Scores(string) []domain.ScoreResult { return f.scores }

type routerFixture struct {
	processor  *processorFake
	submitter  *submitterFake
	statuses   *transitionerFake
	reader     *readerFake
	classifier classifierFake
}

func newRouterFixture() *routerFixture {
	return &routerFixture{
		processor: &processorFake{},
		submitter: &submitterFake{},
		statuses:  &transitionerFake{},
		reader: &readerFake{
			docs:  map[string]*domain.Document{},
			files: map[string]string{},
		},
	}
}

func (f *routerFixture) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, Services{
		Processor:  f.processor,
		Submitter:  f.submitter,
		Statuses:   f.statuses,
		Reader:     f.reader,
		Classifier: f.classifier,
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Handler()
}

func multipartUpload(t *testing.T, path, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
