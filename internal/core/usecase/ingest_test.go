package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type queueFake struct {
	published []domain.SubmissionMessage
	err       error
}

func (f *queueFake) PublishSubmission(_ context.Context, msg domain.SubmissionMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *queueFake) SubscribeSubmissions(context.Context, func(context.Context, domain.SubmissionMessage) error) error {
	return nil
}

type processorFake struct {
	got  domain.Submission
	body string
	err  error
}

func (f *processorFake) Process(_ context.Context, sub domain.Submission) (*domain.ProcessedDocument, error) {
	f.got = sub
	raw, err := io.ReadAll(sub.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProcessedDocument{DocumentID: "doc-1"}, nil
}

func TestIngestSubmitSuccess(t *testing.T) {
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(storage, queue)

	receipt, err := uc.Submit(context.Background(), domain.Submission{
		ProcessingKey: "client-key",
		FileName:      "my transcript.pdf",
		FileType:      "pdf",
		Body:          strings.NewReader("pdf-bytes"),
		Uploader:      domain.Uploader{FirstName: "Ana", LastName: "Cruz"},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if receipt.Status != "queued" || receipt.ProcessingKey != "client-key" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected one published message, got %d", len(queue.published))
	}
	msg := queue.published[0]
	if msg.SubmissionID != receipt.SubmissionID || msg.ProcessingKey != "client-key" {
		t.Fatalf("message does not match receipt: %+v", msg)
	}
	if !strings.HasSuffix(msg.StorageKey, "_my_transcript.pdf") {
		t.Fatalf("unexpected storage key %q", msg.StorageKey)
	}
	if string(storage.objects[msg.StorageKey]) != "pdf-bytes" {
		t.Fatalf("expected upload to be stored under the message key")
	}
}

func TestIngestSubmitGeneratesProcessingKey(t *testing.T) {
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(newStorageFake(), queue)

	receipt, err := uc.Submit(context.Background(), domain.Submission{
		FileName: "a.txt",
		Body:     strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if receipt.ProcessingKey == "" || queue.published[0].ProcessingKey != receipt.ProcessingKey {
		t.Fatalf("expected generated processing key to be carried, got %q", receipt.ProcessingKey)
	}
}

func TestIngestSubmitQueueError(t *testing.T) {
	uc := NewIngestDocumentUseCase(newStorageFake(), &queueFake{err: errors.New("nats down")})

	_, err := uc.Submit(context.Background(), domain.Submission{FileName: "a.txt", Body: strings.NewReader("x")})
	if err == nil || !strings.Contains(err.Error(), "publish submission event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestIngestSubmitStorageError(t *testing.T) {
	storage := newStorageFake()
	storage.saveErr = errors.New("disk full")
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(storage, queue)

	if _, err := uc.Submit(context.Background(), domain.Submission{FileName: "a.txt", Body: strings.NewReader("x")}); err == nil {
		t.Fatalf("expected storage error")
	}
	if len(queue.published) != 0 {
		t.Fatalf("nothing should be queued when storage fails")
	}
}

func TestProcessSubmissionOpensStoredUpload(t *testing.T) {
	storage := newStorageFake()
	storage.objects["sub_a.txt"] = []byte("stored text")
	processor := &processorFake{}

	out, err := ProcessSubmission(context.Background(), storage, processor, domain.SubmissionMessage{
		ProcessingKey: "pk",
		StorageKey:    "sub_a.txt",
		FileName:      "a.txt",
	})
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if out.DocumentID != "doc-1" {
		t.Fatalf("unexpected result %+v", out)
	}
	if processor.body != "stored text" || processor.got.StorageKey != "sub_a.txt" || processor.got.ProcessingKey != "pk" {
		t.Fatalf("unexpected submission passed to processor: %+v", processor.got)
	}
}

func TestProcessSubmissionMissingObject(t *testing.T) {
	processor := &processorFake{}
	_, err := ProcessSubmission(context.Background(), newStorageFake(), processor, domain.SubmissionMessage{StorageKey: "gone"})
	if err == nil {
		t.Fatalf("expected open error")
	}
}

func TestProcessSubmissionDiscardsRejectedUpload(t *testing.T) {
	for _, kind := range []error{domain.ErrNoTextExtracted, domain.ErrUndeterminedType, domain.ErrBusy} {
		storage := newStorageFake()
		storage.objects["sub_scan.png"] = []byte("blank")
		processor := &processorFake{err: domain.WrapError(kind, "process document", errors.New("rejected"))}

		_, err := ProcessSubmission(context.Background(), storage, processor, domain.SubmissionMessage{StorageKey: "sub_scan.png"})
		if !domain.IsKind(err, kind) {
			t.Fatalf("expected %v, got %v", kind, err)
		}
		if len(storage.deleted) != 1 || storage.deleted[0] != "sub_scan.png" {
			t.Fatalf("%v: expected stored upload to be discarded, deleted %v", kind, storage.deleted)
		}
	}
}

func TestProcessSubmissionKeepsUploadOnInfrastructureFailure(t *testing.T) {
	storage := newStorageFake()
	storage.objects["sub_a.txt"] = []byte("stored text")
	processor := &processorFake{err: errors.New("commit failed")}

	if _, err := ProcessSubmission(context.Background(), storage, processor, domain.SubmissionMessage{StorageKey: "sub_a.txt"}); err == nil {
		t.Fatalf("expected processing error")
	}
	if len(storage.deleted) != 0 {
		t.Fatalf("upload must be kept for replay, deleted %v", storage.deleted)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"my file.pdf":      "my_file.pdf",
		"../../etc/passwd": "passwd",
		"résumé.docx":      "r_sum_.docx",
		"":                 "document.bin",
		"/":                "document.bin",
		"scan (1).png":     "scan__1_.png",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
