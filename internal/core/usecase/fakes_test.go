package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/ports"
)

type lockStoreFake struct {
	mu        sync.Mutex
	held      map[string]time.Duration
	addErr    error
	deleteErr error
	attempts  int
	deletes   []string
}

func newLockStoreFake() *lockStoreFake {
	return &lockStoreFake{held: map[string]time.Duration{}}
}

func (f *lockStoreFake) AddIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.addErr != nil {
		return false, f.addErr
	}
	if _, ok := f.held[key]; ok {
		return false, nil
	}
	f.held[key] = ttl
	return true, nil
}

func (f *lockStoreFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.held, key)
	return nil
}

func (f *lockStoreFake) isHeld(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.held[key]
	return ok
}

func (f *lockStoreFake) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

type extractorFake struct {
	mu      sync.Mutex
	text    string
	err     error
	started chan struct{}
	release chan struct{}
	paths   []string
}

func (f *extractorFake) Supports(fileType string) bool {
	switch fileType {
	case "txt", "pdf", "docx":
		return true
	default:
		return false
	}
}

func (f *extractorFake) Extract(_ context.Context, path, _ string) (string, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type classifierFake struct {
	result domain.ClassificationResult
}

func (f classifierFake) Classify(string) domain.ClassificationResult {
	return f.result
}

// memoryStoreFake is an in-memory ports.UnitOfWork + read repositories whose
// transactions buffer writes until Commit.
type memoryStoreFake struct {
	mu            sync.Mutex
	documents     map[string]*domain.Document
	notifications []domain.Notification
	beginErr      error
	failOn        string
	commitErr     error
	rollbacks     int
	commits       int
}

func newMemoryStoreFake() *memoryStoreFake {
	return &memoryStoreFake{documents: map[string]*domain.Document{}}
}

func (s *memoryStoreFake) Begin(context.Context) (ports.Transaction, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &txFake{store: s}, nil
}

func (s *memoryStoreFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (s *memoryStoreFake) List(context.Context, domain.DocumentFilter) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		out = append(out, *doc)
	}
	return out, nil
}

func (s *memoryStoreFake) documentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}

func (s *memoryStoreFake) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

type txFake struct {
	store         *memoryStoreFake
	documents     []*domain.Document
	classified    map[string][]domain.Classification
	statuses      map[string]domain.DocumentStatus
	notifications []domain.Notification
	done          bool
}

func (t *txFake) fail(op string) error {
	if t.store.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (t *txFake) CreateDocument(_ context.Context, doc *domain.Document) error {
	if err := t.fail("document"); err != nil {
		return err
	}
	copyDoc := *doc
	copyDoc.Classifications = nil
	t.documents = append(t.documents, &copyDoc)
	return nil
}

func (t *txFake) CreateClassification(_ context.Context, documentID string, cls domain.Classification) error {
	if err := t.fail("classification"); err != nil {
		return err
	}
	if t.classified == nil {
		t.classified = map[string][]domain.Classification{}
	}
	t.classified[documentID] = append(t.classified[documentID], cls)
	return nil
}

func (t *txFake) CreateNotification(_ context.Context, n *domain.Notification) error {
	if err := t.fail("notification"); err != nil {
		return err
	}
	t.notifications = append(t.notifications, *n)
	return nil
}

func (t *txFake) UpdateDocumentStatus(_ context.Context, documentID string, status domain.DocumentStatus) error {
	if err := t.fail("status"); err != nil {
		return err
	}
	t.store.mu.Lock()
	_, ok := t.store.documents[documentID]
	t.store.mu.Unlock()
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", errors.New(documentID))
	}
	if t.statuses == nil {
		t.statuses = map[string]domain.DocumentStatus{}
	}
	t.statuses[documentID] = status
	return nil
}

func (t *txFake) Commit() error {
	if t.store.commitErr != nil {
		return t.store.commitErr
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, doc := range t.documents {
		doc.Classifications = t.classified[doc.ID]
		t.store.documents[doc.ID] = doc
	}
	for id, status := range t.statuses {
		t.store.documents[id].Status = status
	}
	t.store.notifications = append(t.store.notifications, t.notifications...)
	t.store.commits++
	t.done = true
	return nil
}

func (t *txFake) Rollback() error {
	if t.done {
		return nil
	}
	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	t.done = true
	return nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	deleted []string
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *storageFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type notifierFake struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (f *notifierFake) PublishNotification(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}
