package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/document-intake/internal/core/ports"
)

const (
	processingLockPrefix = "processing:"
	documentLockPrefix   = "document:"
)

type LockOptions struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultProcessingLockOptions() LockOptions {
	return LockOptions{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

func DefaultDocumentLockOptions() LockOptions {
	return LockOptions{
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
	}
}

func (o LockOptions) normalize() LockOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 1
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

func processingLockKey(processingKey string) string {
	return processingLockPrefix + processingKey
}

func documentLockKey(documentID string) string {
	return documentLockPrefix + documentID
}

// LockManager acquires and releases named, expiring advisory locks.
type LockManager struct {
	store  ports.LockStore
	logger *slog.Logger
}

func NewLockManager(store ports.LockStore, logger *slog.Logger) *LockManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockManager{store: store, logger: logger}
}

// Acquire makes up to MaxRetries create-if-absent attempts with a fixed
// RetryDelay between them. Store errors count as failed attempts. There is no
// delay after the final attempt, so a key held throughout fails after
// (MaxRetries-1)*RetryDelay. The held key expires after Timeout even if it is
// never released.
func (m *LockManager) Acquire(ctx context.Context, key string, opts LockOptions) bool {
	opts = opts.normalize()

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		acquired, err := m.store.AddIfAbsent(ctx, key, opts.Timeout)
		if err != nil {
			m.logger.Warn("lock_attempt_failed",
				"key", key,
				"attempt", attempt,
				"max_attempts", opts.MaxRetries,
				"error", err,
			)
		}
		if err == nil && acquired {
			return true
		}
		if attempt == opts.MaxRetries {
			break
		}
		if !wait(ctx, opts.RetryDelay) {
			return false
		}
	}

	m.logger.Info("lock_unavailable", "key", key, "attempts", opts.MaxRetries)
	return false
}

// Release deletes key if present. It reports false only when the store fails.
func (m *LockManager) Release(ctx context.Context, key string) bool {
	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Error("lock_release_failed", "key", key, "error", err)
		return false
	}
	return true
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
