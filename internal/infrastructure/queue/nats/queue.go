package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/infrastructure/resilience"
)

const workerQueueGroup = "intake-workers"

type publisher interface {
	Publish(subject string, data []byte) error
}

// Queue carries submissions to workers and fans notifications out over NATS.
type Queue struct {
	conn                *nats.Conn
	pub                 publisher
	submissionSubject   string
	notificationSubject string
	executor            *resilience.Executor
	logger              *slog.Logger
}

type Options struct {
	SubmissionSubject    string
	NotificationSubject  string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.SubmissionSubject == "" {
		return nil, errors.New("nats submission subject is required")
	}

	conn, err := nats.Connect(
		url,
		nats.Name("document-intake"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:                conn,
		pub:                 conn,
		submissionSubject:   options.SubmissionSubject,
		notificationSubject: options.NotificationSubject,
		executor:            options.ResilienceExecutor,
		logger:              logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishSubmission(ctx context.Context, msg domain.SubmissionMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	return q.publish(ctx, "nats.publish_submission", q.submissionSubject, payload)
}

// PublishNotification is a no-op when no notification subject is configured.
func (q *Queue) PublishNotification(ctx context.Context, n domain.Notification) error {
	if q.notificationSubject == "" {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return q.publish(ctx, "nats.publish_notification", q.notificationSubject, payload)
}

func (q *Queue) publish(ctx context.Context, operation, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.pub.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeSubmissions blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeSubmissions(ctx context.Context, handler func(context.Context, domain.SubmissionMessage) error) error {
	sub, err := q.conn.QueueSubscribe(q.submissionSubject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		q.dispatch(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) dispatch(ctx context.Context, data []byte, handler func(context.Context, domain.SubmissionMessage) error) {
	msg, err := decodeSubmission(data)
	if err != nil {
		q.logger.Error("submission_decode_failed", "error", err)
		return
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := handler(handlerCtx, msg); err != nil {
		q.logger.Error("submission_handler_failed",
			"submission_id", msg.SubmissionID,
			"processing_key", msg.ProcessingKey,
			"error", err,
		)
	}
}

func decodeSubmission(data []byte) (domain.SubmissionMessage, error) {
	var msg domain.SubmissionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.SubmissionMessage{}, fmt.Errorf("unmarshal submission: %w", err)
	}
	if msg.StorageKey == "" {
		return domain.SubmissionMessage{}, errors.New("submission has no storage key")
	}
	return msg, nil
}
