package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/classification"
	"github.com/kirillkom/document-intake/internal/core/ports"
	"github.com/kirillkom/document-intake/internal/core/usecase"
	"github.com/kirillkom/document-intake/internal/infrastructure/extractor"
	"github.com/kirillkom/document-intake/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/document-intake/internal/infrastructure/extractor/ocr"
	pdfextractor "github.com/kirillkom/document-intake/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/document-intake/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/document-intake/internal/infrastructure/extractor/xlsx"
	"github.com/kirillkom/document-intake/internal/infrastructure/lockstore/memory"
	lockredis "github.com/kirillkom/document-intake/internal/infrastructure/lockstore/redis"
	natsqueue "github.com/kirillkom/document-intake/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/document-intake/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      *natsqueue.Queue
	Storage    ports.ObjectStorage
	Classifier *classification.Engine

	Processor *usecase.ProcessDocumentUseCase
	Submitter *usecase.IngestDocumentUseCase
	Statuses  *usecase.StatusTransitionUseCase
	Reader    *usecase.QueryUseCase

	closers []func()
}

type Option func(*options)

type options struct {
	onRetry resilience.RetryObserver
}

// WithRetryObserver reports retried queue publishes, typically to metrics.
func WithRetryObserver(observer resilience.RetryObserver) Option {
	return func(o *options) { o.onRetry = observer }
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	startup := resilience.NewExecutor(resilience.StartupConfig(), resilience.WithLogger(logger))
	var db *sql.DB
	err := startup.Execute(ctx, "postgres.connect", func(context.Context) error {
		opened, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		db = opened
		return nil
	}, resilience.RetryAll)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	lockStore, closeLocks, err := newLockStore(cfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init lock store: %w", err)
	}
	app.closers = append(app.closers, closeLocks)

	rules, err := classification.LoadRules(cfg.CategoryRulesPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load category rules: %w", err)
	}
	app.Classifier = classification.NewEngine(rules)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	app.Storage = storage

	publishing := resilience.NewExecutor(resilience.PublishConfig(),
		resilience.WithLogger(logger),
		resilience.WithRetryObserver(o.onRetry),
	)
	queue, err := natsqueue.New(cfg.NATSURL, natsqueue.Options{
		SubmissionSubject:   cfg.NATSSubmissionSubject,
		NotificationSubject: cfg.NATSNotificationSubject,
		ResilienceExecutor:  publishing,
		Logger:              logger,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.Queue = queue
	app.closers = append(app.closers, queue.Close)

	extractors := newExtractorRouter(cfg)
	logger.Info("extractors_registered", "file_types", extractors.FileTypes())

	uow := postgres.NewUnitOfWork(db)
	docs := postgres.NewDocumentRepository(db)
	locks := usecase.NewLockManager(lockStore, logger)

	app.Processor = usecase.NewProcessDocumentUseCase(
		locks,
		extractors,
		app.Classifier,
		uow,
		storage,
		usecase.WithProcessingLockOptions(processingLockOptions(cfg)),
		usecase.WithNotificationPublisher(queue),
		usecase.WithProcessLogger(logger),
	)
	app.Statuses = usecase.NewStatusTransitionUseCase(locks, docs, uow, queue, logger)
	app.Submitter = usecase.NewIngestDocumentUseCase(storage, queue)
	app.Reader = usecase.NewQueryUseCase(docs, postgres.NewNotificationRepository(db), storage)

	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newLockStore(cfg config.Config) (ports.LockStore, func(), error) {
	switch cfg.LockBackend {
	case config.LockBackendMemory, "":
		return memory.New(), func() {}, nil
	case config.LockBackendRedis:
		client, err := lockredis.NewClient(lockredis.Config{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return lockredis.New(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

func newExtractorRouter(cfg config.Config) *extractor.Router {
	router := extractor.NewRouter().
		Register(plaintext.NewExtractor(), "txt").
		Register(pdfextractor.NewExtractor(), "pdf").
		Register(docx.NewExtractor(), "docx").
		Register(xlsx.NewExtractor(), "xlsx")
	if cfg.TesseractPath != "" {
		router.Register(ocr.NewExtractor(cfg.TesseractPath), "png", "jpg", "jpeg", "tif", "tiff")
	}
	return router
}

func processingLockOptions(cfg config.Config) usecase.LockOptions {
	opts := usecase.DefaultProcessingLockOptions()
	if cfg.ProcessingLockTimeoutSeconds > 0 {
		opts.Timeout = time.Duration(cfg.ProcessingLockTimeoutSeconds) * time.Second
	}
	if cfg.ProcessingLockMaxRetries > 0 {
		opts.MaxRetries = cfg.ProcessingLockMaxRetries
	}
	if cfg.ProcessingLockRetryDelayMS >= 0 {
		opts.RetryDelay = time.Duration(cfg.ProcessingLockRetryDelayMS) * time.Millisecond
	}
	return opts
}
