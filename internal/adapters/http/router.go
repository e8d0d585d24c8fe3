package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/ports"
	"github.com/kirillkom/document-intake/internal/observability/metrics"
)

const serviceName = "api"

// Services are the inbound ports the router dispatches to.
type Services struct {
	Processor  ports.DocumentProcessor
	Submitter  ports.DocumentSubmitter
	Statuses   ports.StatusTransitioner
	Reader     ports.DocumentReader
	Classifier ports.TextClassifier
}

type Router struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

type Option func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(rt *Router) { rt.logger = logger }
}

func NewRouter(cfg config.Config, services Services, opts ...Option) *Router {
	rt := &Router{
		cfg:      cfg,
		services: services,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/documents/process", rt.processDocument)
	api.HandleFunc("POST /v1/documents", rt.submitDocument)
	api.HandleFunc("GET /v1/documents", rt.listDocuments)
	api.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	api.HandleFunc("GET /v1/documents/{id}/file", rt.downloadDocument)
	api.HandleFunc("PUT /v1/documents/{id}/status", rt.updateStatus)
	api.HandleFunc("GET /v1/notifications", rt.listNotifications)
	api.HandleFunc("PUT /v1/notifications/{id}", rt.markNotificationRead)
	api.HandleFunc("POST /v1/classify", rt.classifyText)

	var limited http.Handler = api
	limited = backpressureMiddleware(limited, rt.cfg.APIMaxInflight, time.Duration(rt.cfg.APIBackpressureMS)*time.Millisecond)
	limited = rateLimitMiddleware(limited, rt.limiter(), rt.onRateLimited)
	mux.Handle("/v1/", limited)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) limiter() *rate.Limiter {
	if rt.cfg.APIRateLimitRPS <= 0 {
		return nil
	}
	burst := rt.cfg.APIRateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), burst)
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, "rate_limit")
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	attrs := []any{
		"request_id", requestIDFromContext(r.Context()),
		"operation", operation,
		"status", status,
		"error", err,
	}
	switch status {
	case http.StatusTooManyRequests:
		w.Header().Set("Retry-After", retryAfterBusy)
		if rt.metrics != nil {
			rt.metrics.RecordRejected(serviceName, "busy")
		}
		rt.logger.Warn("request_rejected", attrs...)
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		rt.logger.Error("request_failed", attrs...)
	default:
		rt.logger.Info("request_invalid", attrs...)
	}
	writeJSON(w, status, map[string]string{"error": publicErrorMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
