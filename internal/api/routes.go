// Package api exposes the webhook receiver and the operator endpoints over HTTP.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/resolver"
)

// maxWebhookBytes caps inbound notification bodies.
const maxWebhookBytes = 1 << 20

// WebhookProcessor applies one change notification.
type WebhookProcessor interface {
	Process(ctx context.Context, raw []byte) bool
}

// PersonResolver joins a person row with its profile document.
type PersonResolver interface {
	PersonWithProfile(ctx context.Context, personID string, opts resolver.Options) *resolver.PersonProfilePair
}

// RunHistory lists recent import runs.
type RunHistory interface {
	Recent(ctx context.Context, kind model.Kind, limit int) ([]importer.RunRecord, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the HTTP surface of the sync engine.
type Handler struct {
	processor   WebhookProcessor
	runner      importer.Runner
	people      PersonResolver
	history     RunHistory
	checks      []HealthCheck
	webhookPath string
	secret      string
	logger      *logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithImports enables the import endpoints.
func WithImports(runner importer.Runner, history RunHistory) Option {
	return func(h *Handler) {
		h.runner = runner
		h.history = history
	}
}

// WithPeople enables the person lookup endpoint.
func WithPeople(people PersonResolver) Option {
	return func(h *Handler) { h.people = people }
}

// WithHealthChecks adds dependency checks to /health.
func WithHealthChecks(checks ...HealthCheck) Option {
	return func(h *Handler) { h.checks = append(h.checks, checks...) }
}

// NewHandler creates a Handler. An empty secret disables signature checks on
// the webhook and turns the /api/v1 endpoints off.
func NewHandler(processor WebhookProcessor, webhookPath, secret string, log *logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Handler{
		processor:   processor,
		webhookPath: webhookPath,
		secret:      secret,
		logger:      log,
	}
	for _, opt := range opts {
		opt(h)
	}
	if secret == "" {
		log.Warn("Webhook secret is empty; accepting unsigned payloads and disabling the operator API")
	}
	return h
}

// Routes builds the router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Post(h.webhookPath, h.ReceiveWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(h.secret))

		r.Post("/import/{kind}", h.TriggerImport)
		r.Get("/imports/{kind}", h.ListImports)
		r.Get("/people/{id}", h.GetPerson)
	})

	return r
}
