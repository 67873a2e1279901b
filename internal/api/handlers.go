package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/lock"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/resolver"
	"github.com/banksodee/clubsync/internal/webhook"
)

const healthTimeout = 3 * time.Second

// HealthCheck runs every dependency check and reports 503 when any fails.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{"status": overall, "checks": checks})
}

// ReceiveWebhook verifies and applies one change notification. It answers
// 200 when the notification changed the relational store and 202 when it was
// accepted but had nothing to apply or failed; the audit log has the detail.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if h.secret != "" && !webhook.VerifySignature(h.secret, body, r.Header.Get(webhook.SignatureHeader)) {
		h.logger.Warnw("Rejected webhook with invalid signature", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	// A disconnecting sender must not abort a write halfway.
	handled := h.processor.Process(context.WithoutCancel(r.Context()), body)

	status := http.StatusOK
	if !handled {
		status = http.StatusAccepted
	}
	writeJSON(w, status, map[string]bool{"handled": handled})
}

// TriggerImport runs an import of the kind in the path and returns its result.
// Query parameters: dry_run, test_record, include_staff, batch_size.
func (h *Handler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusNotFound, "imports are not enabled")
		return
	}

	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := importOptionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.runner.Run(r.Context(), kind, opts)
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Errorw("Import request failed", "kind", kind.String(), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if res.HasRunError() {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

// ListImports returns recent import runs of a kind.
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "import history is not enabled")
		return
	}

	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	runs, err := h.history.Recent(r.Context(), kind, limit)
	if err != nil {
		h.logger.Errorw("Failed to list import runs", "kind", kind.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list import runs")
		return
	}
	if runs == nil {
		runs = []importer.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetPerson returns a people row joined with its profile document.
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	if h.people == nil {
		writeError(w, http.StatusNotFound, "person lookup is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	pair := h.people.PersonWithProfile(r.Context(), id, resolver.Options{
		SkipCache: r.URL.Query().Get("fresh") == "true",
	})
	if pair == nil {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"person":  pair.Person,
		"profile": pair.Profile,
	})
}

func importOptionsFromQuery(r *http.Request) (importer.ImportOptions, error) {
	q := r.URL.Query()
	opts := importer.ImportOptions{TestSinglePlayer: q.Get("test_record")}

	if v := q.Get("dry_run"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("dry_run must be a boolean")
		}
		opts.DryRun = b
	}
	if v := q.Get("include_staff"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("include_staff must be a boolean")
		}
		opts.IncludeStaff = &b
	}
	if v := q.Get("batch_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("batch_size must be a positive integer")
		}
		opts.BatchSize = n
	}
	return opts, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
