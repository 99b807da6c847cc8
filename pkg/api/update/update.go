// Package update serves the update dispatch endpoint.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/updater"
)

// jobDispatcher starts update jobs and exposes the most recent one.
type jobDispatcher interface {
	Dispatch(ctx context.Context, selection updater.Selection) (updater.Job, error)
	LastJob() (updater.Job, bool)
}

// Handler triggers update jobs via HTTP.
type Handler struct {
	Path       string
	dispatcher jobDispatcher
}

// New creates a Handler over the given dispatcher.
func New(dispatcher jobDispatcher) *Handler {
	return &Handler{
		Path:       "/v1/update",
		dispatcher: dispatcher,
	}
}

// Handle processes update requests.
//
// POST dispatches a job for the containers named in the "container"
// query parameters (comma-separated values accepted), or for all
// updatable containers when none are given. The job runs detached; the
// response is its start snapshot. A busy update slot yields HTTP 429, an
// empty target set HTTP 409.
//
// GET responds with the most recent job snapshot, HTTP 404 if no job has
// ever been dispatched.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleLastJob(w)
	case http.MethodPost:
		h.handleDispatch(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleLastJob(w http.ResponseWriter) {
	job, ok := h.dispatcher.LastJob()
	if !ok {
		http.Error(w, "no update job dispatched yet", http.StatusNotFound)

		return
	}

	writeJob(w, job)
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Info("Received HTTP API update request")

	// Discard the request body; selection comes from query parameters.
	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		logrus.WithError(err).Debug("Failed to read request body")
		http.Error(w, "failed to read request body", http.StatusInternalServerError)

		return
	}

	var names []string
	for _, query := range r.URL.Query()["container"] {
		names = append(names, strings.Split(query, ",")...)
	}

	job, err := h.dispatcher.Dispatch(r.Context(), updater.Selection{Names: names})
	if err != nil {
		switch {
		case errors.Is(err, updater.ErrJobInProgress):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		case errors.Is(err, updater.ErrNoEligibleTargets):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logrus.WithError(err).Error("Failed to dispatch update job")
			http.Error(w, err.Error(), http.StatusBadGateway)
		}

		return
	}

	writeJob(w, job)
}

func writeJob(w http.ResponseWriter, job updater.Job) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(job); err != nil {
		logrus.WithError(err).Debug("Failed to encode job response")
	}
}
