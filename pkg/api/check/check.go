// Package check serves the on-demand check pass endpoint.
package check

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/internal/actions"
)

// checkRunner runs one check pass, optionally scoped to named containers.
type checkRunner interface {
	RunScopedCheck(ctx context.Context, names []string) (actions.CheckSummary, error)
}

// Handler triggers check passes via HTTP.
type Handler struct {
	Path    string
	checker checkRunner

	// lock holds a token when no pass triggered through this handler is
	// running; a request that cannot take it is rejected, not queued.
	lock chan bool
}

// New creates a Handler over the given checker.
func New(checker checkRunner) *Handler {
	lock := make(chan bool, 1)
	lock <- true

	return &Handler{
		Path:    "/v1/check",
		checker: checker,
		lock:    lock,
	}
}

// Handle runs a check pass synchronously and responds with its summary.
// The pass covers all running containers unless "target" query
// parameters (comma-separated values accepted) narrow it. A request
// arriving while another handler-triggered pass runs gets HTTP 429; an
// unreachable container runtime yields HTTP 502.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	logrus.WithField("path", r.URL.Path).Info("Received HTTP API check request")

	select {
	case token := <-h.lock:
		defer func() { h.lock <- token }()
	default:
		http.Error(w, "check already in progress", http.StatusTooManyRequests)

		return
	}

	var names []string
	for _, query := range r.URL.Query()["target"] {
		names = append(names, strings.Split(query, ",")...)
	}

	summary, err := h.checker.RunScopedCheck(r.Context(), names)
	if err != nil {
		logrus.WithError(err).Error("HTTP-triggered check pass failed")
		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(summary); err != nil {
		logrus.WithError(err).Debug("Failed to encode check response")
	}
}
