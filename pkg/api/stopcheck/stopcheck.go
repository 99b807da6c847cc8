// Package stopcheck serves the check pass cancellation endpoint.
package stopcheck

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// checkStopper cancels a running check pass.
type checkStopper interface {
	StopCheck() bool
}

// Handler cancels in-flight check passes via HTTP.
type Handler struct {
	Path    string
	checker checkStopper
}

// New creates a Handler over the given checker.
func New(checker checkStopper) *Handler {
	return &Handler{
		Path:    "/v1/stop-check",
		checker: checker,
	}
}

// Handle cancels the running check pass. The cancellation is
// cooperative: the pass stops between registry lookups, and statuses
// already written stay as they are. Running update jobs are never
// touched. Responds whether a pass was actually cancelled.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	logrus.WithField("path", r.URL.Path).Info("Received HTTP API stop-check request")

	cancelled := h.checker.StopCheck()

	w.Header().Set("Content-Type", "application/json")

	response := map[string]bool{"cancelled": cancelled}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Debug("Failed to encode stop-check response")
	}
}
