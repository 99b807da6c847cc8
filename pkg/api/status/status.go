// Package status serves the container status dashboard endpoint.
package status

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/status"
	"github.com/boingbasti/docker-update-commander/pkg/types"
	"github.com/boingbasti/docker-update-commander/pkg/updater"
)

// jobSource exposes the most recent update job, if any.
type jobSource interface {
	LastJob() (updater.Job, bool)
}

// Handler serves the current status of every tracked container.
type Handler struct {
	Path  string
	store *status.Store
	jobs  jobSource
}

// entry is one dashboard row: a container identity with its status.
type entry struct {
	ContainerID types.ContainerID `json:"container_id"`
	types.UpdateStatus
}

// response is the full snapshot: per-container statuses plus the most
// recent update job, when one has run.
type response struct {
	Containers []entry      `json:"containers"`
	LastJob    *updater.Job `json:"last_job,omitempty"`
}

// New creates a Handler over the given status store and job source.
//
// Parameters:
//   - store: Status store to snapshot.
//   - jobs: Source of the most recent update job, nil to omit job state.
func New(store *status.Store, jobs jobSource) *Handler {
	return &Handler{
		Path:  "/v1/status",
		store: store,
		jobs:  jobs,
	}
}

// Handle responds with the stored status of every container, sorted by
// name for stable output, together with the most recent update job. The
// snapshot is whatever the last check pass recorded; no registry calls
// happen here.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	snapshot := h.store.All()

	entries := make([]entry, 0, len(snapshot))
	for id, update := range snapshot {
		entries = append(entries, entry{ContainerID: id, UpdateStatus: update})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	body := response{Containers: entries}

	if h.jobs != nil {
		if job, ok := h.jobs.LastJob(); ok {
			body.LastJob = &job
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Debug("Failed to encode status response")
	}
}
