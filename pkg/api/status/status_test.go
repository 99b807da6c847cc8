package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boingbasti/docker-update-commander/pkg/status"
	"github.com/boingbasti/docker-update-commander/pkg/types"
	"github.com/boingbasti/docker-update-commander/pkg/updater"
)

type fakeJobSource struct {
	job updater.Job
	ok  bool
}

func (f *fakeJobSource) LastJob() (updater.Job, bool) {
	return f.job, f.ok
}

func TestHandleReturnsSortedStatuses(t *testing.T) {
	t.Parallel()

	store := status.NewStore()
	store.Update("b", types.UpdateStatus{Name: "web", State: types.StateUpToDate})
	store.Update("a", types.UpdateStatus{Name: "db", State: types.StateUpdateAvailable})

	handler := New(store, &fakeJobSource{})
	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var body struct {
		Containers []map[string]any `json:"containers"`
		LastJob    *map[string]any  `json:"last_job"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Len(t, body.Containers, 2)
	assert.Equal(t, "db", body.Containers[0]["name"])
	assert.Equal(t, "update_available", body.Containers[0]["state"])
	assert.Equal(t, "web", body.Containers[1]["name"])
	assert.Nil(t, body.LastJob)
}

func TestHandleIncludesLastJob(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobSource{
		job: updater.Job{ID: "abc123", Targets: []string{"web"}, State: updater.JobSucceeded},
		ok:  true,
	}

	handler := New(status.NewStore(), jobs)
	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Containers []map[string]any `json:"containers"`
		LastJob    map[string]any   `json:"last_job"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Empty(t, body.Containers)
	require.NotNil(t, body.LastJob)
	assert.Equal(t, "abc123", body.LastJob["id"])
	assert.Equal(t, "succeeded", body.LastJob["state"])
}

func TestHandleNilJobSource(t *testing.T) {
	t.Parallel()

	handler := New(status.NewStore(), nil)
	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"containers":[]}`, recorder.Body.String())
}

func TestHandleRejectsNonGet(t *testing.T) {
	t.Parallel()

	handler := New(status.NewStore(), nil)
	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodPost, "/v1/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
