package updater

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boingbasti/docker-update-commander/pkg/status"
	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// fakeClient implements types.Client against canned inventory data.
type fakeClient struct {
	mu      sync.Mutex
	records []types.Record
	listErr error
	runFunc func(types.UpdaterRunOptions) (types.UpdaterRunResult, error)
	runs    []types.UpdaterRunOptions
}

func (f *fakeClient) ListContainers(_ context.Context) ([]types.Record, error) {
	return f.records, f.listErr
}

func (f *fakeClient) SelfID() types.ContainerID { return "self-id" }

func (f *fakeClient) PullImage(_ context.Context, _ string) error { return nil }

func (f *fakeClient) APIVersion() string { return "1.44" }

func (f *fakeClient) RunUpdater(
	_ context.Context,
	opts types.UpdaterRunOptions,
) (types.UpdaterRunResult, error) {
	f.mu.Lock()
	f.runs = append(f.runs, opts)
	f.mu.Unlock()

	if f.runFunc != nil {
		return f.runFunc(opts)
	}

	return types.UpdaterRunResult{}, nil
}

func (f *fakeClient) runOptions() []types.UpdaterRunOptions {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]types.UpdaterRunOptions(nil), f.runs...)
}

func testInventory() []types.Record {
	return []types.Record{
		{ID: "a", Name: "app-a", ImageName: "app-a:latest", RepoDigests: []string{"app-a@sha256:aaa"}},
		{ID: "b", Name: "app-b", ImageName: "app-b:latest", RepoDigests: []string{"app-b@sha256:bbb"}},
		{ID: "self", Name: "commander", ImageName: "commander:latest", IsSelf: true},
	}
}

// newTestDispatcher wires a dispatcher whose reconcile marks every named
// target as updated, and a channel that receives each finished job.
func newTestDispatcher(
	client *fakeClient,
	store *status.Store,
) (*Dispatcher, chan Job) {
	reconcile := func(_ context.Context, names []string) error {
		for _, record := range client.records {
			for _, name := range names {
				if record.Name == name {
					store.Update(record.ID, types.UpdateStatus{
						Name:  record.Name,
						State: types.StateUpdated,
					})
				}
			}
		}

		return nil
	}

	dispatcher := NewDispatcher(client, store, reconcile, "containrrr/watchtower")
	done := make(chan Job, 1)
	dispatcher.OnComplete = func(job Job) { done <- job }

	return dispatcher, done
}

func waitForJob(t *testing.T, done chan Job) Job {
	t.Helper()

	select {
	case job := <-done:
		return job
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")

		return Job{}
	}
}

func TestDispatchRoundTrip(t *testing.T) {
	t.Parallel()

	client := &fakeClient{records: testInventory()}
	store := status.NewStore()
	dispatcher, done := newTestDispatcher(client, store)

	job, err := dispatcher.Dispatch(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.State)
	assert.Equal(t, []string{"app-a", "app-b"}, job.Targets)

	finished := waitForJob(t, done)
	assert.Equal(t, JobSucceeded, finished.State)
	assert.False(t, finished.FinishedAt.IsZero())

	// Targets were reconciled to their post-update state.
	for _, id := range []types.ContainerID{"a", "b"} {
		current, ok := store.Get(id)
		require.True(t, ok)
		assert.Equal(t, types.StateUpdated, current.State)
	}

	// The updater run named the targets and excluded the own container.
	runs := client.runOptions()
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"app-a", "app-b"}, runs[0].Targets)
	assert.Equal(t, []string{"commander"}, runs[0].Exclusions)
	assert.Equal(t, "containrrr/watchtower", runs[0].Image)
}

func TestDispatchSingleFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client := &fakeClient{
		records: testInventory(),
		runFunc: func(types.UpdaterRunOptions) (types.UpdaterRunResult, error) {
			<-release

			return types.UpdaterRunResult{}, nil
		},
	}
	store := status.NewStore()
	dispatcher, done := newTestDispatcher(client, store)

	_, err := dispatcher.Dispatch(context.Background(), Selection{})
	require.NoError(t, err)

	// A second dispatch while the first runs is rejected, not queued.
	_, err = dispatcher.Dispatch(context.Background(), Selection{})
	require.ErrorIs(t, err, ErrJobInProgress)
	assert.True(t, dispatcher.Busy())

	close(release)
	waitForJob(t, done)

	// The slot frees up once the job finishes.
	_, err = dispatcher.Dispatch(context.Background(), Selection{})
	require.NoError(t, err)
	waitForJob(t, done)
}

func TestDispatchNoEligibleTargets(t *testing.T) {
	t.Parallel()

	client := &fakeClient{records: []types.Record{
		{ID: "self", Name: "commander", IsSelf: true},
		{ID: "local", Name: "built", LocalOnly: true},
	}}
	store := status.NewStore()
	dispatcher, _ := newTestDispatcher(client, store)

	_, err := dispatcher.Dispatch(context.Background(), Selection{})
	require.ErrorIs(t, err, ErrNoEligibleTargets)

	// The slot is released on rejection.
	assert.False(t, dispatcher.Busy())
}

func TestDispatchInventoryError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{listErr: assert.AnError}
	store := status.NewStore()
	dispatcher, _ := newTestDispatcher(client, store)

	_, err := dispatcher.Dispatch(context.Background(), Selection{})
	require.ErrorIs(t, err, ErrDispatchFailed)
	assert.False(t, dispatcher.Busy())
}

func TestDispatchRevertsStatusOnRunFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		records: testInventory(),
		runFunc: func(types.UpdaterRunOptions) (types.UpdaterRunResult, error) {
			return types.UpdaterRunResult{}, assert.AnError
		},
	}
	store := status.NewStore()
	store.Update("a", types.UpdateStatus{
		Name:          "app-a",
		State:         types.StateUpdateAvailable,
		CurrentDigest: "aaa",
	})

	dispatcher, done := newTestDispatcher(client, store)

	_, err := dispatcher.Dispatch(context.Background(), Selection{})
	require.NoError(t, err)

	finished := waitForJob(t, done)
	assert.Equal(t, JobFailed, finished.State)
	assert.Contains(t, finished.Error, ErrDispatchFailed.Error())

	// The target lands in the error state with its digest untouched.
	current, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, types.StateError, current.State)
	assert.Equal(t, "aaa", current.CurrentDigest)
	assert.Contains(t, current.LastError, "dispatch failed")
}

func TestDispatchRequireStale(t *testing.T) {
	t.Parallel()

	client := &fakeClient{records: testInventory()}
	store := status.NewStore()
	store.Update("a", types.UpdateStatus{Name: "app-a", State: types.StateUpdateAvailable})
	store.Update("b", types.UpdateStatus{Name: "app-b", State: types.StateUpToDate})

	dispatcher, done := newTestDispatcher(client, store)

	job, err := dispatcher.Dispatch(context.Background(), Selection{RequireStale: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-a"}, job.Targets)

	waitForJob(t, done)
}

func TestBusyDoesNotConsumeSlot(t *testing.T) {
	t.Parallel()

	client := &fakeClient{records: testInventory()}
	store := status.NewStore()
	dispatcher, done := newTestDispatcher(client, store)

	// Probing availability must not claim the slot.
	assert.False(t, dispatcher.Busy())
	assert.False(t, dispatcher.Busy())

	_, err := dispatcher.Dispatch(context.Background(), Selection{})
	require.NoError(t, err)
	waitForJob(t, done)
}

func TestLastJob(t *testing.T) {
	t.Parallel()

	client := &fakeClient{records: testInventory()}
	store := status.NewStore()
	dispatcher, done := newTestDispatcher(client, store)

	_, ok := dispatcher.LastJob()
	assert.False(t, ok)

	started, err := dispatcher.Dispatch(context.Background(), Selection{})
	require.NoError(t, err)
	waitForJob(t, done)

	last, ok := dispatcher.LastJob()
	require.True(t, ok)
	assert.Equal(t, started.ID, last.ID)
	assert.Equal(t, JobSucceeded, last.State)
}
