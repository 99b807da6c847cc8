package updater

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/internal/util"
	"github.com/boingbasti/docker-update-commander/pkg/filters"
	"github.com/boingbasti/docker-update-commander/pkg/status"
	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// Errors for update dispatch.
var (
	// ErrJobInProgress indicates an update job is already running; requests
	// are rejected, never queued.
	ErrJobInProgress = errors.New("update job already in progress")
	// ErrNoEligibleTargets indicates the safe target set came up empty.
	ErrNoEligibleTargets = errors.New("no eligible update targets")
	// ErrDispatchFailed indicates the delegated updater could not be run.
	ErrDispatchFailed = errors.New("failed to dispatch delegated updater")
)

// DefaultRunTimeout bounds a single delegated updater run.
const DefaultRunTimeout = 30 * time.Minute

// JobState describes the lifecycle of an update job.
type JobState int

// Job lifecycle states.
const (
	JobRunning JobState = iota
	JobSucceeded
	JobFailed
)

// String returns the lowercase name of the job state.
func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state as its string name.
func (s JobState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses a state from its string name.
func (s *JobState) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"succeeded"`:
		*s = JobSucceeded
	case `"failed"`:
		*s = JobFailed
	default:
		*s = JobRunning
	}

	return nil
}

// Job is a snapshot of one update dispatch.
type Job struct {
	ID         string    `json:"id"`
	Targets    []string  `json:"targets"`
	State      JobState  `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Error      string    `json:"error,omitempty"`
}

// Selection describes which containers an update request covers.
type Selection struct {
	// Names restricts the job to specific containers; empty selects all.
	Names []string
	// RequireStale keeps only targets currently known to have an update
	// available. Set for scheduled auto-updates, unset for explicit
	// requests that should dispatch regardless of staleness.
	RequireStale bool
}

// ReconcileFunc re-resolves the named containers after an updater run so
// their stored statuses reflect the post-update reality.
type ReconcileFunc func(ctx context.Context, names []string) error

// Dispatcher serializes update jobs and drives the delegated updater.
type Dispatcher struct {
	client    types.Client
	store     *status.Store
	reconcile ReconcileFunc

	// UpdaterImage is the delegated updater image to run.
	UpdaterImage string
	// RunTimeout bounds a single updater run; zero means DefaultRunTimeout.
	RunTimeout time.Duration
	// OnComplete, when set, observes every finished job.
	OnComplete func(Job)

	// lock holds a token when no job is running; taking the token claims
	// the single update slot.
	lock chan bool

	mu      sync.Mutex
	lastJob *Job
}

// NewDispatcher creates a Dispatcher with a free update slot.
//
// Parameters:
//   - client: Container runtime client.
//   - store: Status store to transition target states through.
//   - reconcile: Post-run re-resolution of target statuses.
//   - updaterImage: Delegated updater image reference.
func NewDispatcher(
	client types.Client,
	store *status.Store,
	reconcile ReconcileFunc,
	updaterImage string,
) *Dispatcher {
	lock := make(chan bool, 1)
	lock <- true

	return &Dispatcher{
		client:       client,
		store:        store,
		reconcile:    reconcile,
		UpdaterImage: updaterImage,
		lock:         lock,
	}
}

// Dispatch computes the safe target set for a selection and starts an
// update job for it. The job runs detached from the caller's context;
// the returned snapshot describes the job at start time.
//
// Parameters:
//   - ctx: Context for target computation (inventory listing).
//   - selection: Requested containers and staleness requirement.
//
// Returns:
//   - Job: Snapshot of the started job.
//   - error: ErrJobInProgress, ErrNoEligibleTargets, or an inventory error.
func (d *Dispatcher) Dispatch(ctx context.Context, selection Selection) (Job, error) {
	// Claim the single update slot without blocking.
	select {
	case <-d.lock:
	default:
		logrus.Debug("Update slot busy, rejecting dispatch")

		return Job{}, ErrJobInProgress
	}

	job, err := d.startJob(ctx, selection)
	if err != nil {
		d.lock <- true

		return Job{}, err
	}

	return job, nil
}

// startJob computes targets and launches the detached run. The caller
// holds the update slot; ownership passes to the run goroutine on
// success and reverts to the caller on error.
func (d *Dispatcher) startJob(ctx context.Context, selection Selection) (Job, error) {
	records, err := d.client.ListContainers(ctx)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	filter, desc := filters.BuildTargetFilter(selection.Names)
	targets := filters.SafeTargets(records, filter)

	if selection.RequireStale {
		targets = d.staleOnly(targets)
	}

	if len(targets) == 0 {
		logrus.WithField("selection", desc).Info("No eligible update targets")

		return Job{}, ErrNoEligibleTargets
	}

	job := Job{
		ID:        util.RandName(),
		Targets:   recordNames(targets),
		State:     JobRunning,
		StartedAt: time.Now(),
	}

	logrus.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"selection": desc,
		"targets":   job.Targets,
	}).Info("Dispatching update job")

	// Remember pre-dispatch statuses so a failed dispatch can revert.
	prior := make(map[types.ContainerID]types.UpdateStatus, len(targets))
	for _, target := range targets {
		if previous, ok := d.store.Get(target.ID); ok {
			prior[target.ID] = previous
		}

		d.store.Update(target.ID, types.UpdateStatus{
			Name:          target.Name,
			ImageName:     target.ImageName,
			State:         types.StateUpdating,
			CurrentDigest: target.CurrentDigest(),
		})
	}

	d.setLastJob(job)

	// The run outlives the triggering request on purpose; it is bounded
	// by the run timeout, not the caller's context.
	go d.run(context.Background(), job, targets, prior, exclusionNames(records))

	return job, nil
}

// run drives one delegated updater invocation to completion and releases
// the update slot afterwards.
func (d *Dispatcher) run(
	ctx context.Context,
	job Job,
	targets []types.Record,
	prior map[types.ContainerID]types.UpdateStatus,
	exclusions []string,
) {
	// Free the update slot before the completion hook fires, so observers
	// of a finished job can dispatch again immediately.
	finish := func(state JobState, err error) {
		d.lock <- true
		d.finishJob(job, state, err)
	}

	clog := logrus.WithField("job_id", job.ID)

	// Pre-pull so a stale local updater image does not go stale forever.
	if err := d.client.PullImage(ctx, d.UpdaterImage); err != nil {
		clog.WithError(err).Warn("Failed to pull updater image, using local copy")
	}

	timeout := d.RunTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	result, err := d.client.RunUpdater(ctx, types.UpdaterRunOptions{
		Image:      d.UpdaterImage,
		Targets:    job.Targets,
		Exclusions: exclusions,
		Timeout:    timeout,
	})
	if err != nil {
		clog.WithError(err).Error("Delegated updater run failed")
		d.revert(targets, prior, err)
		finish(JobFailed, fmt.Errorf("%w: %w", ErrDispatchFailed, err))

		return
	}

	clog.WithField("exit_code", result.ExitCode).Debug("Delegated updater exited")

	if err := d.reconcile(ctx, job.Targets); err != nil {
		clog.WithError(err).Error("Failed to reconcile statuses after updater run")
		finish(JobFailed, err)

		return
	}

	finish(d.outcome(targets, result.ExitCode), nil)
}

// outcome derives the job's terminal state from the updater exit code and
// the reconciled target statuses. A job succeeds only when the updater
// exited cleanly and no target landed in an error state.
func (d *Dispatcher) outcome(targets []types.Record, exitCode int64) JobState {
	if exitCode != 0 {
		return JobFailed
	}

	for _, target := range targets {
		current, ok := d.store.Get(target.ID)
		if !ok {
			continue
		}

		// Reconciliation marks targets the updater did not get to a good
		// state as errored, including those still lagging the registry.
		if current.State == types.StateError {
			return JobFailed
		}
	}

	return JobSucceeded
}

// revert marks every target of a failed dispatch as errored, keeping the
// pre-dispatch digests untouched so the UI still shows what is running.
func (d *Dispatcher) revert(
	targets []types.Record,
	prior map[types.ContainerID]types.UpdateStatus,
	cause error,
) {
	for _, target := range targets {
		restored, ok := prior[target.ID]
		if !ok {
			restored = types.UpdateStatus{
				Name:          target.Name,
				ImageName:     target.ImageName,
				CurrentDigest: target.CurrentDigest(),
			}
		}

		restored.State = types.StateError
		restored.LastError = fmt.Sprintf("dispatch failed: %v", cause)
		d.store.Update(target.ID, restored)
	}
}

// finishJob records the job's terminal snapshot and fires the completion hook.
func (d *Dispatcher) finishJob(job Job, state JobState, err error) {
	job.State = state
	job.FinishedAt = time.Now()

	if err != nil {
		job.Error = err.Error()
	}

	d.setLastJob(job)

	logrus.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"state":    state.String(),
		"duration": job.FinishedAt.Sub(job.StartedAt),
	}).Info("Update job finished")

	if d.OnComplete != nil {
		d.OnComplete(job)
	}
}

// staleOnly keeps targets currently known to have an update available.
func (d *Dispatcher) staleOnly(targets []types.Record) []types.Record {
	var stale []types.Record

	for _, target := range targets {
		if current, ok := d.store.Get(target.ID); ok &&
			current.State == types.StateUpdateAvailable {
			stale = append(stale, target)
		}
	}

	return stale
}

// LastJob returns a snapshot of the most recent job, started or finished.
//
// Returns:
//   - Job: Snapshot of the last job.
//   - bool: False if no job has ever been dispatched.
func (d *Dispatcher) LastJob() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastJob == nil {
		return Job{}, false
	}

	return *d.lastJob, true
}

// Busy reports whether an update job currently holds the update slot.
// The check never touches the slot itself, so it cannot make a
// concurrent Dispatch fail spuriously.
func (d *Dispatcher) Busy() bool {
	return len(d.lock) == 0
}

func (d *Dispatcher) setLastJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastJob = &job
}

// recordNames extracts container names in inventory order.
func recordNames(records []types.Record) []string {
	names := make([]string, 0, len(records))
	for _, record := range records {
		names = append(names, record.Name)
	}

	return names
}

// exclusionNames collects the names the delegated updater must leave
// alone: the orchestrator itself and any updater containers. Passed to
// the updater as a second line of defense behind the target filter.
func exclusionNames(records []types.Record) []string {
	var names []string

	for _, record := range records {
		if record.IsSelf || record.IsUpdater {
			names = append(names, record.Name)
		}
	}

	return names
}
