package actions

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/registry"
	"github.com/boingbasti/docker-update-commander/pkg/status"
	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// defaultConcurrency bounds parallel registry lookups in a single pass.
const defaultConcurrency = 5

// Resolver classifies a container's image against its registry.
type Resolver interface {
	Resolve(ctx context.Context, record types.Record) registry.Result
}

// Checker runs inventory passes: it enumerates containers, resolves each
// against its registry, and records the outcome in the status store.
type Checker struct {
	client   types.Client
	store    *status.Store
	resolver Resolver

	// Concurrency bounds parallel registry lookups; zero means
	// defaultConcurrency.
	Concurrency int

	// passMu guards activePasses, the cancellation handles of every pass
	// currently running. Scheduled and request-triggered passes may
	// overlap, so there can be more than one.
	passMu       sync.Mutex
	activePasses map[*passHandle]struct{}
}

// passHandle carries the cancellation hook of one in-flight pass.
type passHandle struct {
	cancel context.CancelFunc
}

// NewChecker creates a Checker over the given runtime client, status
// store, and resolver.
func NewChecker(client types.Client, store *status.Store, resolver Resolver) *Checker {
	return &Checker{
		client:   client,
		store:    store,
		resolver: resolver,
	}
}

// CheckSummary aggregates the outcome of one full inventory pass.
type CheckSummary struct {
	Checked          int `json:"checked"`
	UpdatesAvailable int `json:"updates_available"`
	UpToDate         int `json:"up_to_date"`
	LocalOnly        int `json:"local_only"`
	Failed           int `json:"failed"`
	Evicted          int `json:"evicted"`
}

// RunCheck performs a full check pass over the current inventory.
//
// Each container is resolved against its registry with bounded
// parallelism; stored statuses for containers no longer present are
// evicted. Cancelling the context, or calling StopCheck, stops the pass
// between lookups, leaving unvisited statuses untouched.
//
// Parameters:
//   - ctx: Context for cancellation.
//
// Returns:
//   - CheckSummary: Aggregated pass outcome.
//   - error: Non-nil if the inventory could not be listed.
func (c *Checker) RunCheck(ctx context.Context) (CheckSummary, error) {
	return c.RunScopedCheck(ctx, nil)
}

// RunScopedCheck performs a check pass restricted to the named
// containers. An empty name list checks everything; a scoped pass never
// evicts, since it only sees part of the inventory.
//
// Parameters:
//   - ctx: Context for cancellation.
//   - names: Container names to check, nil or empty for all.
//
// Returns:
//   - CheckSummary: Aggregated pass outcome.
//   - error: Non-nil if the inventory could not be listed.
func (c *Checker) RunScopedCheck(ctx context.Context, names []string) (CheckSummary, error) {
	started := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handle := &passHandle{cancel: cancel}

	c.passMu.Lock()
	if c.activePasses == nil {
		c.activePasses = make(map[*passHandle]struct{})
	}

	c.activePasses[handle] = struct{}{}
	c.passMu.Unlock()

	defer func() {
		c.passMu.Lock()
		delete(c.activePasses, handle)
		c.passMu.Unlock()
	}()

	records, err := c.client.ListContainers(ctx)
	if err != nil {
		logrus.WithError(err).Error("Check pass aborted, inventory unavailable")

		return CheckSummary{}, err
	}

	var summary CheckSummary

	if len(names) > 0 {
		records = slices.DeleteFunc(records, func(record types.Record) bool {
			return !slices.Contains(names, record.Name)
		})
	} else {
		summary.Evicted = c.store.EvictMissing(recordIDs(records))
	}

	summary.Checked = len(records)

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var (
		mu        sync.Mutex
		waitGroup sync.WaitGroup
	)

	semaphore := make(chan struct{}, concurrency)

	for _, record := range records {
		if ctx.Err() != nil {
			logrus.Debug("Check pass cancelled, skipping remaining containers")

			break
		}

		semaphore <- struct{}{}

		waitGroup.Add(1)

		go func(record types.Record) {
			defer waitGroup.Done()
			defer func() { <-semaphore }()

			// The pass may have been cancelled while this worker waited
			// for a slot; leave the status untouched in that case.
			if ctx.Err() != nil {
				return
			}

			result := c.checkOne(ctx, record)

			mu.Lock()
			defer mu.Unlock()

			switch result.Classification {
			case registry.UpdateAvailable:
				summary.UpdatesAvailable++
			case registry.UpToDate:
				summary.UpToDate++
			case registry.LocalOnly:
				summary.LocalOnly++
			case registry.Unresolved:
				summary.Failed++
			}
		}(record)
	}

	waitGroup.Wait()

	logrus.WithFields(logrus.Fields{
		"checked":           summary.Checked,
		"updates_available": summary.UpdatesAvailable,
		"failed":            summary.Failed,
		"duration":          time.Since(started),
	}).Info("Check pass completed")

	return summary, nil
}

// StopCheck cancels every check pass currently in flight. A pass stops
// between lookups; statuses already written stay as they are. Update
// jobs are unaffected.
//
// Returns:
//   - bool: True if at least one running pass was cancelled.
func (c *Checker) StopCheck() bool {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	if len(c.activePasses) == 0 {
		return false
	}

	logrus.WithField("passes", len(c.activePasses)).Info("Cancelling running check passes")

	for handle := range c.activePasses {
		handle.cancel()
	}

	clear(c.activePasses)

	return true
}

// checkOne resolves a single container and stores the outcome.
func (c *Checker) checkOne(ctx context.Context, record types.Record) registry.Result {
	// Local-only containers never leave that state, so readers must not
	// see a transient checking marker for them.
	if !record.LocalOnly {
		c.store.Update(record.ID, types.UpdateStatus{
			Name:          record.Name,
			ImageName:     record.ImageName,
			State:         types.StateChecking,
			CurrentDigest: record.CurrentDigest(),
		})
	}

	result := c.resolver.Resolve(ctx, record)
	c.store.Update(record.ID, statusFromResult(record, result, false))

	return result
}

// Reconcile re-resolves the named containers after a delegated updater
// run. Updated containers get fresh identities when recreated, so the
// pass works by name against live inventory and evicts stale identities.
//
// Parameters:
//   - ctx: Context for cancellation.
//   - names: Container names the update job targeted.
//
// Returns:
//   - error: Non-nil if the inventory could not be listed.
func (c *Checker) Reconcile(ctx context.Context, names []string) error {
	records, err := c.client.ListContainers(ctx)
	if err != nil {
		logrus.WithError(err).Error("Reconciliation aborted, inventory unavailable")

		return err
	}

	c.store.EvictMissing(recordIDs(records))

	for _, record := range records {
		if !slices.Contains(names, record.Name) {
			continue
		}

		result := c.resolver.Resolve(ctx, record)
		c.store.Update(record.ID, statusFromResult(record, result, true))
	}

	return nil
}

// statusFromResult maps a resolve outcome to a stored status. In
// postUpdate mode a digest match means the container was just brought
// current, and a remaining mismatch is a failed update rather than a
// routine staleness finding.
func statusFromResult(record types.Record, result registry.Result, postUpdate bool) types.UpdateStatus {
	update := types.UpdateStatus{
		Name:          record.Name,
		ImageName:     record.ImageName,
		CurrentDigest: record.CurrentDigest(),
		RemoteDigest:  result.RemoteDigest,
		LastChecked:   time.Now(),
	}

	switch result.Classification {
	case registry.UpToDate:
		update.State = types.StateUpToDate
		if postUpdate {
			update.State = types.StateUpdated
		}
	case registry.UpdateAvailable:
		update.State = types.StateUpdateAvailable
		if postUpdate {
			// The updater ran but the container still lags the registry;
			// that is a failed update, not a routine staleness finding.
			update.State = types.StateError
			update.LastError = "image still differs from registry after update run"
		}
	case registry.LocalOnly:
		update.State = types.StateLocalOnly
	case registry.Unresolved:
		update.State = types.StateError
		if result.Err != nil {
			update.LastError = result.Err.Error()
		}
	default:
		update.State = types.StateUnknown
	}

	return update
}

// recordIDs extracts container identities in inventory order.
func recordIDs(records []types.Record) []types.ContainerID {
	ids := make([]types.ContainerID, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}

	return ids
}
