// Package updater dispatches delegated update jobs.
//
// The Dispatcher owns the single-flight update lock: at most one update
// job runs per host at any time, requests arriving while a job is in
// flight are rejected with ErrJobInProgress rather than queued. A job
// computes its safe target set, marks the targets as updating, runs the
// delegated updater container to completion in a detached goroutine, and
// reconciles target statuses from live inventory afterwards.
package updater
