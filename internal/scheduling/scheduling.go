// Package scheduling drives periodic background check passes. A cron
// heartbeat fires at a fixed cadence; each tick re-reads the runtime
// settings and decides whether the configured check interval has
// elapsed, so interval and strategy changes apply without a restart.
// Overlapping ticks coalesce: a tick arriving while a pass is running is
// skipped, never queued.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/internal/actions"
	"github.com/boingbasti/docker-update-commander/internal/settings"
	"github.com/boingbasti/docker-update-commander/internal/util"
	"github.com/boingbasti/docker-update-commander/pkg/metrics"
	"github.com/boingbasti/docker-update-commander/pkg/updater"
)

// heartbeatSpec fires the tick evaluation once a minute. The effective
// check cadence is the configured interval, evaluated on each heartbeat.
const heartbeatSpec = "@every 1m"

// checkRunner runs one full check pass.
type checkRunner interface {
	RunCheck(ctx context.Context) (actions.CheckSummary, error)
}

// jobDispatcher starts update jobs for stale containers.
type jobDispatcher interface {
	Dispatch(ctx context.Context, selection updater.Selection) (updater.Job, error)
}

// Scheduler owns the background check loop.
type Scheduler struct {
	checker    checkRunner
	dispatcher jobDispatcher
	provider   settings.Provider
	metrics    *metrics.Metrics

	// tickLock holds a token when no pass is running; ticks that cannot
	// take the token are coalesced away.
	tickLock chan bool

	mu        sync.Mutex
	lastCheck time.Time
}

// NewScheduler creates a Scheduler over the given checker, dispatcher,
// and settings provider.
func NewScheduler(
	checker checkRunner,
	dispatcher jobDispatcher,
	provider settings.Provider,
	metricsHandler *metrics.Metrics,
) *Scheduler {
	tickLock := make(chan bool, 1)
	tickLock <- true

	return &Scheduler{
		checker:    checker,
		dispatcher: dispatcher,
		provider:   provider,
		metrics:    metricsHandler,
		tickLock:   tickLock,
	}
}

// Run starts the heartbeat and blocks until the context is cancelled.
//
// With the onload or background strategy an initial pass runs before the
// heartbeat starts, so the dashboard is populated right after startup.
//
// Parameters:
//   - ctx: Context controlling the scheduler's lifetime.
//
// Returns:
//   - error: Non-nil if the heartbeat could not be scheduled.
func (s *Scheduler) Run(ctx context.Context) error {
	current := s.provider.Current()

	logrus.WithFields(logrus.Fields{
		"strategy": current.Strategy.String(),
		"interval": util.FormatDuration(current.CheckInterval),
	}).Info("Starting scheduler")

	if current.Strategy != settings.StrategyManual {
		s.tick(ctx)
	}

	scheduler := cron.New()
	if err := scheduler.AddFunc(heartbeatSpec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule check heartbeat: %w", err)
	}

	scheduler.Start()

	<-ctx.Done()
	logrus.Debug("Context canceled, stopping scheduler")
	scheduler.Stop()

	// Let an in-flight pass finish before returning.
	s.waitForRunningPass()

	return nil
}

// waitForRunningPass blocks until the current pass, if any, completes.
func (s *Scheduler) waitForRunningPass() {
	const passWaitTimeout = 60 * time.Second

	select {
	case token := <-s.tickLock:
		s.tickLock <- token
	case <-time.After(passWaitTimeout):
		logrus.Warn("Timeout waiting for running check pass, proceeding with shutdown")
	}
}

// tick evaluates one heartbeat: re-read settings, decide whether a pass
// is due, and run it. Concurrent ticks coalesce into the running one.
func (s *Scheduler) tick(ctx context.Context) {
	select {
	case token := <-s.tickLock:
		defer func() { s.tickLock <- token }()
	default:
		logrus.Debug("Check pass already running, coalescing tick")
		s.metrics.RegisterCheck(nil)

		return
	}

	current := s.provider.Current()
	if !s.passDue(current) {
		return
	}

	s.runPass(ctx, current)
}

// passDue reports whether the configured interval has elapsed since the
// last pass under the current strategy. The very first tick after
// startup is always due for non-manual strategies.
func (s *Scheduler) passDue(current settings.Settings) bool {
	if current.Strategy != settings.StrategyBackground {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Onload covers only the startup pass; nothing periodic after.
		return current.Strategy == settings.StrategyOnload && s.lastCheck.IsZero()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastCheck.IsZero() || time.Since(s.lastCheck) >= current.CheckInterval
}

// runPass executes one check pass and any configured auto-updates.
func (s *Scheduler) runPass(ctx context.Context, current settings.Settings) {
	summary, err := s.checker.RunCheck(ctx)

	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()

	if err != nil {
		logrus.WithError(err).Error("Scheduled check pass failed")
		s.metrics.RegisterCheck(nil)

		return
	}

	s.metrics.RegisterCheck(&metrics.Metric{
		Checked:   summary.Checked,
		Stale:     summary.UpdatesAvailable,
		LocalOnly: summary.LocalOnly,
		Failed:    summary.Failed,
	})

	if summary.UpdatesAvailable > 0 {
		s.autoUpdate(ctx, current)
	}
}

// autoUpdate dispatches an update job for stale containers according to
// the configured scope. Rejections are routine, not failures: another
// job may hold the slot, or the stale set may not intersect the scope.
func (s *Scheduler) autoUpdate(ctx context.Context, current settings.Settings) {
	selection := updater.Selection{RequireStale: true}

	switch current.AutoUpdateScope {
	case settings.ScopeNone:
		return
	case settings.ScopeSelected:
		if len(current.AutoUpdateContainers) == 0 {
			logrus.Debug("Auto-update scope is selected but no containers are configured")

			return
		}

		selection.Names = current.AutoUpdateContainers
	case settings.ScopeAll:
	}

	job, err := s.dispatcher.Dispatch(ctx, selection)
	if err != nil {
		switch {
		case errors.Is(err, updater.ErrJobInProgress):
			logrus.Debug("Skipping auto-update, a job is already running")
		case errors.Is(err, updater.ErrNoEligibleTargets):
			logrus.Debug("Skipping auto-update, no stale containers in scope")
		default:
			logrus.WithError(err).Error("Failed to dispatch auto-update job")
		}

		return
	}

	logrus.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"targets": job.Targets,
	}).Info("Dispatched scheduled auto-update job")
}
