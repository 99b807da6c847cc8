package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var metrics *Metrics

// Metric holds data points from one check pass.
type Metric struct {
	Checked   int // Number of containers checked.
	Stale     int // Number of containers with an update available.
	LocalOnly int // Number of local-only containers.
	Failed    int // Number of containers whose check failed.
}

// JobMetric holds data points from one finished update job.
type JobMetric struct {
	Targets int  // Number of containers the job targeted.
	Failed  bool // Whether the job ended in failure.
}

// Metrics handles processing and exposing check and job metrics.
type Metrics struct {
	checkCh chan *Metric
	jobCh   chan *JobMetric

	checked    prometheus.Gauge
	stale      prometheus.Gauge
	localOnly  prometheus.Gauge
	failed     prometheus.Gauge
	checks     prometheus.Counter
	skipped    prometheus.Counter
	dropped    prometheus.Counter
	jobs       prometheus.Counter
	jobsFailed prometheus.Counter

	stopCh       chan struct{}
	shutdownOnce sync.Once
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - *Metrics: Metrics handler with its processing goroutine started.
//   - error: Non-nil if a metric is already registered.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	// channelBufferSize sets the metric channel capacity.
	const channelBufferSize = 10

	handler := &Metrics{
		checked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "update_commander_containers_checked",
			Help: "Number of containers checked during the last pass",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "update_commander_containers_stale",
			Help: "Number of containers with an update available after the last pass",
		}),
		localOnly: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "update_commander_containers_local_only",
			Help: "Number of local-only containers found during the last pass",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "update_commander_containers_failed",
			Help: "Number of containers whose check failed during the last pass",
		}),
		checks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "update_commander_checks_total",
			Help: "Number of check passes since the orchestrator started",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "update_commander_checks_skipped_total",
			Help: "Number of skipped check passes since the orchestrator started",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "update_commander_metrics_dropped_total",
			Help: "Number of metrics dropped due to a full channel",
		}),
		jobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "update_commander_update_jobs_total",
			Help: "Number of update jobs dispatched since the orchestrator started",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "update_commander_update_jobs_failed_total",
			Help: "Number of update jobs that ended in failure",
		}),
		checkCh: make(chan *Metric, channelBufferSize),
		jobCh:   make(chan *JobMetric, channelBufferSize),
		stopCh:  make(chan struct{}),
	}

	collectors := []prometheus.Collector{
		handler.checked,
		handler.stale,
		handler.localOnly,
		handler.failed,
		handler.checks,
		handler.skipped,
		handler.dropped,
		handler.jobs,
		handler.jobsFailed,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			alreadyRegistered := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, &alreadyRegistered) {
				return nil, fmt.Errorf("failed to register metric: %w", err)
			}
		}
	}

	go handler.handleUpdates()

	return handler, nil
}

// Default initializes or returns the singleton Metrics handler bound to
// the default Prometheus registry. It panics on registration failure.
func Default() *Metrics {
	if metrics != nil {
		return metrics
	}

	var err error

	metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	return metrics
}

// RegisterCheck enqueues a check pass metric. A nil metric records a
// skipped pass. If the channel is full the metric is dropped and counted.
//
// Parameters:
//   - metric: Metric to register, nil for a skipped pass.
func (m *Metrics) RegisterCheck(metric *Metric) {
	select {
	case m.checkCh <- metric:
	default:
		m.dropped.Inc()
	}
}

// RegisterJob enqueues an update job metric. If the channel is full the
// metric is dropped and counted.
//
// Parameters:
//   - metric: Job metric to register.
func (m *Metrics) RegisterJob(metric *JobMetric) {
	select {
	case m.jobCh <- metric:
	default:
		m.dropped.Inc()
	}
}

// QueueIsEmpty checks if both metric channels are empty.
//
// Returns:
//   - bool: True if empty, false otherwise.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.checkCh) == 0 && len(m.jobCh) == 0
}

// Shutdown gracefully stops the metrics processing goroutine. Idempotent.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
	})
}

// handleUpdates applies queued metrics to the Prometheus collectors.
func (m *Metrics) handleUpdates() {
	for {
		select {
		case change, ok := <-m.checkCh:
			if !ok {
				return
			}

			m.checks.Inc()

			if change == nil {
				// Pass was skipped, zero the last-pass gauges.
				m.skipped.Inc()
				m.checked.Set(0)
				m.stale.Set(0)
				m.localOnly.Set(0)
				m.failed.Set(0)

				continue
			}

			m.checked.Set(float64(change.Checked))
			m.stale.Set(float64(change.Stale))
			m.localOnly.Set(float64(change.LocalOnly))
			m.failed.Set(float64(change.Failed))
		case job, ok := <-m.jobCh:
			if !ok {
				return
			}

			m.jobs.Inc()

			if job.Failed {
				m.jobsFailed.Inc()
			}
		case <-m.stopCh:
			return
		}
	}
}
