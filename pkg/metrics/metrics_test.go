package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCheck(t *testing.T) {
	t.Parallel()

	handler, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	defer handler.Shutdown()

	handler.RegisterCheck(&Metric{Checked: 5, Stale: 2, LocalOnly: 1, Failed: 1})

	assert.Eventually(t, func() bool {
		return handler.QueueIsEmpty() && testutil.ToFloat64(handler.checked) == 5
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(handler.stale))
	assert.Equal(t, float64(1), testutil.ToFloat64(handler.localOnly))
	assert.Equal(t, float64(1), testutil.ToFloat64(handler.failed))
	assert.Equal(t, float64(1), testutil.ToFloat64(handler.checks))
	assert.Equal(t, float64(0), testutil.ToFloat64(handler.skipped))
}

func TestRegisterSkippedCheck(t *testing.T) {
	t.Parallel()

	handler, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	defer handler.Shutdown()

	handler.RegisterCheck(&Metric{Checked: 3})
	handler.RegisterCheck(nil)

	assert.Eventually(t, func() bool {
		return handler.QueueIsEmpty() && testutil.ToFloat64(handler.skipped) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A skipped pass zeroes the last-pass gauges.
	assert.Equal(t, float64(0), testutil.ToFloat64(handler.checked))
	assert.Equal(t, float64(2), testutil.ToFloat64(handler.checks))
}

func TestRegisterJob(t *testing.T) {
	t.Parallel()

	handler, err := NewWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	defer handler.Shutdown()

	handler.RegisterJob(&JobMetric{Targets: 2})
	handler.RegisterJob(&JobMetric{Targets: 1, Failed: true})

	assert.Eventually(t, func() bool {
		return handler.QueueIsEmpty() && testutil.ToFloat64(handler.jobs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(handler.jobsFailed))
}
