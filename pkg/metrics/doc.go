// Package metrics exposes Prometheus metrics for check passes and update
// jobs. Producers enqueue data points on a buffered channel; a background
// goroutine applies them to the registered gauges and counters, so
// metric recording never blocks a check or update path.
package metrics
