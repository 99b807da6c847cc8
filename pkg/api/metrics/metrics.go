// Package metrics serves the Prometheus metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boingbasti/docker-update-commander/pkg/metrics"
)

// Handler is an HTTP handler for serving metric data.
type Handler struct {
	Path    string
	Handle  http.HandlerFunc
	Metrics *metrics.Metrics
}

// New is a factory function creating a new metrics Handler. It binds the
// default metrics handler to the Prometheus text exposition endpoint.
func New() *Handler {
	return &Handler{
		Path:    "/v1/metrics",
		Handle:  promhttp.Handler().ServeHTTP,
		Metrics: metrics.Default(),
	}
}
