// Package metrics exposes the Prometheus registry backing the management
// server's /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a prometheus registry for collectors registered
// explicitly at startup. Runtime and promauto collectors live in the
// default registry and are merged in by Handler; keeping them out of
// this registry avoids duplicate metric families at gather time.
type Registry struct {
	registry *prometheus.Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{registry: prometheus.NewRegistry()}
}

// Register registers a custom collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// MustRegister registers collectors and panics on error. Use at startup.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Handler returns the /metrics HTTP handler. It also gathers the default
// registry, which carries the Go runtime collectors and the collectors
// the broadcaster and batcher register via promauto.
func (r *Registry) Handler() http.Handler {
	gatherers := prometheus.Gatherers{r.registry, prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Gatherer exposes the underlying gatherer, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
