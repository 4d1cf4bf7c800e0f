package broadcaster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "familylists_events_published_total",
			Help: "Total number of list events published to the broadcaster",
		},
		[]string{"event_type"},
	)

	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "familylists_events_dropped_total",
			Help: "Total number of list events dropped because a subscriber mailbox was full",
		},
		[]string{"event_type"},
	)

	subscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "familylists_sse_subscribers",
			Help: "Current number of registered SSE subscribers",
		},
	)
)

func recordEventPublished(eventType string) {
	eventsPublishedTotal.WithLabelValues(normalizeMetricLabel(eventType)).Inc()
}

func recordEventDropped(eventType string) {
	eventsDroppedTotal.WithLabelValues(normalizeMetricLabel(eventType)).Inc()
}

func normalizeMetricLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
