package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	flushOutcomeDelivered       = "delivered"
	flushOutcomeSuppressedOff   = "suppressed_off"
	flushOutcomeSuppressedQuiet = "suppressed_quiet"
	flushOutcomeError           = "error"
	flushOutcomeEmpty           = "empty"
)

var (
	batchesActiveGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "familylists_notify_batches_active",
			Help: "Current number of accumulating notification batches",
		},
	)

	batchFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "familylists_notify_flushes_total",
			Help: "Total number of notification batch flushes by outcome",
		},
		[]string{"outcome"},
	)
)

func recordBatchFlush(outcome string) {
	batchFlushesTotal.WithLabelValues(outcome).Inc()
}
