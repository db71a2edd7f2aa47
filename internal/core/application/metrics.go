package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veil",
		Name:      "operations_total",
		Help:      "Completed operations by kind and outcome.",
	}, []string{"kind", "outcome"})

	shieldedVolumeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veil",
		Name:      "shielded_volume_lamports_total",
		Help:      "Total volume moved between pools, in base units.",
	}, []string{"kind"})
)

func countOperation(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operationsCounter.WithLabelValues(kind, outcome).Inc()
}
