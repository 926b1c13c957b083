package ingest

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	rowsTotal           *prometheus.CounterVec
	lookupsCreatedTotal *prometheus.CounterVec
	persistDuration     *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "seed",
			Name:      "rows_total",
			Help:      "Source rows of committed seed runs, by result (accepted or skip reason).",
		}, []string{"result"}),
		lookupsCreatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "seed",
			Name:      "lookups_created_total",
			Help:      "Lookups created by committed seed runs.",
		}, []string{"category"}),
		persistDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalog",
			Subsystem: "seed",
			Name:      "persist_duration_seconds",
			Help:      "Duration of the batch persist transaction.",
			Buckets: []float64{
				0.01, 0.05,
				0.1, 0.5,
				1, 2, 5, 10,
				30, 60,
			},
		}, []string{"result"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

const accepted = "accepted"

// observeCommitted counts the rows of a batch once it is stored.
func observeCommitted(b *Batch) {
	m := getMetrics()
	m.rowsTotal.WithLabelValues(accepted).Add(float64(b.Accepted()))
	for reason, n := range b.Skipped {
		m.rowsTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
	for c, created := range b.NewLookups {
		m.lookupsCreatedTotal.WithLabelValues(c.String()).Add(float64(len(created)))
	}
}
