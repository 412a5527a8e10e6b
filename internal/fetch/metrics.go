package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yomu",
		Subsystem: "fetch",
		Name:      "jobs_total",
		Help:      "Total fetch jobs, by final status.",
	}, []string{"status"})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "yomu",
		Subsystem: "fetch",
		Name:      "pages_fetched_total",
		Help:      "Total pages downloaded across all jobs.",
	})

	pageFetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "yomu",
		Subsystem: "fetch",
		Name:      "page_fetch_duration_seconds",
		Help:      "Per-page download duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	jobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "yomu",
		Subsystem: "fetch",
		Name:      "jobs_active",
		Help:      "Number of jobs currently downloading.",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "yomu",
		Subsystem: "fetch",
		Name:      "ws_connections_active",
		Help:      "Number of open progress WebSocket connections.",
	})
)
