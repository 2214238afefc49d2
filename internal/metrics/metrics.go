package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metasearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metasearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	PageFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metasearch",
		Name:      "page_fetches_total",
		Help:      "Result-page fetches by source adapter and outcome.",
	}, []string{"adapter", "status"})

	PageFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metasearch",
		Name:      "page_fetch_duration_seconds",
		Help:      "Result-page fetch duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"adapter"})

	LinkResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metasearch",
		Name:      "link_resolutions_total",
		Help:      "Detail-page link resolutions by source adapter and outcome.",
	}, []string{"adapter", "status"})

	RecordsEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metasearch",
		Name:      "records_emitted_total",
		Help:      "Resolved records emitted to the output sink, by source adapter.",
	}, []string{"adapter"})

	AdapterAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "metasearch",
		Name:      "adapter_available",
		Help:      "Whether a source adapter is available (1) or blocked by its circuit breaker (0).",
	}, []string{"adapter"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PageFetchesTotal,
		PageFetchDuration,
		LinkResolutionsTotal,
		RecordsEmittedTotal,
		AdapterAvailable,
	)
}
