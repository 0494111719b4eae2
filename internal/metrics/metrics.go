// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldcrm_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldcrm_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// VisitQueries counts visit reads by operation (list, export, summary, report_*).
	VisitQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldcrm_visit_queries_total",
			Help: "Visit queries by operation.",
		},
		[]string{"operation"},
	)

	ExportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldcrm_export_rows_total",
			Help: "Rows written by file exports.",
		},
		[]string{"export"},
	)

	ScopeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldcrm_scope_cache_lookups_total",
			Help: "Rep scope cache lookups by kind and result.",
		},
		[]string{"kind", "result"},
	)
)
