package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DraftLinesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "draft_lines_added_total",
		Help: "Total number of add-line operations accepted",
	})

	DraftValidationFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_validation_failed_total",
		Help: "Total number of draft operations rejected by validation",
	}, []string{"reason"})

	DraftsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drafts_discarded_total",
		Help: "Total number of drafts discarded without submission",
	})

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders accepted by the order service",
	})

	OrdersSubmissionFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_submission_failed_total",
		Help: "Total number of failed order submissions",
	}, []string{"reason"})

	OrderSubmissionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submission_latency_seconds",
		Help:    "Latency of order submissions to the order service",
		Buckets: prometheus.DefBuckets,
	})

	CatalogCacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_results_total",
		Help: "Catalog cache lookups by kind and result",
	}, []string{"kind", "result"})

	CatalogRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_latency_seconds",
		Help:    "Latency of catalog service requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
