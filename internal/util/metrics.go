package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BulkAddBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulk_add_batches_total",
		Help: "Total number of bulk-add batches processed",
	})

	BulkAddBatchesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_add_batches_failed_total",
		Help: "Total number of bulk-add batches rejected before item processing",
	}, []string{"reason"})

	BooksAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_added_total",
		Help: "Total number of detections reconciled into inventory",
	})

	BookItemErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_item_errors_total",
		Help: "Total number of detections that failed reconciliation",
	}, []string{"reason"})

	InventoryRowsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_rows_created_total",
		Help: "Total number of inventory rows created",
	})

	BulkAddLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bulk_add_latency_seconds",
		Help:    "Latency of bulk-add batch reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	BooksIngestedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_ingested_events_total",
		Help: "Total number of BooksIngested events consumed",
	})

	CatalogCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Catalog listing cache lookups by outcome",
	}, []string{"outcome"})

	ImagesUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "images_uploaded_total",
		Help: "Total number of shelf images uploaded",
	})

	DetectionsReturnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "detections_returned_total",
		Help: "Total number of detections returned by the inference service",
	})

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
