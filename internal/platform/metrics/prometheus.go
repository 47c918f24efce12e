package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager holds the bridge's Prometheus metrics.
type MetricsManager struct {
	Registry            *prometheus.Registry
	RequestsTotal       *prometheus.CounterVec
	APIErrorsTotal      *prometheus.CounterVec
	APILatency          *prometheus.HistogramVec
	DocumentWritesTotal prometheus.Counter
	ImagesStoredTotal   prometheus.Counter
	ImagesDeletedTotal  prometheus.Counter
	ImageBytesStored    prometheus.Counter
}

func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route and status code.",
	}, []string{"route", "code"})
	apiErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_errors_total",
		Help:      "Total number of API errors by route.",
	}, []string{"route", "error_type"})
	apiLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_latency_seconds",
		Help:      "Latency of API requests by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	documentWrites := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_writes_total",
		Help:      "Total number of listing document writes.",
	})
	imagesStored := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_stored_total",
		Help:      "Total number of images stored.",
	})
	imagesDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_deleted_total",
		Help:      "Total number of images deleted.",
	})
	imageBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_bytes_stored_total",
		Help:      "Total number of image bytes stored.",
	})

	registry.MustRegister(
		requestsTotal,
		apiErrorsTotal,
		apiLatency,
		documentWrites,
		imagesStored,
		imagesDeleted,
		imageBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:            registry,
		RequestsTotal:       requestsTotal,
		APIErrorsTotal:      apiErrorsTotal,
		APILatency:          apiLatency,
		DocumentWritesTotal: documentWrites,
		ImagesStoredTotal:   imagesStored,
		ImagesDeletedTotal:  imagesDeleted,
		ImageBytesStored:    imageBytes,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
