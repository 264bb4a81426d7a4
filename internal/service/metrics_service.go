package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	mergeTotal      *prometheus.CounterVec
	mergedDocuments prometheus.Counter
	uploadBytes     prometheus.Counter
	walletMovements *prometheus.CounterVec
}

// NewMetricsService registers the API's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	mergeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "container_merges_total",
		Help: "Container merge attempts by outcome",
	}, []string{"outcome"})

	mergedDocuments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "merged_documents_total",
		Help: "Documents successfully included in merged artifacts",
	})

	uploadBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uploaded_bytes_total",
		Help: "Total bytes accepted through document uploads",
	})

	walletMovements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_movements_total",
		Help: "Ledger movements by transaction type",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, mergeTotal, mergedDocuments, uploadBytes, walletMovements, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		mergeTotal:      mergeTotal,
		mergedDocuments: mergedDocuments,
		uploadBytes:     uploadBytes,
		walletMovements: walletMovements,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveMerge records the outcome of one container merge.
func (m *MetricsService) ObserveMerge(succeeded, failed int) {
	if m == nil {
		return
	}
	outcome := "clean"
	if failed > 0 {
		outcome = "partial"
	}
	m.mergeTotal.WithLabelValues(outcome).Inc()
	m.mergedDocuments.Add(float64(succeeded))
}

// ObserveFailedMerge records a merge that produced no artifact.
func (m *MetricsService) ObserveFailedMerge() {
	if m == nil {
		return
	}
	m.mergeTotal.WithLabelValues("failed").Inc()
}

// ObserveUpload records the size of one accepted upload.
func (m *MetricsService) ObserveUpload(sizeBytes int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Add(float64(sizeBytes))
}

// ObserveWalletMovement counts one ledger movement by type.
func (m *MetricsService) ObserveWalletMovement(txType string) {
	if m == nil {
		return
	}
	m.walletMovements.WithLabelValues(txType).Inc()
}
