package platform

import (
	"sync"

	"msgmap/internal/runtime"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "msgmap"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed, labeled by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Histogram of request durations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	RegistryLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "registry_lookups_total",
		Help:      "Registry lookups, labeled by operation and result (ok, invalid, not_found, error).",
	}, []string{"op", "result"})

	MessagesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "messages_published_total",
		Help:      "Envelopes published to JetStream, labeled by kind.",
	}, []string{"kind"})

	MessagesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "messages_consumed_total",
		Help:      "Envelopes received from JetStream, labeled by kind and message type.",
	}, []string{"kind", "message_type"})

	ConvertedFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "converted_files_total",
		Help:      "Schema files handled by the converter, labeled by result (converted, planned, failed).",
	}, []string{"result"})
)

var metricsOnce sync.Once

// InitMetrics registers the collectors with the default registry. Safe to
// call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPDuration,
			RegistryLookups,
			MessagesPublished,
			MessagesConsumed,
			ConvertedFiles,
		)
	})
}

// lookupResult buckets an error for the registry_lookups_total result label.
func lookupResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isNotFound(err):
		return "not_found"
	case isInvalid(err):
		return "invalid"
	default:
		return "error"
	}
}

// RecordConversion counts the files of a converter run.
func RecordConversion(report *runtime.ConversionReport, err error) {
	if report != nil {
		result := "converted"
		if report.DryRun {
			result = "planned"
		}
		ConvertedFiles.WithLabelValues(result).Add(float64(len(report.Files)))
	}
	if err != nil {
		ConvertedFiles.WithLabelValues("failed").Inc()
	}
}
