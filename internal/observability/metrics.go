package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sessionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "photodrop",
			Subsystem: "receiver",
			Name:      "sessions_accepted_total",
			Help:      "TCP transfer sessions accepted.",
		},
	)
	photosStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "photodrop",
			Subsystem: "receiver",
			Name:      "photos_stored_total",
			Help:      "Photos durably written to the store.",
		},
	)
	photoBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "photodrop",
			Subsystem: "receiver",
			Name:      "photo_bytes_total",
			Help:      "Total payload bytes stored.",
		},
	)
	sessionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photodrop",
			Subsystem: "receiver",
			Name:      "session_failures_total",
			Help:      "Sessions closed without an acknowledgement, by reason.",
		},
		[]string{"reason"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photodrop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photodrop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			sessionsAccepted, photosStored, photoBytes, sessionFailures,
			httpRequests, httpDuration,
		)
	})
}

func RecordSessionAccepted() {
	RegisterMetrics()
	sessionsAccepted.Inc()
}

func RecordPhotoStored(bytes int) {
	RegisterMetrics()
	photosStored.Inc()
	photoBytes.Add(float64(bytes))
}

func RecordSessionFailure(reason string) {
	RegisterMetrics()
	sessionFailures.WithLabelValues(reason).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
