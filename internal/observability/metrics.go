package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dmapctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"instance", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dmapctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"instance", "method", "path", "status"},
	)
	codecOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dmapctl",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Codec operations by outcome. Failures are labelled with the error kind.",
		},
		[]string{"op", "result"},
	)
	codecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dmapctl",
			Subsystem: "codec",
			Name:      "duration_seconds",
			Help:      "Codec operation duration in seconds.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"op"},
	)
	codecBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dmapctl",
			Subsystem: "codec",
			Name:      "bytes_total",
			Help:      "Wire bytes read by decode and written by encode.",
		},
		[]string{"op"},
	)
	dictionaryCodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dmapctl",
			Subsystem: "dictionary",
			Name:      "codes",
			Help:      "Content codes in the active dictionary.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, codecOps, codecDuration, codecBytes, dictionaryCodes)
	})
}

func RecordHTTPRequest(instance, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(instance, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(instance, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordCodec counts one codec call. result is "ok" or an error kind label.
func RecordCodec(op, result string, bytes int, duration time.Duration) {
	RegisterMetrics()
	codecOps.WithLabelValues(op, result).Inc()
	codecDuration.WithLabelValues(op).Observe(duration.Seconds())
	if bytes > 0 {
		codecBytes.WithLabelValues(op).Add(float64(bytes))
	}
}

func SetDictionarySize(n int) {
	RegisterMetrics()
	dictionaryCodes.Set(float64(n))
}
