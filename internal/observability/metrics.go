package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mandelctl",
			Subsystem: "session",
			Name:      "total",
			Help:      "Render sessions by terminal outcome.",
		},
		[]string{"outcome"},
	)
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mandelctl",
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Render session duration in seconds, submit to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"outcome"},
	)
	protocolExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mandelctl",
			Subsystem: "protocol",
			Name:      "exchanges_total",
			Help:      "Request/response exchanges with the engine by command.",
		},
		[]string{"command"},
	)
	outputRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mandelctl",
			Name:      "output_retries_total",
			Help:      "Output requests resent because the engine reported pending output.",
		},
	)
	sessionBusy = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mandelctl",
			Subsystem: "session",
			Name:      "busy_total",
			Help:      "Render starts rejected locally because a session was in flight.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sessionsTotal, sessionDuration, protocolExchanges, outputRetries, sessionBusy)
	})
}

// RecordSession counts one finished session. outcome is a terminal label such
// as "rendered", "empty", "no_operation", "rejected" or "failed".
func RecordSession(outcome string, duration time.Duration) {
	RegisterMetrics()
	sessionsTotal.WithLabelValues(outcome).Inc()
	sessionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordExchange(command string) {
	RegisterMetrics()
	protocolExchanges.WithLabelValues(command).Inc()
}

func RecordOutputRetry() {
	RegisterMetrics()
	outputRetries.Inc()
}

func RecordBusy() {
	RegisterMetrics()
	sessionBusy.Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
