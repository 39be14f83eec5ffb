package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	messagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syntaxworker",
			Subsystem: "protocol",
			Name:      "messages_received_total",
			Help:      "Client messages handled, by variant.",
		},
		[]string{"variant"},
	)
	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syntaxworker",
			Subsystem: "protocol",
			Name:      "messages_sent_total",
			Help:      "Server messages queued for the parent, by variant.",
		},
		[]string{"variant"},
	)
	quanta = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "syntaxworker",
			Subsystem: "scheduler",
			Name:      "quanta_total",
			Help:      "Work quanta executed.",
		},
	)
	flushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "syntaxworker",
			Subsystem: "scheduler",
			Name:      "flushes_total",
			Help:      "Token update flushes sent.",
		},
	)
	flushedLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "syntaxworker",
			Subsystem: "scheduler",
			Name:      "token_lines_total",
			Help:      "Token lines delivered in flushes.",
		},
	)
	armed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "syntaxworker",
			Subsystem: "scheduler",
			Name:      "armed",
			Help:      "1 while the scheduler is armed.",
		},
	)
	fatals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syntaxworker",
			Subsystem: "server",
			Name:      "fatal_total",
			Help:      "Fatal exits by reason.",
		},
		[]string{"reason"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syntaxworker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Diagnostics HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "syntaxworker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Diagnostics HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			messagesReceived,
			messagesSent,
			quanta,
			flushes,
			flushedLines,
			armed,
			fatals,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordMessageReceived(variant string) {
	RegisterMetrics()
	messagesReceived.WithLabelValues(variant).Inc()
}

func RecordMessageSent(variant string) {
	RegisterMetrics()
	messagesSent.WithLabelValues(variant).Inc()
}

func RecordQuantum() {
	RegisterMetrics()
	quanta.Inc()
}

func RecordFlush(lines int) {
	RegisterMetrics()
	flushes.Inc()
	flushedLines.Add(float64(lines))
}

func SetArmed(on bool) {
	RegisterMetrics()
	if on {
		armed.Set(1)
		return
	}
	armed.Set(0)
}

func RecordFatal(reason string) {
	RegisterMetrics()
	fatals.WithLabelValues(reason).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
