package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	registerOnce sync.Once

	connectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "redis_subscriber",
			Subsystem: "session",
			Name:      "connects_total",
			Help:      "Completed connect and replay cycles.",
		},
	)
	connectDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "redis_subscriber",
			Subsystem: "session",
			Name:      "connect_duration_seconds",
			Help:      "Connect and replay cycle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	disconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redis_subscriber",
			Subsystem: "session",
			Name:      "disconnects_total",
			Help:      "Dropped connections by cause.",
		},
		[]string{"cause"},
	)
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redis_subscriber",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Events delivered to the consumer by kind.",
		},
		[]string{"kind"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redis_subscriber",
			Subsystem: "session",
			Name:      "commands_sent_total",
			Help:      "Subscription commands sent by verb.",
		},
		[]string{"verb"},
	)
	networkBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "redis_subscriber",
			Subsystem: "session",
			Name:      "network_bytes_total",
			Help:      "Bytes read off the stream.",
		},
	)
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redis_subscriber",
			Subsystem: "session",
			Name:      "errors_total",
			Help:      "Session errors by type.",
		},
		[]string{"type"},
	)
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			connectsTotal,
			connectDuration,
			disconnectsTotal,
			eventsTotal,
			commandsTotal,
			networkBytes,
			errorsTotal,
		)
	})
}

// promCollector implements redissub.MetricsCollector on the
// package-level prometheus collectors
type promCollector struct{}

func newPromCollector() promCollector {
	registerMetrics()
	return promCollector{}
}

func (promCollector) RecordConnect(duration time.Duration) {
	connectsTotal.Inc()
	connectDuration.Observe(duration.Seconds())
}

func (promCollector) RecordDisconnect(cause string) {
	disconnectsTotal.WithLabelValues(cause).Inc()
}

func (promCollector) RecordEvent(kind string) {
	eventsTotal.WithLabelValues(kind).Inc()
}

func (promCollector) RecordCommandSent(verb string) {
	commandsTotal.WithLabelValues(verb).Inc()
}

func (promCollector) RecordNetworkBytes(bytes int64) {
	networkBytes.Add(float64(bytes))
}

func (promCollector) RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

// serveMetrics exposes /metrics on addr in a background goroutine
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
}
