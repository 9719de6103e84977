package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandshakeDuration tracks wall-clock time for a full CMI-CSH-CSHP-PIN
	// handshake, labelled by outcome.
	HandshakeDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Handshake duration in seconds from CMI start to data-channel readiness",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~32s
		},
		[]string{"outcome"}, // success, aborted
	)

	// HandshakeAborts tracks aborts by the layer that raised them and the
	// AbortError code, where one applies (CodeNone for layers without a
	// wire-level error taxonomy).
	HandshakeAborts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "aborts_total",
			Help:      "Total number of handshake aborts by layer and error code",
		},
		[]string{"layer", "code"},
	)

	// ActiveConnections tracks connections that have completed the
	// handshake and are exchanging data-channel frames.
	ActiveConnections = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "active_connections",
			Help:      "Number of connections currently past the handshake",
		},
	)
)

// ObserveHandshake records one completed handshake attempt's duration,
// labelled by whether it succeeded.
func ObserveHandshake(d time.Duration, success bool) {
	outcome := "aborted"
	if success {
		outcome = "success"
	}
	HandshakeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncAbort records one abort raised by layer, carrying code (shiperr.CodeNone
// when the layer has no wire-level error taxonomy).
func IncAbort(layer string, code int) {
	HandshakeAborts.WithLabelValues(layer, strconv.Itoa(code)).Inc()
}
