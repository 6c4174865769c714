// Package metrics exposes stream start tracking as Prometheus metrics.
package metrics

import (
	"github.com/OkutaniDaichi0106/goh3/h3"
	"github.com/OkutaniDaichi0106/goh3/quic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors fed by an h3.Tracer.
type Metrics struct {
	StreamsTracked *prometheus.CounterVec
	StreamsStarted *prometheus.CounterVec
	StreamsClosed  *prometheus.CounterVec
	StreamsAborted *prometheus.CounterVec
	StreamsPending *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StreamsTracked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "h3_streams_tracked_total",
			Help: "Total number of peer-initiated streams that started waiting for their first bytes",
		}, []string{"kind"}),
		StreamsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "h3_streams_started_total",
			Help: "Total number of streams that started before their deadline",
		}, []string{"kind"}),
		StreamsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "h3_streams_closed_before_start_total",
			Help: "Total number of streams that ended before they started",
		}, []string{"kind"}),
		StreamsAborted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "h3_streams_aborted_total",
			Help: "Total number of streams reset by the server before they started",
		}, []string{"kind", "code"}),
		StreamsPending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "h3_streams_pending",
			Help: "Current number of streams waiting for their first bytes",
		}, []string{"kind"}),
	}
}

// Tracer returns an h3.Tracer recording into m.
func (m *Metrics) Tracer() *h3.Tracer {
	return &h3.Tracer{
		StreamTracked: func(_ quic.StreamID, kind h3.StreamKind) {
			m.StreamsTracked.WithLabelValues(kind.String()).Inc()
			m.StreamsPending.WithLabelValues(kind.String()).Inc()
		},
		StreamStarted: func(_ quic.StreamID, kind h3.StreamKind) {
			m.StreamsStarted.WithLabelValues(kind.String()).Inc()
			m.StreamsPending.WithLabelValues(kind.String()).Dec()
		},
		StreamClosed: func(_ quic.StreamID, kind h3.StreamKind) {
			m.StreamsClosed.WithLabelValues(kind.String()).Inc()
			m.StreamsPending.WithLabelValues(kind.String()).Dec()
		},
		StreamAborted: func(err *h3.StreamAbortedError) {
			m.StreamsAborted.WithLabelValues(err.Kind.String(), err.Code.String()).Inc()
			m.StreamsPending.WithLabelValues(err.Kind.String()).Dec()
		},
	}
}
