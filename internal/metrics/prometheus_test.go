package metrics

import (
	"testing"
	"time"

	"github.com/OkutaniDaichi0106/goh3/h3"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/quic-go/quic-go/http3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metricValue returns the value of the series of family name whose labels
// match labels exactly.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics_Tracer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := h3.NewStartTracker(5*time.Second, nil, m.Tracer())

	require.NoError(t, tracker.Track(0, h3.RequestStream, epoch, nil))
	require.NoError(t, tracker.Track(4, h3.RequestStream, epoch, nil))
	require.NoError(t, tracker.Track(2, h3.ControlStream, epoch, nil))
	require.NoError(t, tracker.Track(6, h3.ControlStream, epoch, nil))

	assert.Equal(t, 2.0, metricValue(t, reg, "h3_streams_pending", map[string]string{"kind": "request"}))
	assert.Equal(t, 2.0, metricValue(t, reg, "h3_streams_pending", map[string]string{"kind": "control"}))

	tracker.Started(0)
	tracker.Closed(6)
	tracker.OnHeartbeat(epoch.Add(6 * time.Second))

	assert.Equal(t, 2.0, metricValue(t, reg, "h3_streams_tracked_total", map[string]string{"kind": "request"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "h3_streams_started_total", map[string]string{"kind": "request"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "h3_streams_closed_before_start_total", map[string]string{"kind": "control"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "h3_streams_aborted_total", map[string]string{
		"kind": "request",
		"code": http3.ErrCodeRequestRejected.String(),
	}))
	assert.Equal(t, 1.0, metricValue(t, reg, "h3_streams_aborted_total", map[string]string{
		"kind": "control",
		"code": http3.ErrCodeStreamCreationError.String(),
	}))
	assert.Equal(t, 0.0, metricValue(t, reg, "h3_streams_pending", map[string]string{"kind": "request"}))
	assert.Equal(t, 0.0, metricValue(t, reg, "h3_streams_pending", map[string]string{"kind": "control"}))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() {
		New(reg)
	}, "registering the same collectors twice must fail")
}
