package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"nexuscash/core/events"
)

func TestPOSMetricsRecord(t *testing.T) {
	m := NewPOSMetrics(prometheus.NewRegistry())
	m.RecordCheckoutStarted()
	m.RecordSettlement("Confirmed", 4*time.Second)
	m.RecordSettlement("failed", 0)
	m.RecordSweep("auto", 0.8)
	m.RecordTokens("mint", 13)
	m.RecordTokens("burn", 0)
	m.RecordRejection("")

	require.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutsStarted()))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Settlements().WithLabelValues("confirmed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Settlements().WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Sweeps().WithLabelValues("auto")))
	require.Equal(t, 13.0, testutil.ToFloat64(m.Tokens().WithLabelValues("mint")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.Tokens().WithLabelValues("burn")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Rejections().WithLabelValues("unknown")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *POSMetrics
	m.RecordCheckoutStarted()
	m.RecordSweep("manual", 1)
	m.SetTreasury(1, 2, 3)
	var c *EventCounter
	c.Emit(events.RateSync{})
}

func TestEventCounter(t *testing.T) {
	c := NewEventCounter(prometheus.NewRegistry())
	c.Emit(events.TreasurySweep{Trigger: "manual"})
	c.Emit(events.TreasurySweep{Trigger: "auto"})
	require.Equal(t, 2.0, testutil.ToFloat64(c.Counter().WithLabelValues(events.TypeTreasurySweep)))
}
