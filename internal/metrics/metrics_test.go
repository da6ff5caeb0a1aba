package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RenewalFinished("success", 20*time.Millisecond)
	m.RenewalFinished("success", 30*time.Millisecond)
	m.RenewalFinished("no_refresh", 0)
	m.GuardDecision("auth", "redirect_login")
	m.ObserveHTTP("GET", "/events", 200, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.renewals.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.renewals.WithLabelValues("no_refresh")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.guards.WithLabelValues("auth", "redirect_login")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpReqs.WithLabelValues("GET", "/events", "200")))

	// длительность пишется только для реальных обменов
	mfs, err := reg.Gather()
	require.NoError(t, err)

	var samples uint64
	for _, mf := range mfs {
		if mf.GetName() == "eventhub_gateway_renewal_duration_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	require.EqualValues(t, 2, samples)
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
