package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-exchange/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestExchange_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewExchange(reg)

	m.Observe("basic", "accessToken", nil, 10*time.Millisecond)
	m.Observe("basic", "accessToken", errors.New("nope"), time.Millisecond)
	m.Observe("basic", "accessToken", nil, time.Millisecond)
	m.RecordFailed()

	require.Equal(t, 2.0, testutil.ToFloat64(m.Attempts.WithLabelValues("basic", "accessToken", metrics.ResultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Attempts.WithLabelValues("basic", "accessToken", metrics.ResultFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RecordFailures))
	require.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestExchange_NilIsNoop(t *testing.T) {
	var m *metrics.Exchange
	require.NotPanics(t, func() {
		m.Observe("a", "b", nil, 0)
		m.RecordFailed()
	})
}
