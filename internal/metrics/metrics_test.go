package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRelay(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRelay("GET", OutcomeRelayed, 10*time.Millisecond)
	m.ObserveRelay("GET", OutcomeRelayed, 20*time.Millisecond)
	m.ObserveRelay("POST", OutcomeFailed, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("GET", OutcomeRelayed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayRequests.WithLabelValues("POST", OutcomeFailed)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RelayDuration))
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	second.PageBridged()
	second.PageBridged()
	first.PageClosed()

	assert.Same(t, first.RelayRequests, second.RelayRequests)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.BridgedPages))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRelay("GET", OutcomeRelayed, time.Second)
		m.PageBridged()
		m.PageClosed()
	})

	unregistered := New(nil)
	unregistered.PageBridged()
	assert.Equal(t, 1.0, testutil.ToFloat64(unregistered.BridgedPages))
}
