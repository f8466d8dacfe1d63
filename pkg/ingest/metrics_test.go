package ingest

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.Observe("google-drive", &Report{Fetched: 3, Classified: 2, Matched: 2, Accepted: 1, Deduped: 1, Dispatched: 1}, nil)
	m.Observe("google-drive", &Report{Fetched: 1, Classified: 1, Matched: 1, Accepted: 1, DispatchFailed: 1}, nil)
	m.Observe("google-drive", &Report{}, errors.New("gateway down"))
	m.Observe("google-drive", &Report{Handshake: true}, nil)

	assert.Equal(t, float64(4), testutil.ToFloat64(m.changes.WithLabelValues("fetched")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.changes.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.changes.WithLabelValues("deduped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.changes.WithLabelValues("dispatch_failed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.notifications.WithLabelValues("google-drive", "processed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("google-drive", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("google-drive", "handshake")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() { m.Observe("google-drive", &Report{Fetched: 1}, nil) })
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	_, err := NewMetrics(registry)
	require.NoError(t, err)

	_, err = NewMetrics(registry)
	assert.Error(t, err)
}
