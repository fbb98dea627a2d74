package obs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockMetricsIncCounter(t *testing.T) {
	m := NewMockMetrics()
	m.IncCounter("uploads_total", map[string]string{"tenant": "acme"})
	m.IncCounter("uploads_total", map[string]string{"tenant": "acme"})

	require.Equal(t, 2, m.Counters["uploads_total"])
	require.Len(t, m.Labels["uploads_total"], 2)
	require.Equal(t, "acme", m.Labels["uploads_total"][0]["tenant"])
}

func TestMockMetricsObserveHistogram(t *testing.T) {
	m := NewMockMetrics()
	m.ObserveHistogram("ingestion_stage_ms", 12.5, map[string]string{"stage": "parsing"})
	m.ObserveHistogram("ingestion_stage_ms", 42.0, map[string]string{"stage": "embedding"})

	require.Equal(t, []float64{12.5, 42.0}, m.Hists["ingestion_stage_ms"])
	require.Equal(t, "parsing", m.Labels["ingestion_stage_ms"][0]["stage"])
	require.Equal(t, "embedding", m.Labels["ingestion_stage_ms"][1]["stage"])
}

func TestOtelMetricsNilReceiverIsNoop(t *testing.T) {
	var m *OtelMetrics
	require.NotPanics(t, func() {
		m.IncCounter("x", nil)
		m.ObserveHistogram("y", 1, nil)
	})
}

func TestNewOtelMetricsCachesInstruments(t *testing.T) {
	m := NewOtelMetrics()
	require.NotPanics(t, func() {
		m.ObserveHistogram("ingestion_stage_ms", 1, map[string]string{"stage": "chunking"})
		m.ObserveHistogram("ingestion_stage_ms", 2, map[string]string{"stage": "chunking"})
	})
	_, ok := m.getHistogram("ingestion_stage_ms")
	require.True(t, ok)
}

func TestToAttrsEmpty(t *testing.T) {
	require.Nil(t, toAttrs(nil))
	require.Len(t, toAttrs(map[string]string{"a": "b"}), 1)
}
