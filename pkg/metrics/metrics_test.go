package metrics

import (
	"bytes"
	"testing"

	"github.com/block/replsafe/pkg/statuslog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Metrics {
	return &Metrics{Values: []MetricValue{
		{Name: BatchRowsCountMetricName, Value: 500, Type: COUNTER},
		{Name: BatchProcessingTimeMetricName, Value: 0.75, Type: GAUGE},
	}}
}

func TestNoopSink(t *testing.T) {
	sink := &NoopSink{}
	assert.NoError(t, sink.Send(t.Context(), sample()))
}

func TestLogSink(t *testing.T) {
	out := &bytes.Buffer{}
	logger := statuslog.New(&statuslog.Config{Out: out, ErrOut: out})
	sink := NewLogSink(logger)
	require.NoError(t, sink.Send(t.Context(), sample()))
	assert.Contains(t, out.String(), "name=batch_num_rows type=counter value=500")
	assert.Contains(t, out.String(), "name=batch_processing_time type=gauge value=0.75")
}

func TestLogSinkInvalidType(t *testing.T) {
	out := &bytes.Buffer{}
	logger := statuslog.New(&statuslog.Config{Out: &bytes.Buffer{}, ErrOut: out})
	sink := NewLogSink(logger)
	require.NoError(t, sink.Send(t.Context(), &Metrics{Values: []MetricValue{
		{Name: "mystery", Value: 1, Type: UNKNOWN},
	}}))
	assert.Contains(t, out.String(), "invalid metric type")
}

func TestPrometheusSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	require.NoError(t, sink.Send(t.Context(), sample()))
	require.NoError(t, sink.Send(t.Context(), sample()))

	assert.InDelta(t, 1000, testutil.ToFloat64(sink.counters.WithLabelValues(BatchRowsCountMetricName)), 1e-9)
	assert.InDelta(t, 0.75, testutil.ToFloat64(sink.gauges.WithLabelValues(BatchProcessingTimeMetricName)), 1e-9)
}

func TestPrometheusSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	assert.Error(t, err)
}
