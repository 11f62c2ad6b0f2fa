// Package metrics contains a sink interface for batch-job telemetry.
// A NoopSink and a logging sink are provided for convenience, plus a
// prometheus sink for jobs that run long enough to be scraped.
package metrics

import (
	"context"
	"time"

	"github.com/siddontang/go-log/loggers"
)

// Metric types.
const (
	UNKNOWN byte = iota
	COUNTER
	GAUGE
)

const (
	SinkTimeout = 1 * time.Second

	BatchProcessingTimeMetricName = "batch_processing_time"
	BatchRowsCountMetricName      = "batch_num_rows"
	BatchTargetRateMetricName     = "batch_target_rate"
	ReplicaLagMetricName          = "replica_lag_seconds"
	ReplicaWaitTimeMetricName     = "replica_wait_time"
)

// Metrics are a collection of MetricValues.
type Metrics struct {
	Values []MetricValue
}

type MetricValue struct {
	// Name is the metric name
	Name string

	// Value is the value of the metric.
	Value float64

	// Type is the metric type: GAUGE, COUNTER, and other const.
	Type byte
}

// Sink sends metrics to an external destination.
type Sink interface {
	// Send sends metrics to the sink. It must respect the context timeout, if any.
	Send(ctx context.Context, metrics *Metrics) error
}

// NoopSink is the default sink which does nothing
type NoopSink struct{}

func (s *NoopSink) Send(_ context.Context, _ *Metrics) error {
	return nil
}

var _ Sink = &NoopSink{}

// logSink writes metrics to the job logger.
type logSink struct {
	logger loggers.Advanced
}

func (l *logSink) Send(_ context.Context, m *Metrics) error {
	for _, v := range m.Values {
		switch v.Type {
		case COUNTER:
			l.logger.Infof("metric name=%s type=counter value=%v", v.Name, v.Value)
		case GAUGE:
			l.logger.Infof("metric name=%s type=gauge value=%v", v.Name, v.Value)
		default:
			l.logger.Errorf("received invalid metric type: %d name=%s value=%v", v.Type, v.Name, v.Value)
		}
	}
	return nil
}

var _ Sink = &logSink{}

func NewLogSink(logger loggers.Advanced) *logSink {
	return &logSink{
		logger: logger,
	}
}
